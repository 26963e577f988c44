package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bank-analytics/internal/domain"
)

// QueryHistoryRepo stores executed queries in the query_history table.
type QueryHistoryRepo struct {
	db *sql.DB
}

// NewQueryHistoryRepo creates a repository over a migrated database.
func NewQueryHistoryRepo(db *sql.DB) *QueryHistoryRepo {
	return &QueryHistoryRepo{db: db}
}

var _ domain.QueryHistoryRepository = (*QueryHistoryRepo)(nil)

// Create inserts rec, assigning an ID and timestamp when they are unset.
func (r *QueryHistoryRepo) Create(ctx context.Context, rec *domain.QueryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Millisecond)
	if rec.PlanJSON == "" {
		rec.PlanJSON = "{}"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO query_history (id, query, plan_json, source, success, error, value, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, rec.PlanJSON, rec.Source, boolToInt(rec.Success),
		nullString(rec.Error), nullFloat(rec.Value), rec.DurationMs, formatTime(rec.CreatedAt),
	)
	if err != nil {
		return mapDBError(err)
	}
	return nil
}

// List returns one page of records, newest first, and the total number of
// records matching the filter.
func (r *QueryHistoryRepo) List(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryRecord, int64, error) {
	where, args := historyWhere(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM query_history"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	q := `SELECT id, query, plan_json, source, success, error, value, duration_ms, created_at
		FROM query_history` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Page.Limit(), filter.Page.Offset())

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.QueryRecord
	for rows.Next() {
		var (
			rec       domain.QueryRecord
			success   int64
			errMsg    sql.NullString
			value     sql.NullFloat64
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Query, &rec.PlanJSON, &rec.Source, &success,
			&errMsg, &value, &rec.DurationMs, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scan history: %w", err)
		}
		rec.Success = success != 0
		if errMsg.Valid {
			rec.Error = &errMsg.String
		}
		if value.Valid {
			rec.Value = &value.Float64
		}
		rec.CreatedAt = parseTime(createdAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func historyWhere(filter domain.QueryHistoryFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Source != nil {
		conds = append(conds, "source = ?")
		args = append(args, *filter.Source)
	}
	if filter.Success != nil {
		conds = append(conds, "success = ?")
		args = append(args, boolToInt(*filter.Success))
	}
	if filter.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
