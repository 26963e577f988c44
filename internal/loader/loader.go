// Package loader reads the CSV datasets into in-memory tables through DuckDB
// and keeps the current snapshot in a Catalog.
package loader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/table"
)

// DefaultCacheSize is the number of parsed files kept in memory.
const DefaultCacheSize = 16

// Loader reads CSV files with DuckDB's read_csv_auto. Parsed tables are cached
// by file fingerprint (path, modification time, size), so an unchanged file
// is parsed once.
type Loader struct {
	db     *sql.DB
	dir    string
	cache  *lru.Cache[string, *table.Table]
	logger *slog.Logger
}

// New creates a Loader reading from dir through the DuckDB handle db.
func New(db *sql.DB, dir string, cacheSize int, logger *slog.Logger) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *table.Table](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create loader cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{db: db, dir: dir, cache: cache, logger: logger.With("component", "loader")}, nil
}

// Dir returns the data directory.
func (l *Loader) Dir() string { return l.dir }

// LoadAll loads every registered dataset concurrently. Missing files are
// skipped with a warning; other failures are collected and returned together
// with whatever loaded successfully.
func (l *Loader) LoadAll(ctx context.Context) (map[string]*table.Table, error) {
	var (
		mu   sync.Mutex
		errs error
	)
	out := make(map[string]*table.Table)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, ds := range domain.Datasets() {
		g.Go(func() error {
			tbl, err := l.LoadCSV(gctx, ds.File)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, os.ErrNotExist):
				l.logger.Warn("dataset file not found", "dataset", ds.Name, "path", filepath.Join(l.dir, ds.File))
			case err != nil:
				errs = multierr.Append(errs, fmt.Errorf("load %s: %w", ds.Name, err))
			default:
				out[ds.Name] = tbl
				l.logger.Info("loaded dataset", "dataset", ds.Name, "rows", tbl.Len(), "columns", len(tbl.Columns()))
			}
			// Per-dataset failures never cancel the other loads.
			return nil
		})
	}
	_ = g.Wait()
	return out, errs
}

// LoadCSV loads one file relative to the data directory.
func (l *Loader) LoadCSV(ctx context.Context, name string) (*table.Table, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, name)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	if tbl, ok := l.cache.Get(key); ok {
		l.logger.Debug("loader cache hit", "path", path)
		return tbl, nil
	}

	tbl, err := l.readCSV(ctx, path)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, tbl)
	return tbl, nil
}

func (l *Loader) readCSV(ctx context.Context, path string) (*table.Table, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT * FROM read_csv_auto("+quoteLiteral(path)+")")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	numeric := make([]bool, len(types))
	for i, t := range types {
		numeric[i] = isNumericType(t.DatabaseTypeName())
	}

	var data [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for i, v := range vals {
			v = convertCell(v)
			if v == nil && numeric[i] {
				v = 0.0
			}
			vals[i] = v
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return table.New(cols, data)
}

// convertCell maps DuckDB driver values onto table cell types.
func convertCell(v any) any {
	switch x := v.(type) {
	case nil, string, float64, bool:
		return x
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case interface{ Float64() float64 }:
		return x.Float64()
	case []byte:
		return string(x)
	}
	return v
}

func isNumericType(name string) bool {
	name = strings.ToUpper(name)
	switch name {
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT",
		"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT", "UHUGEINT",
		"FLOAT", "DOUBLE":
		return true
	}
	return strings.HasPrefix(name, "DECIMAL")
}

// quoteLiteral escapes s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
