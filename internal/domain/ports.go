package domain

import "context"

// QueryHistoryRepository persists executed queries.
type QueryHistoryRepository interface {
	Create(ctx context.Context, rec *QueryRecord) error
	List(ctx context.Context, filter QueryHistoryFilter) ([]QueryRecord, int64, error)
}
