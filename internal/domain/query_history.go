package domain

import "time"

// Plan sources recorded in history.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// QueryRecord is one executed query kept in the history store.
type QueryRecord struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	PlanJSON   string    `json:"plan"`
	Source     string    `json:"source"`
	Success    bool      `json:"success"`
	Error      *string   `json:"error,omitempty"`
	Value      *float64  `json:"value,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueryHistoryFilter narrows a history listing. Nil fields match everything.
type QueryHistoryFilter struct {
	Source  *string
	Success *bool
	Since   *time.Time
	Page    PageRequest
}
