// Package ui renders server-side HTML pages for asking questions, reading
// reports and browsing query history.
package ui

import (
	"log/slog"
	"net/http"
	"strconv"

	gomponents "maragu.dev/gomponents"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/service/analytics"
)

const (
	historyPageSize = 25
	maxHistoryPage  = 200
)

type Handler struct {
	Analytics *analytics.Service
	Logger    *slog.Logger
}

func NewHandler(svc *analytics.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Analytics: svc, Logger: logger.With("component", "ui")}
}

// pageFromRequest reads max_results and page_token. A missing or malformed
// size falls back to size; the result is clamped to [1, maxHistoryPage].
func pageFromRequest(r *http.Request, size int) domain.PageRequest {
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("max_results")); err == nil {
		size = n
	}
	return domain.PageRequest{
		MaxResults: min(max(size, 1), maxHistoryPage),
		PageToken:  q.Get("page_token"),
	}
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}
