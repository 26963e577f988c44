// Package api serves the analytics pipeline over JSON HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"

	"bank-analytics/internal/clarify"
	"bank-analytics/internal/domain"
	"bank-analytics/internal/plan"
	"bank-analytics/internal/service/analytics"
)

// Refresher reloads the dataset catalog.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Handler implements the /v1 endpoints.
type Handler struct {
	svc     *analytics.Service
	catalog Refresher
	spec    *openapi3.T
	logger  *slog.Logger
}

// NewHandler creates a Handler. catalog may be nil, in which case refresh
// requests are rejected.
func NewHandler(svc *analytics.Service, catalog Refresher, spec *openapi3.T, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, catalog: catalog, spec: spec, logger: logger.With("component", "api")}
}

// Mount registers the API routes on r. queryMW wraps the endpoints that run
// the planner, such as a rate limiter.
func (h *Handler) Mount(r chi.Router, queryMW ...func(http.Handler) http.Handler) {
	r.Get("/openapi.json", h.serveSpec)
	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(queryMW...)
			r.Post("/query", h.query)
			r.Post("/plan", h.plan)
			r.Post("/execute", h.execute)
		})
		r.Get("/datasets", h.datasets)
		r.Post("/datasets/refresh", h.refresh)
		r.Get("/history", h.history)
		r.Get("/clarify", h.clarify)
	})
}

type queryRequest struct {
	Query string `json:"query"`
}

type executePlanRequest struct {
	Plan map[string]any `json:"plan"`
}

type planResponse struct {
	Source string    `json:"source"`
	Plan   plan.Plan `json:"plan"`
}

type datasetsResponse struct {
	Datasets []analytics.DatasetInfo `json:"datasets"`
}

type historyResponse struct {
	Records       []domain.QueryRecord `json:"records"`
	Total         int64                `json:"total"`
	NextPageToken string               `json:"next_page_token,omitempty"`
}

type clarifyResponse struct {
	Query     string             `json:"query"`
	Ambiguous bool               `json:"ambiguous"`
	Questions []clarify.Question `json:"questions,omitempty"`
	Clarified string             `json:"clarified,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	loaded := 0
	for _, ds := range h.svc.Datasets() {
		if ds.Loaded {
			loaded++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "datasets_loaded": loaded})
}

func (h *Handler) readQuery(w http.ResponseWriter, r *http.Request, path string) (string, error) {
	var req queryRequest
	if err := h.decodeBody(w, r, path, &req); err != nil {
		return "", err
	}
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return "", domain.ErrValidation("query must not be empty")
	}
	return q, nil
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	q, err := h.readQuery(w, r, "/v1/query")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Execute(r.Context(), q))
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request) {
	q, err := h.readQuery(w, r, "/v1/plan")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	p, src, err := h.svc.Plan(r.Context(), q)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{Source: string(src), Plan: p})
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	var req executePlanRequest
	if err := h.decodeBody(w, r, "/v1/execute", &req); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ExecutePlan(r.Context(), plan.Raw(req.Plan)))
}

func (h *Handler) datasets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, datasetsResponse{Datasets: h.svc.Datasets()})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeError(w, http.StatusBadRequest, "dataset refresh is not configured")
		return
	}
	if err := h.catalog.Refresh(r.Context()); err != nil {
		h.logger.Error("catalog refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, datasetsResponse{Datasets: h.svc.Datasets()})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	filter, err := historyFilterFromQuery(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	recs, total, err := h.svc.History(r.Context(), filter)
	if err != nil {
		h.logger.Error("list history failed", "error", err)
		writeDomainError(w, err)
		return
	}
	if recs == nil {
		recs = []domain.QueryRecord{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Records:       recs,
		Total:         total,
		NextPageToken: domain.NextPageToken(filter.Page.Offset(), filter.Page.Limit(), total),
	})
}

func (h *Handler) clarify(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	resp := clarifyResponse{Query: q, Ambiguous: clarify.IsAmbiguous(q)}
	if resp.Ambiguous {
		resp.Questions = clarify.Suggestions(q)
		if rewritten, ok := clarify.AutoClarify(q); ok {
			resp.Clarified = rewritten
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// historyFilterFromQuery parses max_results, page_token, source and success.
func historyFilterFromQuery(r *http.Request) (domain.QueryHistoryFilter, error) {
	q := r.URL.Query()
	f := domain.QueryHistoryFilter{Page: domain.PageRequest{PageToken: q.Get("page_token")}}

	if v := q.Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, domain.ErrValidation("max_results must be a positive integer")
		}
		f.Page.MaxResults = n
	}
	if v := q.Get("source"); v != "" {
		switch v {
		case domain.SourceLLM, domain.SourceFallback, analytics.SourcePlan:
			f.Source = &v
		default:
			return f, domain.ErrValidation("unknown source %q", v)
		}
	}
	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, domain.ErrValidation("success must be true or false")
		}
		f.Success = &b
	}
	return f, nil
}
