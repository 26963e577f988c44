package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/multierr"

	"bank-analytics/internal/clarify"
	internaldb "bank-analytics/internal/db"
	"bank-analytics/internal/db/repository"
	"bank-analytics/internal/domain"
	"bank-analytics/internal/llm"
	"bank-analytics/internal/loader"
	"bank-analytics/internal/parser"
	"bank-analytics/internal/service/analytics"
)

// QueryView is a pipeline response as the CLI prints it.
type QueryView struct {
	ID             string             `json:"id"`
	Query          string             `json:"query,omitempty"`
	Source         string             `json:"source"`
	Plan           map[string]any     `json:"plan,omitempty"`
	Result         domain.Result      `json:"result"`
	Insights       string             `json:"insights,omitempty"`
	Clarifications []clarify.Question `json:"clarifications,omitempty"`
	DurationMs     int64              `json:"duration_ms"`
}

// PlanView is a planned but unexecuted question.
type PlanView struct {
	Source string         `json:"source"`
	Plan   map[string]any `json:"plan"`
}

// HistoryPage is one page of query history.
type HistoryPage struct {
	Records       []domain.QueryRecord `json:"records"`
	Total         int64                `json:"total"`
	NextPageToken string               `json:"next_page_token,omitempty"`
}

// Backend answers CLI commands, either in-process or through a server.
type Backend interface {
	Query(ctx context.Context, q string) (*QueryView, error)
	Plan(ctx context.Context, q string) (*PlanView, error)
	Datasets(ctx context.Context) ([]analytics.DatasetInfo, error)
	History(ctx context.Context, filter domain.QueryHistoryFilter) (*HistoryPage, error)
	Close() error
}

// LocalOptions configures an in-process backend.
type LocalOptions struct {
	DataDir       string
	HistoryDBPath string // "" disables history
	LLMEnabled    bool
	LLMEndpoint   string
	Model         string
	Logger        *slog.Logger
}

type localBackend struct {
	svc     *analytics.Service
	duck    *sql.DB
	history *sql.DB
}

// OpenLocal loads the datasets from opts.DataDir and runs the pipeline
// in-process.
func OpenLocal(ctx context.Context, opts LocalOptions) (Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	duck, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	b := &localBackend{duck: duck}

	ldr, err := loader.New(duck, opts.DataDir, 0, logger)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	catalog := loader.NewCatalog(ldr, logger)
	if err := catalog.Refresh(ctx); err != nil {
		logger.Warn("dataset load incomplete", "error", err)
	}

	var backend llm.Backend
	if opts.LLMEnabled {
		backend = llm.NewOllamaClient(llm.OllamaConfig{Endpoint: opts.LLMEndpoint, Model: opts.Model})
	}

	var history domain.QueryHistoryRepository
	if opts.HistoryDBPath != "" {
		b.history, err = internaldb.Open(ctx, opts.HistoryDBPath)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("open history store: %w", err)
		}
		history = repository.NewQueryHistoryRepo(b.history)
	}

	b.svc = analytics.New(parser.New(backend, nil, logger), catalog, history, logger)
	return b, nil
}

func (b *localBackend) Query(ctx context.Context, q string) (*QueryView, error) {
	resp := b.svc.Execute(ctx, q)
	v := &QueryView{
		ID:             resp.ID,
		Query:          resp.Query,
		Source:         resp.Source,
		Insights:       resp.Insights,
		Clarifications: resp.Clarifications,
		DurationMs:     resp.DurationMs,
	}
	if resp.Plan != nil {
		v.Plan = resp.Plan.Raw()
	}
	if resp.Result != nil {
		v.Result = *resp.Result
	}
	return v, nil
}

func (b *localBackend) Plan(ctx context.Context, q string) (*PlanView, error) {
	p, src, err := b.svc.Plan(ctx, q)
	if err != nil {
		return nil, err
	}
	return &PlanView{Source: string(src), Plan: p.Raw()}, nil
}

func (b *localBackend) Datasets(context.Context) ([]analytics.DatasetInfo, error) {
	return b.svc.Datasets(), nil
}

func (b *localBackend) History(ctx context.Context, filter domain.QueryHistoryFilter) (*HistoryPage, error) {
	recs, total, err := b.svc.History(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{
		Records:       recs,
		Total:         total,
		NextPageToken: domain.NextPageToken(filter.Page.Offset(), filter.Page.Limit(), total),
	}, nil
}

func (b *localBackend) Close() error {
	var err error
	if b.history != nil {
		err = multierr.Append(err, b.history.Close())
	}
	if b.duck != nil {
		err = multierr.Append(err, b.duck.Close())
	}
	return err
}

type remoteBackend struct {
	client *Client
}

// NewRemote returns a backend calling the server at host.
func NewRemote(host string) Backend {
	return &remoteBackend{client: NewClient(host)}
}

func (b *remoteBackend) Query(_ context.Context, q string) (*QueryView, error) {
	var v QueryView
	if err := b.client.doJSON(http.MethodPost, "/query", nil, map[string]string{"query": q}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (b *remoteBackend) Plan(_ context.Context, q string) (*PlanView, error) {
	var v PlanView
	if err := b.client.doJSON(http.MethodPost, "/plan", nil, map[string]string{"query": q}, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (b *remoteBackend) Datasets(context.Context) ([]analytics.DatasetInfo, error) {
	var v struct {
		Datasets []analytics.DatasetInfo `json:"datasets"`
	}
	if err := b.client.doJSON(http.MethodGet, "/datasets", nil, nil, &v); err != nil {
		return nil, err
	}
	return v.Datasets, nil
}

func (b *remoteBackend) History(_ context.Context, filter domain.QueryHistoryFilter) (*HistoryPage, error) {
	q := url.Values{}
	if filter.Page.MaxResults > 0 {
		q.Set("max_results", strconv.Itoa(filter.Page.MaxResults))
	}
	if filter.Page.PageToken != "" {
		q.Set("page_token", filter.Page.PageToken)
	}
	if filter.Source != nil {
		q.Set("source", *filter.Source)
	}
	if filter.Success != nil {
		q.Set("success", strconv.FormatBool(*filter.Success))
	}
	var v HistoryPage
	if err := b.client.doJSON(http.MethodGet, "/history", q, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (b *remoteBackend) Close() error { return nil }
