// Package analytics is the query pipeline's entry point: it plans a
// natural-language question, resolves the dataset, runs the engine and
// decorates the result with insights, a chart suggestion and a history record.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bank-analytics/internal/clarify"
	"bank-analytics/internal/domain"
	"bank-analytics/internal/engine"
	"bank-analytics/internal/insight"
	"bank-analytics/internal/loader"
	"bank-analytics/internal/metrics"
	"bank-analytics/internal/parser"
	"bank-analytics/internal/plan"
	"bank-analytics/internal/table"
)

// SourcePlan marks responses for caller-supplied plans.
const SourcePlan = "plan"

// Planner turns a question into a raw plan.
type Planner interface {
	Parse(ctx context.Context, query string) (plan.Raw, parser.Source)
}

// Tables resolves dataset names to loaded tables.
type Tables interface {
	Get(name string) (*table.Table, bool)
	Names() []string
}

// Response is everything the pipeline produces for one question.
type Response struct {
	ID             string             `json:"id"`
	Query          string             `json:"query,omitempty"`
	Source         string             `json:"source"`
	Plan           *plan.Plan         `json:"plan,omitempty"`
	Result         *domain.Result     `json:"result"`
	Insights       string             `json:"insights,omitempty"`
	Chart          *insight.ChartSpec `json:"chart,omitempty"`
	Clarifications []clarify.Question `json:"clarifications,omitempty"`
	DurationMs     int64              `json:"duration_ms"`
}

// Success reports whether the result succeeded.
func (r *Response) Success() bool { return r.Result != nil && r.Result.Success }

// Service runs the pipeline. It is safe for concurrent use.
type Service struct {
	planner Planner
	tables  Tables
	engine  *engine.Engine
	history domain.QueryHistoryRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Service. history may be nil to disable recording.
func New(planner Planner, tables Tables, history domain.QueryHistoryRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		planner: planner,
		tables:  tables,
		engine:  engine.New(logger),
		history: history,
		logger:  logger.With("component", "analytics"),
	}
}

// SetMetrics attaches Prometheus instruments.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Plan plans query without executing it.
func (s *Service) Plan(ctx context.Context, query string) (plan.Plan, parser.Source, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return plan.Plan{}, "", domain.ErrValidation("query must not be empty")
	}
	raw, src := s.planner.Parse(ctx, query)
	return plan.Normalize(raw), src, nil
}

// Execute answers a natural-language question. Every failure, including an
// empty question, is reported in the response's Result.
func (s *Service) Execute(ctx context.Context, query string) (resp *Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("query planning panicked", "panic", r, "query", query)
			resp = &Response{
				ID:         uuid.NewString(),
				Query:      query,
				Result:     domain.Failure(fmt.Sprintf("internal error: %v", r)),
				DurationMs: time.Since(start).Milliseconds(),
			}
		}
	}()

	p, src, err := s.Plan(ctx, query)
	if err != nil {
		resp = &Response{ID: uuid.NewString(), Query: query, Result: domain.Failure(err.Error())}
		resp.DurationMs = time.Since(start).Milliseconds()
		return resp
	}
	resp = s.run(ctx, strings.TrimSpace(query), string(src), p, start)
	if !resp.Success() && clarify.IsAmbiguous(query) {
		resp.Clarifications = clarify.Suggestions(query)
	}
	return resp
}

// ExecutePlan runs a caller-supplied plan bag.
func (s *Service) ExecutePlan(ctx context.Context, raw plan.Raw) *Response {
	return s.run(ctx, "", SourcePlan, plan.Normalize(raw), time.Now())
}

func (s *Service) run(ctx context.Context, query, source string, p plan.Plan, start time.Time) (resp *Response) {
	resp = &Response{ID: uuid.NewString(), Query: query, Source: source, Plan: &p}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("query pipeline panicked", "panic", r, "query", query)
			resp.Result = domain.Failure(fmt.Sprintf("internal error: %v", r))
			resp.Insights, resp.Chart = "", nil
		}
		resp.DurationMs = time.Since(start).Milliseconds()
		s.metrics.ObserveQuery(source, resp.Success(), time.Since(start))
		s.record(ctx, resp)
	}()

	tbl, ok := s.tables.Get(p.Dataset)
	if !ok {
		resp.Result = domain.Failure(fmt.Sprintf("Dataset '%s' not found. Available: %s", p.Dataset, quoteList(s.tables.Names())))
		return resp
	}

	resp.Result = s.engine.Execute(tbl, p)
	if resp.Result.Success {
		resp.Insights = insight.Generate(resp.Result, p)
		resp.Chart = insight.SuggestChart(resp.Result, p)
	}
	s.logger.Info("query executed",
		"query", query, "source", source, "dataset", p.Dataset,
		"comparison_type", p.ComparisonType, "success", resp.Result.Success)
	return resp
}

// record writes resp to history. Failures are logged and never surface.
func (s *Service) record(ctx context.Context, resp *Response) {
	if s.history == nil {
		return
	}
	rec := &domain.QueryRecord{
		ID:         resp.ID,
		Query:      resp.Query,
		Source:     resp.Source,
		Success:    resp.Success(),
		DurationMs: resp.DurationMs,
	}
	if resp.Plan != nil {
		if b, err := json.Marshal(resp.Plan); err == nil {
			rec.PlanJSON = string(b)
		}
	}
	if resp.Result != nil {
		if resp.Result.Success {
			v := resp.Result.Value
			rec.Value = &v
		} else {
			e := resp.Result.Error
			rec.Error = &e
		}
	}
	if err := s.history.Create(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("record query history", "error", err, "id", rec.ID)
	}
}

// History lists recorded queries.
func (s *Service) History(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryRecord, int64, error) {
	if s.history == nil {
		return nil, 0, nil
	}
	return s.history.List(ctx, filter)
}

// DatasetInfo describes one registered dataset and whether it is loaded.
type DatasetInfo struct {
	Name          string   `json:"name"`
	File          string   `json:"file"`
	Loaded        bool     `json:"loaded"`
	Rows          int      `json:"rows"`
	Columns       []string `json:"columns"`
	DefaultMetric string   `json:"default_metric"`
}

// Datasets lists the registered datasets in registry order.
func (s *Service) Datasets() []DatasetInfo {
	out := make([]DatasetInfo, 0, len(domain.Datasets()))
	for _, ds := range domain.Datasets() {
		info := DatasetInfo{Name: ds.Name, File: ds.File, Columns: ds.Columns, DefaultMetric: ds.DefaultMetric}
		if t, ok := s.tables.Get(ds.Name); ok {
			info.Loaded = true
			info.Rows = t.Len()
			info.Columns = t.Columns()
		}
		out = append(out, info)
	}
	return out
}

// Execute plans query with the keyword detector alone and runs it against
// tables. It is the pipeline without a text-generation backend, history or
// metrics.
func Execute(tables map[string]*table.Table, query string) *domain.Result {
	svc := New(parser.New(nil, nil, slog.New(slog.DiscardHandler)), loader.NewStaticCatalog(tables), nil, slog.New(slog.DiscardHandler))
	return svc.Execute(context.Background(), query).Result
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
