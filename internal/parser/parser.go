// Package parser turns a free-text question into a raw plan. It asks the
// text-generation backend first and falls back to the keyword detector on
// any failure, so callers always receive a usable plan.
package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bank-analytics/internal/detector"
	"bank-analytics/internal/domain"
	"bank-analytics/internal/llm"
	"bank-analytics/internal/metrics"
	"bank-analytics/internal/plan"
)

// Source identifies which planner produced a plan.
type Source string

// Plan sources.
const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

var (
	// ErrNoBackend is returned by the primary planner when no backend is configured.
	ErrNoBackend = errors.New("no text-generation backend configured")
	// ErrNoPlan is returned when the backend response holds no usable JSON object.
	ErrNoPlan = errors.New("backend response contained no plan")
)

// PrimaryFunc plans a query and may fail.
type PrimaryFunc func(ctx context.Context, query string) (plan.Raw, error)

// FallbackFunc plans a query and cannot fail.
type FallbackFunc func(query string) plan.Raw

// PlanFunc plans a query, reporting which planner answered.
type PlanFunc func(ctx context.Context, query string) (plan.Raw, Source)

// WithFallback combines a fallible primary planner with an infallible
// fallback. Errors and panics from primary both route to fallback; onFallback,
// when non-nil, observes the cause.
func WithFallback(primary PrimaryFunc, fallback FallbackFunc, onFallback func(error)) PlanFunc {
	return func(ctx context.Context, query string) (plan.Raw, Source) {
		raw, err := callPrimary(ctx, primary, query)
		if err == nil {
			return raw, SourceLLM
		}
		if onFallback != nil {
			onFallback(err)
		}
		return fallback(query), SourceFallback
	}
}

func callPrimary(ctx context.Context, primary PrimaryFunc, query string) (raw plan.Raw, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, fmt.Errorf("primary planner panicked: %v", r)
		}
	}()
	raw, err = primary(ctx, query)
	if err == nil && len(raw) == 0 {
		err = ErrNoPlan
	}
	return raw, err
}

// Parser plans queries with the backend and the keyword detector.
type Parser struct {
	backend  llm.Backend
	detector *detector.Detector
	logger   *slog.Logger
	metrics  *metrics.Metrics
	plan     PlanFunc
}

// New creates a Parser. A nil backend disables the backend entirely and
// every query goes to the detector.
func New(backend llm.Backend, det *detector.Detector, logger *slog.Logger) *Parser {
	if det == nil {
		det = detector.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Parser{
		backend:  backend,
		detector: det,
		logger:   logger.With("component", "parser"),
	}
	p.plan = WithFallback(p.fromBackend, p.fromDetector, p.onFallback)
	return p
}

// SetMetrics attaches Prometheus instruments.
func (p *Parser) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// Parse returns the raw plan for query and its source. It never fails; the
// result still has to go through plan.Normalize.
func (p *Parser) Parse(ctx context.Context, query string) (plan.Raw, Source) {
	return p.plan(ctx, query)
}

func (p *Parser) fromBackend(ctx context.Context, query string) (plan.Raw, error) {
	if p.backend == nil {
		return nil, ErrNoBackend
	}
	text, err := p.backend.Complete(ctx, SystemPrompt(), UserMessage(query))
	if err != nil {
		p.metrics.BackendError()
		return nil, err
	}
	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, ErrNoPlan
	}
	p.logger.Debug("backend plan", "query", query, "plan", raw)
	return raw, nil
}

func (p *Parser) fromDetector(query string) plan.Raw {
	return p.detector.BuildPlan(query).Raw()
}

func (p *Parser) onFallback(err error) {
	reason := "error"
	var be *domain.BackendError
	switch {
	case errors.Is(err, ErrNoBackend):
		reason = "disabled"
	case errors.Is(err, ErrNoPlan):
		reason = "no_plan"
		p.logger.Warn("backend response unusable", "error", err)
	case errors.As(err, &be), errors.Is(err, context.DeadlineExceeded):
		reason = "backend_error"
		p.logger.Warn("backend unavailable", "error", err)
	default:
		p.logger.Warn("backend planning failed", "error", err)
	}
	p.metrics.Fallback(reason)
	p.logger.Info("using keyword fallback", "reason", reason)
}
