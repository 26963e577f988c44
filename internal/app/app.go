// Package app wires the analytics server: dataset catalog, planner, history
// store, metrics and the HTTP router.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bank-analytics/internal/api"
	"bank-analytics/internal/config"
	"bank-analytics/internal/db/repository"
	"bank-analytics/internal/detector"
	"bank-analytics/internal/domain"
	"bank-analytics/internal/llm"
	"bank-analytics/internal/loader"
	"bank-analytics/internal/metrics"
	"bank-analytics/internal/middleware"
	"bank-analytics/internal/parser"
	"bank-analytics/internal/service/analytics"
	"bank-analytics/internal/ui"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg       *config.Config
	DuckDB    *sql.DB // reads the dataset CSV files
	HistoryDB *sql.DB // migrated SQLite handle; nil disables history
	Logger    *slog.Logger
	// Registry receives the Prometheus collectors. Nil creates a private one.
	Registry *prometheus.Registry
}

// App holds the fully-wired application.
type App struct {
	Catalog   *loader.Catalog
	Parser    *parser.Parser
	Analytics *analytics.Service
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Router    http.Handler
}

// New wires every component and performs the initial dataset load. Missing
// or unreadable datasets are logged; the server still starts.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := metrics.New(reg)

	// === Datasets ===
	ldr, err := loader.New(deps.DuckDB, cfg.DataDir, cfg.LoaderCacheSize, logger)
	if err != nil {
		return nil, err
	}
	catalog := loader.NewCatalog(ldr, logger)
	catalog.SetMetrics(m)
	if err := catalog.Refresh(ctx); err != nil {
		logger.Warn("initial dataset load incomplete", "error", err)
	}
	if cfg.DataRefreshSchedule != "" {
		if err := catalog.StartRefresh(cfg.DataRefreshSchedule); err != nil {
			return nil, err
		}
	}

	// === Planner ===
	det := detector.Default()
	if cfg.VocabularyFile != "" {
		vocab, err := detector.LoadVocabulary(cfg.VocabularyFile)
		if err != nil {
			catalog.Stop()
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
		if det, err = detector.New(vocab); err != nil {
			catalog.Stop()
			return nil, fmt.Errorf("build detector: %w", err)
		}
	}
	var backend llm.Backend
	if cfg.LLM.Enabled {
		ollama := llm.NewOllamaClient(llm.OllamaConfig{
			Endpoint:    cfg.LLM.Endpoint,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.LLM.Timeout,
			Temperature: cfg.LLM.Temperature,
		})
		logger.Info("llm planning enabled", "model", ollama.Model())
		backend = ollama
	}
	p := parser.New(backend, det, logger)
	p.SetMetrics(m)

	// === History ===
	var history domain.QueryHistoryRepository
	if deps.HistoryDB != nil {
		history = repository.NewQueryHistoryRepo(deps.HistoryDB)
	}

	svc := analytics.New(p, catalog, history, logger)
	svc.SetMetrics(m)

	spec, err := api.LoadSpec(ctx)
	if err != nil {
		catalog.Stop()
		return nil, err
	}

	a := &App{
		Catalog:   catalog,
		Parser:    p,
		Analytics: svc,
		Metrics:   m,
		Registry:  reg,
	}
	a.Router = newRouter(cfg, logger, reg, api.NewHandler(svc, catalog, spec, logger), ui.NewHandler(svc, logger))
	return a, nil
}

// Close stops background work.
func (a *App) Close() {
	a.Catalog.Stop()
}

func newRouter(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry, apiHandler *api.Handler, uiHandler *ui.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})
	apiHandler.Mount(r, limiter.Middleware)

	r.Route("/ui", func(r chi.Router) {
		r.Use(limiter.Middleware)
		ui.MountRoutes(r, uiHandler)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui", http.StatusFound)
	})
	return r
}
