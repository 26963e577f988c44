package loader

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/metrics"
	"bank-analytics/internal/table"
)

// Catalog holds the current immutable snapshot of loaded datasets. Readers
// never block; Refresh builds a new snapshot and swaps it in atomically.
type Catalog struct {
	loader   *Loader
	logger   *slog.Logger
	metrics  *metrics.Metrics
	snapshot atomic.Pointer[map[string]*table.Table]
	cron     *cron.Cron
}

// NewCatalog creates an empty catalog backed by loader.
func NewCatalog(loader *Loader, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{loader: loader, logger: logger.With("component", "catalog")}
	empty := map[string]*table.Table{}
	c.snapshot.Store(&empty)
	return c
}

// NewStaticCatalog creates a catalog over fixed tables that never refreshes.
func NewStaticCatalog(tables map[string]*table.Table) *Catalog {
	c := NewCatalog(nil, nil)
	snap := maps.Clone(tables)
	c.snapshot.Store(&snap)
	return c
}

// SetMetrics attaches Prometheus instruments.
func (c *Catalog) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Refresh reloads every dataset and publishes a new snapshot. A partial load
// is still published; the returned error lists the datasets that failed.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c.loader == nil {
		return nil
	}
	tables, err := c.loader.LoadAll(ctx)
	c.metrics.Refreshed(err == nil)
	if len(tables) == 0 && err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}
	c.snapshot.Store(&tables)
	for name, t := range tables {
		c.metrics.SetDatasetRows(name, t.Len())
	}
	c.logger.Info("catalog refreshed", "datasets", len(tables))
	return err
}

// Get returns the table loaded under name.
func (c *Catalog) Get(name string) (*table.Table, bool) {
	t, ok := (*c.snapshot.Load())[name]
	return t, ok
}

// Names returns the loaded dataset names in registry order.
func (c *Catalog) Names() []string {
	snap := *c.snapshot.Load()
	var names []string
	for _, n := range domain.DatasetNames() {
		if _, ok := snap[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// StartRefresh schedules Refresh on a cron spec such as "@hourly" or
// "*/15 * * * *".
func (c *Catalog) StartRefresh(schedule string) error {
	if c.cron != nil {
		return fmt.Errorf("catalog refresh already scheduled")
	}
	cr := cron.New()
	if _, err := cr.AddFunc(schedule, func() {
		if err := c.Refresh(context.Background()); err != nil {
			c.logger.Warn("scheduled catalog refresh failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	c.cron = cr
	cr.Start()
	c.logger.Info("catalog refresh scheduled", "schedule", schedule)
	return nil
}

// Stop stops scheduled refreshes.
func (c *Catalog) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	c.logger.Info("catalog refresh stopped")
}
