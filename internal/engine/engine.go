// Package engine executes canonical plans against an in-memory table.
//
// Execution always filters first (column filters, then the date filter) and
// then dispatches on the plan's comparison type to one of four strategies:
// multi-metric comparison, cross-metric growth comparison, single-metric
// comparison, or the standard aggregate. Every failure, including a panic,
// is reported as a Result with Success false.
package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/plan"
	"bank-analytics/internal/table"
)

// Engine is stateless apart from its logger and safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

// New creates an Engine.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With("component", "engine")}
}

// Execute runs p against tbl.
func (e *Engine) Execute(tbl *table.Table, p plan.Plan) (res *domain.Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("plan execution panicked", "panic", r)
			res = domain.Failure(fmt.Sprint(r))
		}
	}()
	if tbl == nil {
		return domain.Failure("no table to execute against")
	}

	working := e.ApplyFilters(tbl, p)
	if working.Empty() {
		return domain.Failure(domain.NoDataMessage)
	}

	switch p.ComparisonType {
	case plan.ComparisonMultiMetric:
		return e.multiMetric(working, p)
	case plan.ComparisonCrossGrowth:
		return e.crossGrowth(working, p)
	case "":
		return e.standard(working, p)
	default:
		return e.singleMetric(working, p)
	}
}

func comparisonColumn(p plan.Plan) string {
	if p.ComparisonColumn == "" {
		return domain.ColumnBranch
	}
	return p.ComparisonColumn
}

func (e *Engine) multiMetric(tbl *table.Table, p plan.Plan) *domain.Result {
	col := comparisonColumn(p)
	if len(p.Metrics) == 0 {
		return domain.Failure("No metrics specified")
	}
	if missing := missingColumns(tbl, p.Metrics); len(missing) > 0 {
		return domain.Failure(fmt.Sprintf("Columns not found: %s. Available: %s", pyList(missing), pyList(tbl.Columns())))
	}
	if !tbl.HasColumn(col) {
		return domain.Failure(fmt.Sprintf("Column '%s' not in data", col))
	}

	groups := tbl.GroupBy(col)
	perMetric := make([][]float64, len(p.Metrics))
	for i, m := range p.Metrics {
		perMetric[i] = aggregateGroups(groups, m, p.Aggregation)
	}

	rows := make([]domain.MetricRow, len(groups))
	for gi, g := range groups {
		row := domain.MetricRow{Group: g.KeyString(), Values: make(map[string]float64, len(p.Metrics))}
		for mi, m := range p.Metrics {
			row.Values[m] = perMetric[mi][gi]
			row.Total += perMetric[mi][gi]
		}
		rows[gi] = row
	}
	slices.SortStableFunc(rows, func(a, b domain.MetricRow) int {
		return compareFloat(a.Total, b.Total, p.Ascending())
	})
	if p.Limit > 0 && len(rows) > p.Limit {
		rows = rows[:p.Limit]
	}

	res := &domain.Result{
		Success:               true,
		MultiMetricComparison: rows,
		Metrics:               slices.Clone(p.Metrics),
		MetricBreakdown:       make(map[string]map[string]float64, len(p.Metrics)),
		ComparisonType:        col,
		Count:                 len(rows),
		Winner:                "N/A",
	}
	totals := make(domain.Series, len(rows))
	for i, r := range rows {
		totals[i] = domain.Point{Key: r.Group, Value: r.Total}
	}
	res.ComparisonData = totals
	res.GroupedData = totals
	for _, m := range p.Metrics {
		breakdown := make(map[string]float64, len(rows))
		for _, r := range rows {
			breakdown[r.Group] = r.Values[m]
		}
		res.MetricBreakdown[m] = breakdown
	}
	if len(rows) > 0 {
		res.Winner = rows[0].Group
		res.Value = rows[0].Total
	}
	return res
}

func (e *Engine) crossGrowth(tbl *table.Table, p plan.Plan) *domain.Result {
	col := comparisonColumn(p)
	a, b := p.MetricA, p.MetricB
	if a == "" || b == "" {
		return domain.Failure("cross_metric_growth needs metric_a and metric_b")
	}
	if missing := missingColumns(tbl, []string{a, b}); len(missing) > 0 {
		return domain.Failure(fmt.Sprintf("Columns not found: %s", pyList(missing)))
	}
	if !tbl.HasColumn(col) {
		return domain.Failure(fmt.Sprintf("Column '%s' not in data", col))
	}

	var rows []domain.GrowthRow
	for _, g := range tbl.GroupBy(col) {
		grp := g.Table
		if grp.HasColumn(domain.ColumnDate) {
			grp = grp.SortBy(domain.ColumnDate)
		}
		ga, gb := Growth(grp.Floats(a)), Growth(grp.Floats(b))
		rows = append(rows, domain.GrowthRow{
			Group:   g.KeyString(),
			GrowthA: round2(ga),
			GrowthB: round2(gb),
			Diff:    round2(ga - gb),
			Faster:  ga > gb,
		})
	}

	var qualifying []domain.GrowthRow
	for _, r := range rows {
		if r.Faster {
			qualifying = append(qualifying, r)
		}
	}
	slices.SortStableFunc(qualifying, func(x, y domain.GrowthRow) int {
		return compareFloat(x.Diff, y.Diff, false)
	})

	byA := slices.Clone(rows)
	slices.SortStableFunc(byA, func(x, y domain.GrowthRow) int {
		return compareFloat(x.GrowthA, y.GrowthA, false)
	})
	comp := make(domain.Series, len(byA))
	for i, r := range byA {
		comp[i] = domain.Point{Key: r.Group, Value: r.GrowthA}
	}

	breakdownA := make(map[string]float64, len(rows))
	breakdownB := make(map[string]float64, len(rows))
	for _, r := range rows {
		breakdownA[r.Group] = r.GrowthA
		breakdownB[r.Group] = r.GrowthB
	}

	res := &domain.Result{
		Success:            true,
		CrossGrowthData:    rows,
		QualifyingBranches: qualifying,
		ComparisonData:     comp,
		Value:              float64(len(qualifying)),
		Winner:             "N/A",
		Metrics:            []string{a, b},
		MetricBreakdown:    map[string]map[string]float64{a: breakdownA, b: breakdownB},
		Count:              len(rows),
		Summary:            growthSummary(a, b, qualifying),
	}
	if len(qualifying) > 0 {
		res.Winner = qualifying[0].Group
	}
	return res
}

func growthSummary(a, b string, qualifying []domain.GrowthRow) string {
	na, nb := strings.ReplaceAll(a, "_", " "), strings.ReplaceAll(b, "_", " ")
	if len(qualifying) == 0 {
		return fmt.Sprintf("No branches where %s grows faster than %s", na, nb)
	}
	names := make([]string, len(qualifying))
	for i, q := range qualifying {
		names[i] = q.Group
	}
	return fmt.Sprintf("%d branch(es) where %s grows faster than %s: %s", len(qualifying), na, nb, strings.Join(names, ", "))
}

func (e *Engine) singleMetric(tbl *table.Table, p plan.Plan) *domain.Result {
	col := comparisonColumn(p)
	if p.Metric == "" {
		return domain.Failure("No metric in plan")
	}
	if !tbl.HasColumn(col) {
		return domain.Failure(fmt.Sprintf("Column '%s' not in data", col))
	}
	if !tbl.HasColumn(p.Metric) {
		return domain.Failure(fmt.Sprintf("Metric '%s' not found. Available: %s", p.Metric, pyList(tbl.Columns())))
	}

	groups := tbl.GroupBy(col)
	values := aggregateGroups(groups, p.Metric, p.Aggregation)
	data := make(domain.Series, len(groups))
	for i, g := range groups {
		data[i] = domain.Point{Key: g.KeyString(), Value: values[i]}
	}
	slices.SortStableFunc(data, func(x, y domain.Point) int {
		return compareFloat(x.Value, y.Value, p.Ascending())
	})
	if p.Limit > 0 && len(data) > p.Limit {
		data = data[:p.Limit]
	}

	res := &domain.Result{
		Success:        true,
		ComparisonData: data,
		GroupedData:    data,
		ComparisonType: col,
		Count:          len(data),
		Winner:         "N/A",
	}
	if len(data) > 0 {
		res.Winner = data[0].Key
		res.Value = data[0].Value
	}
	return res
}

func (e *Engine) standard(tbl *table.Table, p plan.Plan) *domain.Result {
	if p.Metric == "" {
		return domain.Failure("No metric in plan")
	}
	if !tbl.HasColumn(p.Metric) {
		return domain.Failure(fmt.Sprintf("'%s' not found. Available: %s", p.Metric, pyList(tbl.Columns())))
	}

	if p.GroupBy != "" && tbl.HasColumn(p.GroupBy) {
		groups := tbl.GroupBy(p.GroupBy)
		values := aggregateGroups(groups, p.Metric, p.Aggregation)
		trend := make(domain.Series, len(groups))
		for i, g := range groups {
			trend[i] = domain.Point{Key: g.KeyString(), Value: values[i]}
		}
		// Under growth the total is the sum of the raw values, not a growth
		// figure.
		total := sum(values)
		if p.Aggregation == plan.AggGrowth {
			total = sum(tbl.Floats(p.Metric))
		}
		return &domain.Result{
			Success:     true,
			Value:       total,
			TrendData:   trend,
			GroupedData: trend,
			Count:       len(trend),
		}
	}

	return &domain.Result{
		Success: true,
		Value:   scalar(tbl, p.Metric, p.Aggregation),
		Count:   tbl.Len(),
	}
}

func missingColumns(tbl *table.Table, cols []string) []string {
	var missing []string
	for _, c := range cols {
		if !tbl.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

func compareFloat(a, b float64, ascending bool) int {
	switch {
	case a < b:
		if ascending {
			return -1
		}
		return 1
	case a > b:
		if ascending {
			return 1
		}
		return -1
	}
	return 0
}

// pyList renders names the way error messages list them: ['a', 'b'].
func pyList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
