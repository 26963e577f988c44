package engine

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/plan"
	"bank-analytics/internal/table"
)

func newTestEngine() *Engine {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// loanFixture has three branches over three months.
//
//	          gold (Jan, Feb, Mar)   home (Jan, Feb, Mar)
//	Mumbai    100 150 200            50  50  60
//	Delhi     200 180 160            10  20  40
//	Pune      0   40  80             30  30  30
func loanFixture() *table.Table {
	return table.MustNew(
		[]string{"date", "branch", "gold_loan_amt", "home_loan_amt", "npa_percent"},
		[][]any{
			{"2024-01-31", "Mumbai", 100, 50, 1.0},
			{"2024-01-31", "Delhi", 200, 10, 2.0},
			{"2024-01-31", "Pune", 0, 30, 3.0},
			{"2024-02-29", "Mumbai", 150, 50, 1.5},
			{"2024-02-29", "Delhi", 180, 20, 2.5},
			{"2024-02-29", "Pune", 40, 30, 3.5},
			{"2024-03-31", "Mumbai", 200, 60, 2.0},
			{"2024-03-31", "Delhi", 160, 40, 3.0},
			{"2024-03-31", "Pune", 80, 30, 4.0},
		},
	)
}

func TestExecute_EmptyAfterFilter(t *testing.T) {
	p := plan.Plan{
		Metric:      "gold_loan_amt",
		Aggregation: plan.AggSum,
		Filters:     map[string]plan.Filter{"branch": plan.InStrings("Atlantis")},
	}
	res := newTestEngine().Execute(loanFixture(), p)

	assert.False(t, res.Success)
	assert.Equal(t, domain.NoDataMessage, res.Error)
	assert.Zero(t, res.Value)
}

func TestExecute_NilTable(t *testing.T) {
	res := newTestEngine().Execute(nil, plan.Plan{Metric: "x"})
	assert.False(t, res.Success)
}

func TestApplyFilters_BranchInvariant(t *testing.T) {
	e := newTestEngine()
	branches := []string{"Mumbai", "Pune"}
	p := plan.Plan{Filters: map[string]plan.Filter{"branch": plan.InStrings(branches...)}, DateFilter: plan.Relative(1, plan.UnitMonth)}

	out := e.ApplyFilters(loanFixture(), p)
	require.False(t, out.Empty())
	for i := 0; i < out.Len(); i++ {
		assert.Contains(t, branches, out.Value(i, "branch"))
	}
}

func TestApplyFilters_Idempotent(t *testing.T) {
	e := newTestEngine()
	min := 1.5
	plans := []plan.Plan{
		{Filters: map[string]plan.Filter{"branch": plan.InStrings("Delhi", "Pune")}},
		{DateFilter: plan.Relative(1, plan.UnitMonth)},
		{DateFilter: plan.Relative(10, plan.UnitDay)},
		{DateFilter: plan.InQuarter(1, 2024), Filters: map[string]plan.Filter{"npa_percent": plan.Between(&min, nil)}},
		{DateFilter: plan.InMonth(2, 2024)},
	}
	for _, p := range plans {
		once := e.ApplyFilters(loanFixture(), p)
		twice := e.ApplyFilters(once, p)
		assert.Equal(t, once.Rows(), twice.Rows())
	}
}

func TestApplyFilters_DoesNotMutateBase(t *testing.T) {
	base := loanFixture()
	before := base.Rows()
	newTestEngine().ApplyFilters(base, plan.Plan{
		Filters:    map[string]plan.Filter{"branch": plan.InStrings("Pune")},
		DateFilter: plan.InYear(2024),
	})
	assert.Equal(t, before, base.Rows())
}

func TestApplyFilters_Shapes(t *testing.T) {
	e := newTestEngine()
	lo, hi := 2.0, 3.0
	tests := []struct {
		name string
		p    plan.Plan
		want int
	}{
		{"eq", plan.Plan{Filters: map[string]plan.Filter{"branch": plan.Eq("Delhi")}}, 3},
		{"range", plan.Plan{Filters: map[string]plan.Filter{"npa_percent": plan.Between(&lo, &hi)}}, 5},
		{"unknown column skipped", plan.Plan{Filters: map[string]plan.Filter{"region": plan.Eq("West")}}, 9},
		{"relative last 1 month", plan.Plan{DateFilter: plan.Relative(1, plan.UnitMonth)}, 6},
		{"relative last 2 weeks", plan.Plan{DateFilter: plan.Relative(2, plan.UnitWeek)}, 3},
		{"relative last 1 year", plan.Plan{DateFilter: plan.Relative(1, plan.UnitYear)}, 9},
		{"quarter", plan.Plan{DateFilter: plan.InQuarter(1, 2024)}, 9},
		{"other quarter", plan.Plan{DateFilter: plan.InQuarter(2, 2024)}, 0},
		{"month", plan.Plan{DateFilter: plan.InMonth(2, 2024)}, 3},
		{"month without month", plan.Plan{DateFilter: &plan.DateFilter{Type: plan.DateMonth, Year: 2024}}, 9},
		{"year", plan.Plan{DateFilter: plan.InYear(2023)}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.ApplyFilters(loanFixture(), tc.p).Len())
		})
	}
}

func TestApplyFilters_DropsUnparseableDates(t *testing.T) {
	tbl := table.MustNew([]string{"date", "v"}, [][]any{
		{"2024-05-01", 1},
		{"not a date", 2},
		{nil, 3},
		{time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), 4},
	})
	out := newTestEngine().ApplyFilters(tbl, plan.Plan{DateFilter: plan.InYear(2024)})
	assert.Equal(t, []float64{1, 4}, out.Floats("v"))
}

func TestSingleMetricComparison(t *testing.T) {
	e := newTestEngine()
	p := plan.Plan{
		Metric: "gold_loan_amt", Aggregation: plan.AggSum,
		ComparisonType: plan.ComparisonBranch, ComparisonColumn: "branch",
		SortOrder: plan.SortDescending,
	}

	res := e.Execute(loanFixture(), p)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"Delhi", "Mumbai", "Pune"}, res.ComparisonData.Keys())
	assert.Equal(t, "Delhi", res.Winner)
	assert.Equal(t, 540.0, res.Value)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, "branch", res.ComparisonType)

	p.SortOrder = plan.SortAscending
	p.Limit = 1
	res = e.Execute(loanFixture(), p)
	require.True(t, res.Success)
	assert.Equal(t, "Pune", res.Winner)
	assert.Equal(t, 120.0, res.Value)
	assert.Equal(t, 1, res.Count)
}

func TestSingleMetricComparison_Failures(t *testing.T) {
	e := newTestEngine()
	base := plan.Plan{ComparisonType: plan.ComparisonBranch, ComparisonColumn: "branch", Aggregation: plan.AggSum}

	p := base
	res := e.Execute(loanFixture(), p)
	assert.Equal(t, "No metric in plan", res.Error)

	p.Metric = "upi_volume"
	res = e.Execute(loanFixture(), p)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Metric 'upi_volume' not found")

	p.Metric = "gold_loan_amt"
	p.ComparisonColumn = "region"
	res = e.Execute(loanFixture(), p)
	assert.Equal(t, "Column 'region' not in data", res.Error)
}

func TestMultiMetricComparison(t *testing.T) {
	p := plan.Plan{
		Metric: "gold_loan_amt", Metrics: []string{"gold_loan_amt", "home_loan_amt"},
		Aggregation: plan.AggSum, ComparisonType: plan.ComparisonMultiMetric, ComparisonColumn: "branch",
		SortOrder: plan.SortDescending,
	}
	res := newTestEngine().Execute(loanFixture(), p)
	require.True(t, res.Success, res.Error)

	require.Len(t, res.MultiMetricComparison, 3)
	assert.Equal(t, "Delhi", res.Winner)
	assert.Equal(t, 610.0, res.Value)
	assert.Equal(t, domain.MetricRow{
		Group:  "Mumbai",
		Values: map[string]float64{"gold_loan_amt": 450, "home_loan_amt": 160},
		Total:  610,
	}, res.MultiMetricComparison[1])
	assert.Equal(t, []string{"Delhi", "Mumbai", "Pune"}, res.ComparisonData.Keys())
	assert.Equal(t, 90.0, res.MetricBreakdown["home_loan_amt"]["Pune"])
	assert.Equal(t, []string{"gold_loan_amt", "home_loan_amt"}, res.Metrics)
	assert.Equal(t, 3, res.Count)
}

func TestMultiMetricComparison_Failures(t *testing.T) {
	e := newTestEngine()
	p := plan.Plan{ComparisonType: plan.ComparisonMultiMetric, ComparisonColumn: "branch"}

	assert.Equal(t, "No metrics specified", e.Execute(loanFixture(), p).Error)

	p.Metrics = []string{"gold_loan_amt", "upi_volume"}
	res := e.Execute(loanFixture(), p)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Columns not found: ['upi_volume']")
}

func TestCrossGrowth(t *testing.T) {
	p := plan.Plan{
		Metrics: []string{"gold_loan_amt", "home_loan_amt"},
		MetricA: "gold_loan_amt", MetricB: "home_loan_amt",
		Aggregation: plan.AggGrowth, ComparisonType: plan.ComparisonCrossGrowth, ComparisonColumn: "branch",
	}
	res := newTestEngine().Execute(loanFixture(), p)
	require.True(t, res.Success, res.Error)

	// Mumbai: gold +100%, home +20%. Delhi: gold -20%, home +300%.
	// Pune: gold starts at 0 so growth is 0, home flat at 0.
	require.Len(t, res.CrossGrowthData, 3)
	assert.Equal(t, domain.GrowthRow{Group: "Delhi", GrowthA: -20, GrowthB: 300, Diff: -320, Faster: false}, res.CrossGrowthData[0])
	assert.Equal(t, domain.GrowthRow{Group: "Mumbai", GrowthA: 100, GrowthB: 20, Diff: 80, Faster: true}, res.CrossGrowthData[1])

	require.Len(t, res.QualifyingBranches, 1)
	assert.Equal(t, "Mumbai", res.Winner)
	assert.Equal(t, 1.0, res.Value)
	assert.Equal(t, "1 branch(es) where gold loan amt grows faster than home loan amt: Mumbai", res.Summary)
	assert.Equal(t, []string{"Mumbai", "Pune", "Delhi"}, res.ComparisonData.Keys())
	assert.Equal(t, 300.0, res.MetricBreakdown["home_loan_amt"]["Delhi"])
}

func TestCrossGrowth_NoneQualify(t *testing.T) {
	p := plan.Plan{
		MetricA: "home_loan_amt", MetricB: "home_loan_amt",
		ComparisonType: plan.ComparisonCrossGrowth, ComparisonColumn: "branch",
	}
	res := newTestEngine().Execute(loanFixture(), p)
	require.True(t, res.Success)
	assert.Equal(t, "N/A", res.Winner)
	assert.Empty(t, res.QualifyingBranches)
	assert.Equal(t, "No branches where home loan amt grows faster than home loan amt", res.Summary)
}

func TestCrossGrowth_Failures(t *testing.T) {
	e := newTestEngine()
	p := plan.Plan{ComparisonType: plan.ComparisonCrossGrowth, MetricA: "gold_loan_amt"}
	assert.Equal(t, "cross_metric_growth needs metric_a and metric_b", e.Execute(loanFixture(), p).Error)

	p.MetricB = "card_txn_volume"
	assert.Equal(t, "Columns not found: ['card_txn_volume']", e.Execute(loanFixture(), p).Error)
}

func TestStandard_Scalar(t *testing.T) {
	e := newTestEngine()
	tests := []struct {
		agg  string
		want float64
	}{
		{plan.AggSum, 1110},
		{plan.AggMean, 1110.0 / 9},
		{plan.AggAvg, 1110.0 / 9},
		{plan.AggCount, 9},
		{plan.AggMin, 0},
		{plan.AggMax, 200},
		{plan.AggMedian, 150},
		{"unknown", 1110},
		// First row 100, last row 80.
		{plan.AggGrowth, -20},
	}
	for _, tc := range tests {
		t.Run(tc.agg, func(t *testing.T) {
			res := e.Execute(loanFixture(), plan.Plan{Metric: "gold_loan_amt", Aggregation: tc.agg})
			require.True(t, res.Success, res.Error)
			assert.InDelta(t, tc.want, res.Value, 1e-9)
			assert.Equal(t, 9, res.Count)
		})
	}
}

func TestStandard_GroupedByDate(t *testing.T) {
	e := newTestEngine()
	p := plan.Plan{Metric: "gold_loan_amt", Aggregation: plan.AggSum, GroupBy: "date"}

	res := e.Execute(loanFixture(), p)
	require.True(t, res.Success)
	assert.Equal(t, domain.Series{
		{Key: "2024-01-31", Value: 300},
		{Key: "2024-02-29", Value: 370},
		{Key: "2024-03-31", Value: 440},
	}, res.TrendData)
	assert.Equal(t, 1110.0, res.Value)
	assert.Equal(t, 3, res.Count)

	p.Aggregation = plan.AggGrowth
	res = e.Execute(loanFixture(), p)
	require.True(t, res.Success)
	assert.InDelta(t, 0, res.TrendData[0].Value, 1e-9)
	assert.InDelta(t, 70.0/300*100, res.TrendData[1].Value, 1e-9)
	// The grand total under growth is the raw sum, not a growth figure.
	assert.Equal(t, 1110.0, res.Value)
}

func TestStandard_GroupByUnknownColumnIsScalar(t *testing.T) {
	res := newTestEngine().Execute(loanFixture(), plan.Plan{Metric: "gold_loan_amt", Aggregation: plan.AggSum, GroupBy: "region"})
	require.True(t, res.Success)
	assert.Nil(t, res.TrendData)
	assert.Equal(t, 1110.0, res.Value)
}

func TestStandard_Failures(t *testing.T) {
	e := newTestEngine()
	assert.Equal(t, "No metric in plan", e.Execute(loanFixture(), plan.Plan{}).Error)
	res := e.Execute(loanFixture(), plan.Plan{Metric: "upi_volume"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "'upi_volume' not found. Available: ['date', 'branch'")
}

func TestGrowth(t *testing.T) {
	assert.Equal(t, 50.0, Growth([]float64{100, 150}))
	assert.Equal(t, 0.0, Growth([]float64{0, 150}))
	assert.Equal(t, 0.0, Growth([]float64{100}))
	assert.Equal(t, 0.0, Growth(nil))
}

func TestAggregateGroups_Growth(t *testing.T) {
	groups := table.MustNew([]string{"k", "v"}, [][]any{{"a", 100}, {"b", 150}, {"c", 0}, {"d", 10}}).GroupBy("k")
	assert.Equal(t, []float64{0, 50, -100, 0}, aggregateGroups(groups, "v", plan.AggGrowth))

	single := table.MustNew([]string{"k", "v"}, [][]any{{"a", 100}, {"a", 20}}).GroupBy("k")
	assert.Equal(t, []float64{120}, aggregateGroups(single, "v", plan.AggGrowth))
}

func TestAddMonths_Clamps(t *testing.T) {
	mar31 := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), addMonths(mar31, -1))
	assert.Equal(t, time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC), addMonths(mar31, -12))
}
