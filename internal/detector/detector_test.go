package detector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-analytics/internal/plan"
)

func TestExtractMetrics(t *testing.T) {
	d := Default()
	tests := []struct {
		query       string
		wantMetrics []string
		wantDataset string
	}{
		{"home loan", []string{"home_loan_amt"}, "loan"},
		{"loan", []string{"gold_loan_amt"}, "loan"},
		{"home loan amount", []string{"home_loan_amt"}, "loan"},
		{"Total UPI value in Pune", []string{"upi_value"}, "payment"},
		{"card amount vs wallet", []string{"card_txn_value", "wallet_txn_value"}, "payment"},
		{"UPI growing faster than card transactions", []string{"upi_volume", "card_txn_volume"}, "payment"},
		{"fixed deposits and fd", []string{"fd_deposit_amt"}, "loan"},
		{"churn and upi and credit score", []string{"customer_churn_rate_percent", "upi_volume", "avg_credit_score"}, "customer"},
		{"upi and npa", []string{"upi_volume", "npa_percent"}, "payment"},
		{"how are digital transfers doing", nil, "payment"},
		{"something unrelated", nil, "loan"},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			metrics, ds := d.ExtractMetrics(tc.query)
			assert.Equal(t, tc.wantMetrics, metrics)
			assert.Equal(t, tc.wantDataset, ds)
		})
	}
}

func TestExtractMetrics_GenericLoanNeverShadows(t *testing.T) {
	metrics, _ := Default().ExtractMetrics("home loan amount")
	assert.NotContains(t, metrics, "gold_loan_amt")
}

func TestExtractBranches(t *testing.T) {
	d := Default()
	assert.Equal(t, []string{"Mumbai", "Delhi", "Pune"}, d.ExtractBranches("pune vs DELHI vs Mumbai"))
	assert.Nil(t, d.ExtractBranches("gold loan across all branches in Mumbai"))
	assert.Nil(t, d.ExtractBranches("Punekar deposits"))
}

func TestExtractDateRange(t *testing.T) {
	d := Default()
	tests := []struct {
		query string
		want  *plan.DateFilter
	}{
		{"last 6 months", &plan.DateFilter{Type: "relative", N: 6, Unit: "month", Months: 6}},
		{"last 10 days", &plan.DateFilter{Type: "relative", N: 10, Unit: "day", Days: 10}},
		{"Last 2 weeks", &plan.DateFilter{Type: "relative", N: 2, Unit: "week", Days: 14}},
		{"last 1 year", &plan.DateFilter{Type: "relative", N: 1, Unit: "year", Years: 1}},
		{"UPI in Q3 of 2024", &plan.DateFilter{Type: "quarter", Quarter: 3, Year: 2024, QuarterMonths: []int{7, 8, 9}}},
		{"deposits June 2024", &plan.DateFilter{Type: "month", Month: 6, Year: 2024}},
		{"deposits in 2024", &plan.DateFilter{Type: "year", Year: 2024}},
		{"last 3 months of 2024", &plan.DateFilter{Type: "relative", N: 3, Unit: "month", Months: 3}},
		{"deposits", nil},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			assert.Equal(t, tc.want, d.ExtractDateRange(tc.query))
		})
	}
}

func TestClassifiers(t *testing.T) {
	d := Default()
	assert.True(t, d.IsComparisonQuery("Compare Mumbai and Delhi"))
	assert.True(t, d.IsComparisonQuery("which branch has the lowest NPA"))
	assert.False(t, d.IsComparisonQuery("total gold loan in 2024"))

	assert.True(t, d.IsCrossGrowthQuery("branches where UPI is outpacing cards"))
	assert.True(t, d.IsCrossGrowthQuery("UPI grows faster than wallet"))
	assert.False(t, d.IsCrossGrowthQuery("UPI growth in Pune"))

	assert.True(t, d.IsMultiMetricQuery("gold loan and home loan"))
	assert.False(t, d.IsMultiMetricQuery("gold loan and Pune"))
}

func TestBuildComparisonPlan(t *testing.T) {
	d := Default()

	t.Run("branch comparison", func(t *testing.T) {
		p := d.BuildPlan("Compare Mumbai Delhi Pune for UPI")
		assert.Equal(t, plan.ComparisonBranch, p.ComparisonType)
		assert.Equal(t, "payment", p.Dataset)
		assert.Equal(t, "upi_volume", p.Metric)
		assert.Equal(t, []string{"Mumbai", "Delhi", "Pune"}, p.BranchFilter())
		assert.Equal(t, "branch", p.ComparisonColumn)
		assert.Zero(t, p.Limit)
	})

	t.Run("multi metric superlative keeps every branch", func(t *testing.T) {
		p := d.BuildPlan("highest gold loan and home loan")
		assert.Equal(t, plan.ComparisonMultiMetric, p.ComparisonType)
		assert.Equal(t, []string{"gold_loan_amt", "home_loan_amt"}, p.Metrics)
		assert.Equal(t, "gold_loan_amt", p.Metric)
		assert.Zero(t, p.Limit)
		assert.Equal(t, plan.SortDescending, p.SortOrder)
	})

	t.Run("single metric superlative limits to winner", func(t *testing.T) {
		p := d.BuildPlan("which branch has the highest gold loan")
		assert.Equal(t, plan.ComparisonBranch, p.ComparisonType)
		assert.Equal(t, 1, p.Limit)
		assert.Equal(t, plan.SortDescending, p.SortOrder)
	})

	t.Run("lowest sorts ascending", func(t *testing.T) {
		p := d.BuildPlan("lowest fraud rate branch")
		assert.Equal(t, plan.SortAscending, p.SortOrder)
		assert.Equal(t, 1, p.Limit)
		assert.Equal(t, "fraud_rate_percent", p.Metric)
		assert.Equal(t, plan.AggMean, p.Aggregation)
	})

	t.Run("explicit top N wins", func(t *testing.T) {
		p := d.BuildPlan("top 3 branches by highest deposits")
		assert.Equal(t, 3, p.Limit)
		assert.Equal(t, plan.SortDescending, p.SortOrder)
	})

	t.Run("explicit bottom N", func(t *testing.T) {
		p := d.BuildPlan("bottom 2 branches for casa")
		assert.Equal(t, 2, p.Limit)
		assert.Equal(t, plan.SortAscending, p.SortOrder)
	})

	t.Run("multi metric with explicit top N", func(t *testing.T) {
		p := d.BuildPlan("top 5 branches by upi and card")
		assert.Equal(t, plan.ComparisonMultiMetric, p.ComparisonType)
		assert.Equal(t, 5, p.Limit)
	})

	t.Run("default metric for dataset", func(t *testing.T) {
		p := d.BuildPlan("rank branches by customer stats")
		assert.Equal(t, "customer", p.Dataset)
		assert.Equal(t, "active_customers", p.Metric)
	})
}

func TestBuildCrossGrowthPlan(t *testing.T) {
	d := Default()

	p := d.BuildPlan("UPI growing faster than card transactions")
	assert.Equal(t, plan.ComparisonCrossGrowth, p.ComparisonType)
	assert.Equal(t, "upi_volume", p.MetricA)
	assert.Equal(t, "card_txn_volume", p.MetricB)
	assert.Equal(t, []string{"upi_volume", "card_txn_volume"}, p.Metrics)
	assert.Equal(t, plan.AggGrowth, p.Aggregation)

	t.Run("synthesized second metric", func(t *testing.T) {
		p := d.BuildCrossGrowthPlan("where is home loan outpacing")
		assert.Equal(t, []string{"home_loan_amt", "gold_loan_amt"}, p.Metrics)

		p = d.BuildCrossGrowthPlan("gold loan outpacing")
		assert.Equal(t, []string{"gold_loan_amt", "fd_deposit_amt"}, p.Metrics)

		p = d.BuildCrossGrowthPlan("what is outpacing")
		assert.Equal(t, "gold_loan_amt", p.MetricA)
	})

	t.Run("truncated to two metrics", func(t *testing.T) {
		p := d.BuildCrossGrowthPlan("upi faster than card and wallet")
		assert.Equal(t, []string{"upi_volume", "card_txn_volume"}, p.Metrics)
	})
}

func TestBuildSimplePlan(t *testing.T) {
	d := Default()

	p := d.BuildPlan("total gold loan in Pune for 2024")
	assert.Empty(t, p.ComparisonType)
	assert.Equal(t, "gold_loan_amt", p.Metric)
	assert.Equal(t, plan.AggSum, p.Aggregation)
	assert.Equal(t, []string{"Pune"}, p.BranchFilter())
	assert.Equal(t, plan.InYear(2024), p.DateFilter)
	assert.Empty(t, p.GroupBy)

	p = d.BuildPlan("average credit score in Surat")
	assert.Equal(t, "customer", p.Dataset)
	assert.Equal(t, plan.AggMean, p.Aggregation)

	p = d.BuildPlan("monthly UPI volume")
	assert.Equal(t, "date", p.GroupBy)

	p = d.BuildPlan("gold loan trend for Mumbai")
	assert.Equal(t, "date", p.GroupBy)
	assert.Equal(t, plan.AggSum, p.Aggregation)
	assert.Equal(t, []string{"Mumbai"}, p.BranchFilter())

	p = d.BuildPlan("average credit score over time")
	assert.Equal(t, "date", p.GroupBy)
	assert.Equal(t, plan.AggMean, p.Aggregation)

	p = d.BuildPlan("gold loan growth in Pune")
	assert.Empty(t, p.GroupBy)
	assert.Equal(t, plan.AggGrowth, p.Aggregation)
}

func TestBuildPlan_IsNormalizeFixedPoint(t *testing.T) {
	d := Default()
	queries := []string{
		"Compare Mumbai Delhi Pune for UPI",
		"highest gold loan and home loan",
		"UPI growing faster than card transactions",
		"top 3 branches by deposits in Q2 2024",
		"lowest npa in last 6 months",
		"which branch has the best wallet amount",
		"home loan vs personal loan across branches March 2024",
		"total gold loan in Pune for 2024",
		"monthly UPI volume in Delhi last 2 weeks",
		"how many new customers",
		"random words",
		"",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			p := d.BuildPlan(q)
			assert.Equal(t, p, plan.Normalize(p.Raw()))
		})
	}
}

func TestNew_IsolatesVocabulary(t *testing.T) {
	v := DefaultVocabulary()
	d, err := New(v)
	require.NoError(t, err)

	v.Metrics[0].Column = "mutated"
	metrics, _ := d.ExtractMetrics("gold loan")
	assert.Equal(t, []string{"gold_loan_amt"}, metrics)
}

func TestNew_InvalidPattern(t *testing.T) {
	v := DefaultVocabulary()
	v.CrossGrowthPatterns = []string{"("}
	_, err := New(v)
	require.Error(t, err)
}

func TestLoadVocabulary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
metrics:
  - phrase: gl
    column: gold_loan_amt
    dataset: loan
  - phrase: pl
    column: personal_loan_amt
    dataset: loan
`), 0o600))

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	require.Len(t, v.Metrics, 2)
	assert.NotEmpty(t, v.ComparisonKeywords, "absent sections keep defaults")

	d, err := New(v)
	require.NoError(t, err)
	metrics, ds := d.ExtractMetrics("gl and pl")
	assert.Equal(t, []string{"gold_loan_amt", "personal_loan_amt"}, metrics)
	assert.Equal(t, "loan", ds)
}

func TestLoadVocabulary_RejectsUnknownColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
metrics:
  - phrase: gl
    column: gold
    dataset: loan
`), 0o600))

	_, err := LoadVocabulary(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no column")
}

func TestLoadVocabulary_MissingFile(t *testing.T) {
	_, err := LoadVocabulary(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
