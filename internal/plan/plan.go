// Package plan holds the execution plan consumed by the analytics engine and
// the normalizer that converts loosely-typed plan bags into it.
package plan

// Comparison types understood by the engine.
const (
	ComparisonBranch      = "branch_comparison"
	ComparisonMultiMetric = "multi_metric_branch_comparison"
	ComparisonCrossGrowth = "cross_metric_growth_comparison"
)

// Plan types that do not select a comparison strategy.
const (
	TypeSimple = "simple"
	TypeTrend  = "trend"
)

// Aggregations.
const (
	AggSum    = "sum"
	AggMean   = "mean"
	AggAvg    = "avg"
	AggCount  = "count"
	AggMin    = "min"
	AggMax    = "max"
	AggMedian = "median"
	AggGrowth = "growth"
)

// Sort orders.
const (
	SortAscending  = "ascending"
	SortDescending = "descending"
)

// IsComparison reports whether t selects one of the comparison strategies.
func IsComparison(t string) bool {
	switch t {
	case ComparisonBranch, ComparisonMultiMetric, ComparisonCrossGrowth:
		return true
	}
	return false
}

// Plan is the canonical execution plan. It is never mutated after creation.
type Plan struct {
	Dataset          string            `json:"dataset"`
	Metric           string            `json:"metric,omitempty"`
	Metrics          []string          `json:"metrics,omitempty"`
	MetricA          string            `json:"metric_a,omitempty"`
	MetricB          string            `json:"metric_b,omitempty"`
	Aggregation      string            `json:"aggregation"`
	Filters          map[string]Filter `json:"filters,omitempty"`
	DateFilter       *DateFilter       `json:"date_filter,omitempty"`
	GroupBy          string            `json:"group_by,omitempty"`
	ComparisonType   string            `json:"comparison_type,omitempty"`
	ComparisonColumn string            `json:"comparison_column,omitempty"`
	SortOrder        string            `json:"sort_order"`
	// Limit is the top/bottom-N cutoff; zero means no cutoff.
	Limit int `json:"limit,omitempty"`
}

// Ascending reports whether ranking is ascending.
func (p Plan) Ascending() bool {
	return p.SortOrder == SortAscending
}

// BranchFilter returns the branch names the plan filters on, if any.
func (p Plan) BranchFilter() []string {
	f, ok := p.Filters["branch"]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(f.Values))
	for _, v := range f.Values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Raw converts the plan back into the loosely-typed bag shape. Normalizing
// the result yields a plan equal to p.
func (p Plan) Raw() Raw {
	r := Raw{
		"dataset":     p.Dataset,
		"aggregation": p.Aggregation,
		"sort_order":  p.SortOrder,
	}
	if p.Metric != "" {
		r["metric"] = p.Metric
	}
	if len(p.Metrics) > 0 {
		metrics := make([]any, len(p.Metrics))
		for i, m := range p.Metrics {
			metrics[i] = m
		}
		r["metrics"] = metrics
	}
	if p.MetricA != "" {
		r["metric_a"] = p.MetricA
	}
	if p.MetricB != "" {
		r["metric_b"] = p.MetricB
	}
	filters := Raw{}
	for col, f := range p.Filters {
		filters[col] = f.Raw()
	}
	r["filters"] = filters
	if p.DateFilter != nil {
		r["date_filter"] = p.DateFilter.Raw()
	}
	if p.GroupBy != "" {
		r["group_by"] = p.GroupBy
	}
	if p.ComparisonType != "" {
		r["comparison_type"] = p.ComparisonType
		r["comparison_column"] = p.ComparisonColumn
	}
	if p.Limit > 0 {
		r["limit"] = p.Limit
	}
	return r
}
