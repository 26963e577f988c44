package domain

// NoDataMessage is the failure message returned when filtering removes every row.
const NoDataMessage = "No data matches the filters. Check branch names or date range."

// Point is one entry of an ordered key/value series.
type Point struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Series is an ordered key/value series. Order is meaningful: for comparisons
// it is the ranking, for trends it is the group key order.
type Series []Point

// Keys returns the series keys in order.
func (s Series) Keys() []string {
	keys := make([]string, len(s))
	for i, p := range s {
		keys[i] = p.Key
	}
	return keys
}

// Lookup returns the value stored under key.
func (s Series) Lookup(key string) (float64, bool) {
	for _, p := range s {
		if p.Key == key {
			return p.Value, true
		}
	}
	return 0, false
}

// MetricRow is one ranked group of a multi-metric comparison.
type MetricRow struct {
	Group  string             `json:"group"`
	Values map[string]float64 `json:"values"`
	Total  float64            `json:"total"`
}

// GrowthRow is one group of a cross-metric growth comparison.
type GrowthRow struct {
	Group   string  `json:"group"`
	GrowthA float64 `json:"growth_a"`
	GrowthB float64 `json:"growth_b"`
	Diff    float64 `json:"growth_diff"`
	Faster  bool    `json:"faster"`
}

// Result is the outcome of executing a plan. On failure only Success, Error
// and (for the empty-filter case) Value are meaningful.
type Result struct {
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Value   float64 `json:"value"`
	Count   int     `json:"count,omitempty"`

	// Comparison shapes.
	Winner         string `json:"winner,omitempty"`
	ComparisonType string `json:"comparison_type,omitempty"`
	ComparisonData Series `json:"comparison_data,omitempty"`
	GroupedData    Series `json:"grouped_data,omitempty"`

	// Standard path grouped by a dimension.
	TrendData Series `json:"trend_data,omitempty"`

	// Multi-metric comparison.
	MultiMetricComparison []MetricRow                   `json:"multi_metric_comparison,omitempty"`
	MetricBreakdown       map[string]map[string]float64 `json:"metric_breakdown,omitempty"`
	Metrics               []string                      `json:"metrics,omitempty"`

	// Cross-metric growth comparison.
	CrossGrowthData    []GrowthRow `json:"cross_growth_data,omitempty"`
	QualifyingBranches []GrowthRow `json:"qualifying_branches,omitempty"`
	Summary            string      `json:"summary,omitempty"`
}

// Failure builds a failed Result carrying message.
func Failure(message string) *Result {
	return &Result{Success: false, Error: message}
}
