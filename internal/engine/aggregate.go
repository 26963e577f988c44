package engine

import (
	"math"
	"slices"

	"bank-analytics/internal/plan"
	"bank-analytics/internal/table"
)

// reduce applies a non-growth aggregation to the non-null values of a column.
// Empty input reduces to 0 so results stay JSON-encodable.
func reduce(values []float64, agg string) float64 {
	if len(values) == 0 {
		return 0
	}
	switch agg {
	case plan.AggMean, plan.AggAvg:
		return sum(values) / float64(len(values))
	case plan.AggCount:
		return float64(len(values))
	case plan.AggMin:
		return slices.Min(values)
	case plan.AggMax:
		return slices.Max(values)
	case plan.AggMedian:
		return median(values)
	default:
		return sum(values)
	}
}

// aggregateGroups reduces metric within each group. For growth, each group
// is summed and then expressed as the percent change from the previous
// group; the first group is 0 and a lone group keeps its raw sum.
func aggregateGroups(groups []table.Group, metric, agg string) []float64 {
	out := make([]float64, len(groups))
	if agg != plan.AggGrowth {
		for i, g := range groups {
			out[i] = reduce(g.Table.Floats(metric), agg)
		}
		return out
	}

	sums := make([]float64, len(groups))
	for i, g := range groups {
		sums[i] = sum(g.Table.Floats(metric))
	}
	if len(sums) <= 1 {
		return sums
	}
	for i := 1; i < len(sums); i++ {
		out[i] = pctChange(sums[i-1], sums[i])
	}
	return out
}

// scalar reduces a whole column to one number. Growth compares the first and
// last rows: (last-first)/first*100, or 0 with fewer than two rows, a null
// endpoint or a zero first value.
func scalar(tbl *table.Table, metric, agg string) float64 {
	if agg != plan.AggGrowth {
		return reduce(tbl.Floats(metric), agg)
	}
	n := tbl.Len()
	if n < 2 {
		return 0
	}
	first, okFirst := table.AsFloat(tbl.Value(0, metric))
	last, okLast := table.AsFloat(tbl.Value(n-1, metric))
	if !okFirst || !okLast {
		return 0
	}
	return pctChange(first, last)
}

// Growth is the simple growth of a series: (last-first)/first*100 over its
// values, 0 with fewer than two values or a zero first value.
func Growth(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return pctChange(values[0], values[len(values)-1])
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func median(values []float64) float64 {
	s := slices.Clone(values)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
