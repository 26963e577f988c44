package plan

import (
	"slices"

	"bank-analytics/internal/domain"
)

// Normalize converts a loosely-typed plan bag into the canonical Plan. It is
// pure and total: unknown keys are ignored, missing keys take defaults and
// values of the wrong type are treated as absent.
//
// The plan type is read from "type", "comparison_type" or "plan_type", in that
// order. Comparison fields are only set for the three comparison types; every
// other type executes as a standard aggregate. A branch_comparison carrying
// two or more metrics is upgraded to multi_metric_branch_comparison.
func Normalize(raw Raw) Plan {
	if raw == nil {
		raw = Raw{}
	}

	planType := TypeSimple
	for _, key := range []string{"type", "comparison_type", "plan_type"} {
		if s := raw.String(key); s != "" {
			planType = s
			break
		}
	}

	rawFilters := raw.Map("filters")
	metrics := raw.Strings("metrics")
	metric := raw.String("metric")
	if metric == "" && len(metrics) > 0 {
		metric = metrics[0]
	}

	p := Plan{
		Dataset:     raw.String("dataset"),
		Metric:      metric,
		Aggregation: raw.String("aggregation"),
		Filters:     normalizeFilters(raw, rawFilters),
		GroupBy:     raw.String("group_by"),
		SortOrder:   raw.String("sort_order"),
	}
	if p.Dataset == "" {
		p.Dataset = domain.DatasetLoan
		if ds, ok := domain.DatasetForColumn(metric); ok {
			p.Dataset = ds
		}
	}
	if p.Aggregation == "" {
		p.Aggregation = AggSum
	}
	if p.SortOrder == "" {
		p.SortOrder = SortDescending
	}
	if n, ok := raw.Int("limit"); ok && n > 0 {
		p.Limit = n
	}
	p.DateFilter = normalizeDateFilter(raw, rawFilters)

	if IsComparison(planType) {
		p.ComparisonType = planType
		p.ComparisonColumn = raw.String("comparison_column")
		if p.ComparisonColumn == "" {
			p.ComparisonColumn = domain.ColumnBranch
		}
	}

	switch {
	case planType == ComparisonMultiMetric && len(metrics) > 0:
		p.Metrics = slices.Clone(metrics)
	case planType == ComparisonBranch && len(metrics) >= 2:
		p.ComparisonType = ComparisonMultiMetric
		p.Metrics = slices.Clone(metrics)
	}

	if planType == ComparisonCrossGrowth {
		p.MetricA = raw.String("metric_a")
		if p.MetricA == "" {
			p.MetricA = metric
			if len(metrics) > 0 {
				p.MetricA = metrics[0]
			}
		}
		p.MetricB = raw.String("metric_b")
		if p.MetricB == "" && len(metrics) > 1 {
			p.MetricB = metrics[1]
		}
		p.Metrics = []string{p.MetricA, p.MetricB}
	}

	if planType == TypeTrend && p.GroupBy == "" {
		p.GroupBy = domain.ColumnDate
	}
	return p
}

func normalizeFilters(raw, rawFilters Raw) map[string]Filter {
	out := map[string]Filter{}

	var branches []string
	for _, v := range []any{rawFilters["branch"], raw["branch_filter"], raw["branches"]} {
		if truthy(v) {
			branches = toStrings(v)
			break
		}
	}
	if len(branches) > 0 {
		names := make([]string, len(branches))
		for i, b := range branches {
			names[i] = Capitalize(b)
		}
		out[domain.ColumnBranch] = InStrings(names...)
	}

	for col, v := range rawFilters {
		if col == domain.ColumnBranch || col == "date_filter" {
			continue
		}
		if f, ok := filterFromRaw(v); ok {
			out[col] = f
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeDateFilter(raw, rawFilters Raw) *DateFilter {
	for _, v := range []any{rawFilters["date_filter"], raw["date_filter"], raw["time_filter"]} {
		if !truthy(v) {
			continue
		}
		var bag Raw
		switch m := v.(type) {
		case Raw:
			bag = m
		case map[string]any:
			bag = Raw(m)
		default:
			continue
		}
		if df, ok := dateFilterFromRaw(bag); ok {
			return df
		}
		return nil
	}
	return nil
}
