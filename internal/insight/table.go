package insight

import (
	"fmt"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/plan"
)

// Table flattens a successful result into a header row and data rows.
func Table(res *domain.Result, p plan.Plan) ([]string, [][]string) {
	switch {
	case res.CrossGrowthData != nil && len(res.Metrics) >= 2:
		a, b := Label(res.Metrics[0]), Label(res.Metrics[1])
		rows := make([][]string, 0, len(res.CrossGrowthData))
		for _, g := range res.CrossGrowthData {
			faster := "no"
			if g.Faster {
				faster = "yes"
			}
			rows = append(rows, []string{
				g.Group,
				fmt.Sprintf("%+.1f%%", g.GrowthA),
				fmt.Sprintf("%+.1f%%", g.GrowthB),
				fmt.Sprintf("%.1f", g.Diff),
				faster,
			})
		}
		return []string{"Branch", a + " growth", b + " growth", "Gap (pts)", "Faster"}, rows

	case res.MultiMetricComparison != nil:
		headers := []string{"Branch"}
		for _, m := range res.Metrics {
			headers = append(headers, Label(m))
		}
		headers = append(headers, "Total")
		rows := make([][]string, 0, len(res.MultiMetricComparison))
		for _, mr := range res.MultiMetricComparison {
			row := []string{mr.Group}
			for _, m := range res.Metrics {
				row = append(row, FormatNumber(mr.Values[m]))
			}
			rows = append(rows, append(row, FormatNumber(mr.Total)))
		}
		return headers, rows

	case res.ComparisonData != nil:
		return []string{"Branch", metricHeader(p)}, seriesRows(res.ComparisonData)

	case res.GroupedData != nil:
		return []string{"Branch", metricHeader(p)}, seriesRows(res.GroupedData)

	case res.TrendData != nil:
		return []string{Label(p.GroupBy), metricHeader(p)}, seriesRows(res.TrendData)
	}
	return []string{"Metric", "Value"}, [][]string{{metricHeader(p), FormatNumber(res.Value)}}
}

func metricHeader(p plan.Plan) string {
	if p.Metric == "" {
		return "Value"
	}
	return Label(p.Metric)
}

func seriesRows(s domain.Series) [][]string {
	rows := make([][]string, 0, len(s))
	for _, pt := range s {
		rows = append(rows, []string{pt.Key, FormatNumber(pt.Value)})
	}
	return rows
}
