package insight

import (
	"strings"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/plan"
)

// Chart kinds.
const (
	ChartBar        = "bar"
	ChartGroupedBar = "grouped_bar"
	ChartLine       = "line"
	ChartIndicator  = "indicator"
)

// ChartSeries is one named trace.
type ChartSeries struct {
	Name   string        `json:"name"`
	Points domain.Series `json:"points"`
}

// ChartSpec describes how a result would best be drawn. Rendering is left to
// the client.
type ChartSpec struct {
	Type      string        `json:"type"`
	Title     string        `json:"title"`
	Subtitle  string        `json:"subtitle,omitempty"`
	XLabel    string        `json:"x_label,omitempty"`
	YLabel    string        `json:"y_label,omitempty"`
	Highlight []string      `json:"highlight,omitempty"`
	Series    []ChartSeries `json:"series"`
}

// SuggestChart picks a chart for res, or nil for a failed result.
func SuggestChart(res *domain.Result, p plan.Plan) *ChartSpec {
	if res == nil || !res.Success {
		return nil
	}
	switch {
	case res.CrossGrowthData != nil && len(res.Metrics) >= 2:
		return crossGrowthChart(res)
	case res.MultiMetricComparison != nil:
		return multiMetricChart(res)
	case res.ComparisonData != nil:
		return comparisonChart(res, p)
	case res.TrendData != nil:
		label := metricLabel(p)
		return &ChartSpec{
			Type:   ChartLine,
			Title:  label + " over time",
			XLabel: Label(p.GroupBy),
			YLabel: label,
			Series: []ChartSeries{{Name: label, Points: res.TrendData}},
		}
	}
	label := metricLabel(p)
	return &ChartSpec{
		Type:   ChartIndicator,
		Title:  label,
		Series: []ChartSeries{{Name: label, Points: domain.Series{{Key: label, Value: res.Value}}}},
	}
}

func metricLabel(p plan.Plan) string {
	if l := Label(p.Metric); l != "" {
		return l
	}
	return "Value"
}

func comparisonChart(res *domain.Result, p plan.Plan) *ChartSpec {
	label := metricLabel(p)
	spec := &ChartSpec{
		Type:   ChartBar,
		Title:  label + " by Branch",
		XLabel: "Branch",
		YLabel: label,
		Series: []ChartSeries{{Name: label, Points: res.ComparisonData}},
	}
	if res.Winner != "" && res.Winner != "N/A" {
		spec.Subtitle = "Winner: " + res.Winner
		spec.Highlight = []string{res.Winner}
	}
	return spec
}

func multiMetricChart(res *domain.Result) *ChartSpec {
	spec := &ChartSpec{Type: ChartGroupedBar, XLabel: "Branch", YLabel: "Value"}
	var title []string
	for _, m := range res.Metrics {
		pts := make(domain.Series, len(res.MultiMetricComparison))
		for i, r := range res.MultiMetricComparison {
			pts[i] = domain.Point{Key: r.Group, Value: r.Values[m]}
		}
		spec.Series = append(spec.Series, ChartSeries{Name: Label(m), Points: pts})
		title = append(title, Label(m))
	}
	spec.Title = strings.Join(title, " & ") + " by Branch"
	if res.Winner != "" && res.Winner != "N/A" {
		spec.Subtitle = "Winner: " + res.Winner
		spec.Highlight = []string{res.Winner}
	}
	return spec
}

func crossGrowthChart(res *domain.Result) *ChartSpec {
	a, b := res.Metrics[0], res.Metrics[1]
	ga := make(domain.Series, len(res.CrossGrowthData))
	gb := make(domain.Series, len(res.CrossGrowthData))
	for i, r := range res.CrossGrowthData {
		ga[i] = domain.Point{Key: r.Group, Value: r.GrowthA}
		gb[i] = domain.Point{Key: r.Group, Value: r.GrowthB}
	}
	highlight := make([]string, len(res.QualifyingBranches))
	for i, r := range res.QualifyingBranches {
		highlight[i] = r.Group
	}
	return &ChartSpec{
		Type:      ChartGroupedBar,
		Title:     Label(a) + " vs " + Label(b) + " Growth",
		Subtitle:  res.Summary,
		XLabel:    "Branch",
		YLabel:    "Growth (%)",
		Highlight: highlight,
		Series: []ChartSeries{
			{Name: Label(a) + " Growth %", Points: ga},
			{Name: Label(b) + " Growth %", Points: gb},
		},
	}
}
