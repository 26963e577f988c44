// Package insight turns an engine Result into a short plain-text summary and
// a chart suggestion for whatever front-end renders it.
package insight

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"bank-analytics/internal/domain"
	"bank-analytics/internal/plan"
	"bank-analytics/internal/table"
)

// Generate summarizes a successful result. Failed results produce their error
// message.
func Generate(res *domain.Result, p plan.Plan) string {
	if res == nil {
		return ""
	}
	if !res.Success {
		return res.Error
	}
	switch {
	case res.CrossGrowthData != nil:
		return crossGrowth(res)
	case res.MultiMetricComparison != nil:
		return multiMetric(res)
	}

	label := Label(p.Metric)
	if label == "" {
		label = "Value"
	}
	lines := []string{fmt.Sprintf("%s: %s", label, FormatNumber(res.Value))}

	switch {
	case res.ComparisonData != nil:
		lines = append(lines, comparison(res, p)...)
	case res.TrendData != nil:
		if s := trend(res.TrendData, label); s != "" {
			lines = append(lines, s)
		}
	}
	if f := DescribeFilters(p); f != "" {
		lines = append(lines, "Filters: "+f)
	}
	lines = append(lines, fmt.Sprintf("Records analysed: %d", res.Count))
	return strings.Join(lines, "\n")
}

func comparison(res *domain.Result, p plan.Plan) []string {
	data := res.ComparisonData
	if len(data) == 0 {
		return nil
	}
	var lines []string
	if res.Winner != "" && res.Winner != "N/A" {
		lines = append(lines, fmt.Sprintf("Winner: %s with %s", res.Winner, FormatNumber(res.Value)))
	}
	// A single requested winner gets no ranking detail.
	if p.Limit == 1 {
		return lines
	}

	shown, heading := data, "Results"
	if len(data) > 3 {
		shown, heading = data[:3], "Top 3"
	}
	parts := make([]string, len(shown))
	for i, pt := range shown {
		parts[i] = fmt.Sprintf("%s (%s)", pt.Key, FormatNumber(pt.Value))
	}
	lines = append(lines, heading+": "+strings.Join(parts, ", "))

	if len(data) >= 2 {
		values := make([]float64, len(data))
		for i, pt := range data {
			values[i] = pt.Value
		}
		lines = append(lines, rangeLine(values))
	}
	return lines
}

func multiMetric(res *domain.Result) string {
	rows := res.MultiMetricComparison
	var lines []string

	if res.Winner != "" && res.Winner != "N/A" {
		labels := make([]string, len(res.Metrics))
		for i, m := range res.Metrics {
			labels[i] = Label(m)
		}
		lines = append(lines, fmt.Sprintf("Winner: %s with %s combined (%s)",
			res.Winner, FormatNumber(res.Value), strings.Join(labels, " + ")))

		lines = append(lines, "Metric breakdown:")
		for _, m := range res.Metrics {
			if v, ok := res.MetricBreakdown[m][res.Winner]; ok {
				lines = append(lines, fmt.Sprintf("  - %s: %s", Label(m), FormatNumber(v)))
			}
		}
	}

	if len(rows) >= 3 {
		lines = append(lines, "Top 3 branches:")
		for i, r := range rows[:3] {
			lines = append(lines, fmt.Sprintf("  %d. %s: %s total", i+1, r.Group, FormatNumber(r.Total)))
			for _, m := range res.Metrics {
				lines = append(lines, fmt.Sprintf("     %s: %s", truncate(Label(m), 15), FormatNumber(r.Values[m])))
			}
		}
	} else if len(rows) > 0 {
		lines = append(lines, "All branches:")
		for _, r := range rows {
			lines = append(lines, fmt.Sprintf("  - %s: %s total", r.Group, FormatNumber(r.Total)))
		}
	}

	if len(rows) >= 2 {
		totals := make([]float64, len(rows))
		for i, r := range rows {
			totals[i] = r.Total
		}
		lines = append(lines, rangeLine(totals))
	}
	return strings.Join(lines, "\n")
}

func crossGrowth(res *domain.Result) string {
	lines := []string{res.Summary}
	if len(res.Metrics) < 2 {
		return res.Summary
	}
	a, b := Label(res.Metrics[0]), Label(res.Metrics[1])
	for _, r := range res.QualifyingBranches {
		lines = append(lines, fmt.Sprintf("  - %s: %s %+.1f%% vs %s %+.1f%% (gap %.1f pts)",
			r.Group, a, r.GrowthA, b, r.GrowthB, r.Diff))
	}
	lines = append(lines, fmt.Sprintf("Branches compared: %d", res.Count))
	return strings.Join(lines, "\n")
}

func trend(data domain.Series, label string) string {
	if len(data) < 2 {
		return ""
	}
	first, last := data[0].Value, data[len(data)-1].Value

	var s string
	switch {
	case last > first:
		s = fmt.Sprintf("Trending up: %s increased by %.1f%% over the period", label, math.Abs(pctOf(last-first, first)))
	case last < first:
		s = fmt.Sprintf("Trending down: %s decreased by %.1f%% over the period", label, math.Abs(pctOf(first-last, first)))
	default:
		s = fmt.Sprintf("Stable: %s remained relatively stable", label)
	}

	if len(data) > 5 {
		hi, lo := 0, 0
		for i, pt := range data {
			if pt.Value > data[hi].Value {
				hi = i
			}
			if pt.Value < data[lo].Value {
				lo = i
			}
		}
		s += fmt.Sprintf("\n  Peak: %s at %s", FormatNumber(data[hi].Value), data[hi].Key)
		s += fmt.Sprintf("\n  Lowest: %s at %s", FormatNumber(data[lo].Value), data[lo].Key)
	}
	return s
}

func rangeLine(values []float64) string {
	hi, lo := slices.Max(values), slices.Min(values)
	return fmt.Sprintf("Range: %.1f%% difference between highest and lowest", pctOf(hi-lo, lo))
}

// pctOf returns num/den as a percentage, or 0 when den is 0.
func pctOf(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}

// DescribeFilters renders the plan's column and date filters.
func DescribeFilters(p plan.Plan) string {
	cols := make([]string, 0, len(p.Filters))
	for c := range p.Filters {
		cols = append(cols, c)
	}
	slices.Sort(cols)

	var parts []string
	for _, c := range cols {
		f := p.Filters[c]
		name := Label(c)
		switch f.Op {
		case plan.OpIn:
			vals := make([]string, len(f.Values))
			for i, v := range f.Values {
				vals[i] = table.FormatCell(v)
			}
			parts = append(parts, fmt.Sprintf("%s in %s", name, strings.Join(vals, ", ")))
		case plan.OpRange:
			parts = append(parts, fmt.Sprintf("%s between %s and %s", name, bound(f.Min), bound(f.Max)))
		default:
			parts = append(parts, fmt.Sprintf("%s = %s", name, table.FormatCell(f.Value)))
		}
	}
	if d := DescribeDate(p.DateFilter); d != "" {
		parts = append(parts, "Date "+d)
	}
	return strings.Join(parts, ", ")
}

func bound(f *float64) string {
	if f == nil {
		return "any"
	}
	return FormatNumber(*f)
}

var monthNames = [...]string{"", "January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December"}

// DescribeDate renders a date filter, e.g. "in Q1 2024" or "in the last 3 months".
func DescribeDate(df *plan.DateFilter) string {
	if df == nil {
		return ""
	}
	switch df.Type {
	case plan.DateQuarter:
		return fmt.Sprintf("in Q%d %d", df.Quarter, df.Year)
	case plan.DateMonth:
		if df.Month >= 1 && df.Month <= 12 {
			return fmt.Sprintf("in %s %d", monthNames[df.Month], df.Year)
		}
	case plan.DateYear:
		return fmt.Sprintf("in %d", df.Year)
	case plan.DateRelative:
		n := df.N
		if n <= 0 {
			n = 1
		}
		unit := df.Unit
		if unit == "" {
			unit = plan.UnitMonth
		}
		if n == 1 {
			return "in the last " + unit
		}
		return fmt.Sprintf("in the last %d %ss", n, unit)
	}
	return ""
}

// FormatNumber abbreviates large magnitudes with K, M or B and two decimals.
func FormatNumber(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	}
	return fmt.Sprintf("%.2f", v)
}

// Label turns a column name into a display label: gold_loan_amt becomes
// "Gold Loan Amt".
func Label(col string) string {
	words := strings.Fields(strings.ReplaceAll(col, "_", " "))
	for i, w := range words {
		words[i] = plan.Capitalize(w)
	}
	return strings.Join(words, " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
