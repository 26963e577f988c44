package engine

import (
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"bank-analytics/internal/plan"
	"bank-analytics/internal/table"
)

var dateColumnHints = []string{"date", "month", "period", "time"}

// ApplyFilters runs the filter stage of p over tbl: column filters first, then
// the date filter. The base table is never modified. Applying the same plan
// to its own output returns an equal table.
func (e *Engine) ApplyFilters(tbl *table.Table, p plan.Plan) *table.Table {
	return e.applyDateFilter(e.applyColumnFilters(tbl, p.Filters), p.DateFilter)
}

func (e *Engine) applyColumnFilters(tbl *table.Table, filters map[string]plan.Filter) *table.Table {
	cols := make([]string, 0, len(filters))
	for col := range filters {
		cols = append(cols, col)
	}
	slices.Sort(cols)

	for _, col := range cols {
		if !tbl.HasColumn(col) {
			e.logger.Warn("filter column not found, skipping", "column", col)
			continue
		}
		f := filters[col]
		tbl = tbl.Filter(func(r table.Row) bool { return matches(r.Get(col), f) })
	}
	return tbl
}

func matches(cell any, f plan.Filter) bool {
	switch f.Op {
	case plan.OpIn:
		return slices.ContainsFunc(f.Values, func(v any) bool { return table.Equal(cell, v) })
	case plan.OpRange:
		v, ok := table.AsFloat(cell)
		if !ok {
			return false
		}
		if f.Min != nil && v < *f.Min {
			return false
		}
		if f.Max != nil && v > *f.Max {
			return false
		}
		return true
	default:
		return table.Equal(cell, f.Value)
	}
}

// DateColumn returns the first column whose name mentions a date-like word.
func DateColumn(tbl *table.Table) (string, bool) {
	for _, c := range tbl.Columns() {
		lc := strings.ToLower(c)
		for _, hint := range dateColumnHints {
			if strings.Contains(lc, hint) {
				return c, true
			}
		}
	}
	return "", false
}

// ParseDate coerces a cell to a time. Unparseable cells report false.
func ParseDate(cell any) (time.Time, bool) {
	switch v := cell.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		t, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func (e *Engine) applyDateFilter(tbl *table.Table, df *plan.DateFilter) *table.Table {
	if df == nil {
		return tbl
	}
	col, ok := DateColumn(tbl)
	if !ok {
		return tbl
	}

	tbl = tbl.WithColumn(col, func(v any) any {
		t, ok := ParseDate(v)
		if !ok {
			return nil
		}
		return t
	}).Filter(func(r table.Row) bool { return r.Get(col) != nil })

	dateOf := func(r table.Row) time.Time { return r.Get(col).(time.Time) }

	switch df.Type {
	case plan.DateRelative:
		start, end, ok := relativeWindow(tbl, col, df)
		if !ok {
			return tbl
		}
		e.logger.Debug("date filter", "start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))
		return tbl.Filter(func(r table.Row) bool {
			d := dateOf(r)
			return !d.Before(start) && !d.After(end)
		})

	case plan.DateQuarter:
		if df.Year == 0 || len(df.QuarterMonths) == 0 {
			return tbl
		}
		return tbl.Filter(func(r table.Row) bool {
			d := dateOf(r)
			return d.Year() == df.Year && slices.Contains(df.QuarterMonths, int(d.Month()))
		})

	case plan.DateMonth:
		switch {
		case df.Year != 0 && df.Month != 0:
			return tbl.Filter(func(r table.Row) bool {
				d := dateOf(r)
				return d.Year() == df.Year && int(d.Month()) == df.Month
			})
		case df.Year != 0:
			return tbl.Filter(func(r table.Row) bool { return dateOf(r).Year() == df.Year })
		}

	case plan.DateYear:
		if df.Year != 0 {
			return tbl.Filter(func(r table.Row) bool { return dateOf(r).Year() == df.Year })
		}
	}
	return tbl
}

// relativeWindow computes [max - N units, max] anchored on the latest date in
// the data, never on the wall clock.
func relativeWindow(tbl *table.Table, col string, df *plan.DateFilter) (time.Time, time.Time, bool) {
	var end time.Time
	for i := 0; i < tbl.Len(); i++ {
		if d := tbl.Value(i, col).(time.Time); d.After(end) {
			end = d
		}
	}
	if end.IsZero() {
		return time.Time{}, time.Time{}, false
	}

	n := df.N
	if n == 0 {
		n = 1
	}
	unit := df.Unit
	if unit == "" {
		unit = plan.UnitMonth
	}
	orDefault := func(v int) int {
		if v != 0 {
			return v
		}
		return n
	}

	switch {
	case unit == plan.UnitMonth || df.Months != 0:
		return addMonths(end, -orDefault(df.Months)), end, true
	case unit == plan.UnitDay || df.Days != 0:
		return end.AddDate(0, 0, -orDefault(df.Days)), end, true
	case unit == plan.UnitWeek:
		return end.AddDate(0, 0, -7*n), end, true
	case unit == plan.UnitYear || df.Years != 0:
		return addMonths(end, -12*orDefault(df.Years)), end, true
	}
	return time.Time{}, time.Time{}, false
}

// addMonths shifts t by n calendar months, clamping the day to the end of
// the target month (Mar 31 minus one month is Feb 29 in a leap year).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(d, last)-1)
}
