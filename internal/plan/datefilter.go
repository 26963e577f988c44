package plan

import (
	"encoding/json"
	"slices"
)

// Date filter variants.
const (
	DateRelative = "relative"
	DateQuarter  = "quarter"
	DateMonth    = "month"
	DateYear     = "year"
)

// Relative window units.
const (
	UnitDay   = "day"
	UnitWeek  = "week"
	UnitMonth = "month"
	UnitYear  = "year"
)

// QuarterMonths maps a quarter number to its calendar months.
var QuarterMonths = map[int][]int{
	1: {1, 2, 3},
	2: {4, 5, 6},
	3: {7, 8, 9},
	4: {10, 11, 12},
}

// DateFilter is a tagged time-window filter. Type selects which fields are
// meaningful:
//
//	relative: N, Unit and optionally Months, Days or Years
//	quarter:  Quarter, Year, QuarterMonths
//	month:    Month, Year
//	year:     Year
type DateFilter struct {
	Type string

	N      int
	Unit   string
	Months int
	Days   int
	Years  int

	Quarter       int
	QuarterMonths []int

	Month int
	Year  int
}

// Relative builds a "last N units" window in the shape the keyword detector
// emits: months for month, days for day and week (7 per week), years for year.
func Relative(n int, unit string) *DateFilter {
	df := &DateFilter{Type: DateRelative, N: n, Unit: unit}
	switch unit {
	case UnitMonth:
		df.Months = n
	case UnitDay:
		df.Days = n
	case UnitWeek:
		df.Days = n * 7
	case UnitYear:
		df.Years = n
	}
	return df
}

// InQuarter builds a quarter window.
func InQuarter(quarter, year int) *DateFilter {
	return &DateFilter{
		Type:          DateQuarter,
		Quarter:       quarter,
		Year:          year,
		QuarterMonths: slices.Clone(QuarterMonths[quarter]),
	}
}

// InMonth builds a single calendar month window.
func InMonth(month, year int) *DateFilter {
	return &DateFilter{Type: DateMonth, Month: month, Year: year}
}

// InYear builds a calendar year window.
func InYear(year int) *DateFilter {
	return &DateFilter{Type: DateYear, Year: year}
}

// Raw returns the bag form of the filter.
func (d DateFilter) Raw() Raw {
	r := Raw{"type": d.Type}
	switch d.Type {
	case DateRelative:
		r["n"] = d.N
		r["unit"] = d.Unit
		if d.Months != 0 {
			r["months"] = d.Months
		}
		if d.Days != 0 {
			r["days"] = d.Days
		}
		if d.Years != 0 {
			r["years"] = d.Years
		}
	case DateQuarter:
		r["quarter"] = d.Quarter
		r["year"] = d.Year
		r["months"] = slices.Clone(d.QuarterMonths)
	case DateMonth:
		r["month"] = d.Month
		r["year"] = d.Year
	case DateYear:
		r["year"] = d.Year
	}
	return r
}

// MarshalJSON encodes the bag form.
func (d DateFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Raw())
}

// dateFilterFromRaw interprets a date filter bag. Bags without a known type
// are rejected. Quarter numbers may arrive as strings ("3") or numbers.
func dateFilterFromRaw(r Raw) (*DateFilter, bool) {
	if len(r) == 0 {
		return nil, false
	}
	d := &DateFilter{Type: r.String("type")}
	year, _ := r.Int("year")
	switch d.Type {
	case DateRelative:
		d.N, _ = r.Int("n")
		d.Unit = r.String("unit")
		d.Months, _ = r.Int("months")
		d.Days, _ = r.Int("days")
		d.Years, _ = r.Int("years")
	case DateQuarter:
		d.Quarter, _ = r.Int("quarter")
		d.Year = year
		d.QuarterMonths = toInts(r["months"])
		if len(d.QuarterMonths) == 0 {
			d.QuarterMonths = slices.Clone(QuarterMonths[d.Quarter])
		}
	case DateMonth:
		d.Month, _ = r.Int("month")
		d.Year = year
	case DateYear:
		d.Year = year
	default:
		return nil, false
	}
	return d, true
}
