package plan

import (
	"encoding/json"
	"slices"
)

// FilterOp identifies the shape of a column filter.
type FilterOp string

// Filter shapes.
const (
	OpEq    FilterOp = "eq"
	OpIn    FilterOp = "in"
	OpRange FilterOp = "range"
)

// Filter restricts a single column. Exactly one shape is populated:
// Value for OpEq, Values for OpIn and Min/Max for OpRange.
type Filter struct {
	Op     FilterOp
	Value  any
	Values []any
	Min    *float64
	Max    *float64
}

// Eq builds an equality filter.
func Eq(v any) Filter { return Filter{Op: OpEq, Value: v} }

// In builds a membership filter.
func In(values ...any) Filter { return Filter{Op: OpIn, Values: values} }

// InStrings builds a membership filter over string values.
func InStrings(values ...string) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return In(vs...)
}

// Between builds a range filter. Either bound may be nil.
func Between(min, max *float64) Filter { return Filter{Op: OpRange, Min: min, Max: max} }

// Raw returns the bag form of the filter: a scalar, a list, or {min,max}.
func (f Filter) Raw() any {
	switch f.Op {
	case OpIn:
		return slices.Clone(f.Values)
	case OpRange:
		m := Raw{}
		if f.Min != nil {
			m["min"] = *f.Min
		}
		if f.Max != nil {
			m["max"] = *f.Max
		}
		return m
	default:
		return f.Value
	}
}

// MarshalJSON encodes the bag form.
func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Raw())
}

// filterFromRaw interprets a single filter value from a bag.
func filterFromRaw(v any) (Filter, bool) {
	switch x := v.(type) {
	case nil:
		return Filter{}, false
	case []any:
		vals := make([]any, 0, len(x))
		for _, e := range x {
			vals = append(vals, scalar(e))
		}
		return In(vals...), true
	case []string:
		return InStrings(x...), true
	case map[string]any:
		return rangeFromRaw(Raw(x))
	case Raw:
		return rangeFromRaw(x)
	default:
		return Eq(scalar(x)), true
	}
}

func rangeFromRaw(r Raw) (Filter, bool) {
	var f Filter
	f.Op = OpRange
	if v, ok := toFloat(r["min"]); ok {
		f.Min = &v
	}
	if v, ok := toFloat(r["max"]); ok {
		f.Max = &v
	}
	if f.Min == nil && f.Max == nil {
		return Filter{}, false
	}
	return f, true
}

// scalar normalizes numeric values to float64 so they compare against
// table cells.
func scalar(v any) any {
	switch x := v.(type) {
	case int, int64, float32:
		f, _ := toFloat(x)
		return f
	}
	return v
}
