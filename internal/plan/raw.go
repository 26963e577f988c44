package plan

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Raw is the untyped plan bag produced by the text-generation backend or by
// Plan.Raw. Keys and value types are not trusted; Normalize is the only way
// to turn a Raw into a Plan.
type Raw map[string]any

// Get returns the value under key when it is truthy.
func (r Raw) Get(key string) (any, bool) {
	v, ok := r[key]
	if !ok || !truthy(v) {
		return nil, false
	}
	return v, true
}

// String returns the string under key, or "" when absent or not a string.
func (r Raw) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Map returns the nested bag under key.
func (r Raw) Map(key string) Raw {
	switch m := r[key].(type) {
	case Raw:
		return m
	case map[string]any:
		return Raw(m)
	}
	return nil
}

// Strings returns the string list under key. A bare string is treated as a
// single-element list and non-string elements are dropped.
func (r Raw) Strings(key string) []string {
	return toStrings(r[key])
}

// Int returns the integer under key. Numeric strings are accepted.
func (r Raw) Int(key string) (int, bool) {
	return toInt(r[key])
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case []string:
		return len(x) > 0
	case []int:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	case Raw:
		return len(x) > 0
	}
	return true
}

func toStrings(v any) []string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	case []string:
		out := make([]string, 0, len(x))
		for _, s := range x {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func toInts(v any) []int {
	switch x := v.(type) {
	case []int:
		out := make([]int, len(x))
		copy(out, x)
		return out
	case []any:
		out := make([]int, 0, len(x))
		for _, e := range x {
			if n, ok := toInt(e); ok {
				out = append(out, n)
			}
		}
		return out
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// Capitalize upper-cases the first letter of s and lower-cases the rest,
// so "MUMBAI" and "mumbai" both become "Mumbai".
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
