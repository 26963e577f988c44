// Package table provides the immutable in-memory table the analytics engine
// operates on. Every transforming method returns a new Table and never
// mutates its receiver, so a loaded dataset can be shared between concurrent
// queries without locking.
package table

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"
)

// Table is an ordered set of named columns over row-major cells. A cell is one
// of nil, string, float64, bool or time.Time.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New builds a table. Integer cells are widened to float64; a row shorter
// than the column list is padded with nil.
func New(columns []string, rows [][]any) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	out := make([][]any, len(rows))
	for i, r := range rows {
		if len(r) > len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, table has %d columns", i, len(r), len(columns))
		}
		row := make([]any, len(columns))
		for j, v := range r {
			row[j] = normalizeCell(v)
		}
		out[i] = row
	}
	return &Table{columns: slices.Clone(columns), index: index, rows: out}, nil
}

// MustNew is New that panics on error, for fixtures.
func MustNew(columns []string, rows [][]any) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) derive(rows [][]any) *Table {
	return &Table{columns: t.columns, index: t.index, rows: rows}
}

// Columns returns the column names in order.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// HasColumn reports whether the table has the column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.rows) == 0 }

// Value returns the cell at row i of column col.
func (t *Table) Value(i int, col string) any {
	j, ok := t.index[col]
	if !ok || i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i][j]
}

// Rows returns a copy of the cells, row-major.
func (t *Table) Rows() [][]any {
	out := make([][]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// Row is a read-only view of one table row passed to predicates.
type Row struct {
	t *Table
	i int
}

// Get returns the cell in column col.
func (r Row) Get(col string) any { return r.t.Value(r.i, col) }

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := make([][]any, 0, len(t.rows))
	for i, r := range t.rows {
		if keep(Row{t: t, i: i}) {
			rows = append(rows, r)
		}
	}
	return t.derive(rows)
}

// WithColumn returns a copy of the table whose column col is replaced by
// fn applied to each existing cell.
func (t *Table) WithColumn(col string, fn func(any) any) *Table {
	j, ok := t.index[col]
	if !ok {
		return t
	}
	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		row := slices.Clone(r)
		row[j] = normalizeCell(fn(r[j]))
		rows[i] = row
	}
	return t.derive(rows)
}

// SortBy returns the rows stably sorted ascending by col. Nil cells sort last.
func (t *Table) SortBy(col string) *Table {
	j, ok := t.index[col]
	if !ok {
		return t
	}
	rows := slices.Clone(t.rows)
	slices.SortStableFunc(rows, func(a, b []any) int {
		return Compare(a[j], b[j])
	})
	return t.derive(rows)
}

// Floats returns the non-null numeric cells of col in row order.
func (t *Table) Floats(col string) []float64 {
	j, ok := t.index[col]
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(t.rows))
	for _, r := range t.rows {
		if f, ok := AsFloat(r[j]); ok {
			out = append(out, f)
		}
	}
	return out
}

// Group is the subset of rows sharing one key value.
type Group struct {
	Key   any
	Table *Table
}

// KeyString renders the group key for use as a series label.
func (g Group) KeyString() string { return FormatCell(g.Key) }

// GroupBy partitions rows by col. Groups are ordered by key ascending and rows
// keep their relative order inside a group. Rows with a nil key are dropped.
func (t *Table) GroupBy(col string) []Group {
	j, ok := t.index[col]
	if !ok {
		return nil
	}
	var keys []any
	buckets := map[string][][]any{}
	for _, r := range t.rows {
		k := r[j]
		if k == nil {
			continue
		}
		id := groupID(k)
		if _, seen := buckets[id]; !seen {
			keys = append(keys, k)
		}
		buckets[id] = append(buckets[id], r)
	}
	slices.SortStableFunc(keys, Compare)
	groups := make([]Group, len(keys))
	for i, k := range keys {
		groups[i] = Group{Key: k, Table: t.derive(buckets[groupID(k)])}
	}
	return groups
}

func groupID(v any) string {
	switch x := v.(type) {
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	case float64:
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

// Compare orders two cells: times chronologically, numbers numerically and
// everything else by its string form. Nil sorts after any value.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	fa, okA := a.(float64)
	fb, okB := b.(float64)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	sa, sb := FormatCell(a), FormatCell(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

// Equal reports whether a table cell equals a filter value. Numbers compare
// numerically regardless of their Go type.
func Equal(cell, v any) bool {
	if cell == nil || v == nil {
		return cell == nil && v == nil
	}
	if fc, ok := AsFloat(cell); ok {
		if fv, ok := AsFloat(v); ok {
			return fc == fv
		}
		return false
	}
	if _, ok := AsFloat(v); ok {
		return false
	}
	if tc, ok := cell.(time.Time); ok {
		if tv, ok := v.(time.Time); ok {
			return tc.Equal(tv)
		}
	}
	return FormatCell(cell) == FormatCell(v)
}

// AsFloat returns the numeric value of a cell. NaN is treated as null.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// FormatCell renders a cell as text. Dates without a time of day render as
// YYYY-MM-DD.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	default:
		return fmt.Sprint(v)
	}
}

func normalizeCell(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	}
	return v
}
