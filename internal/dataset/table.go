// Package dataset provides the column-oriented table model the loader
// produces and the type optimizer narrows. Each column carries one concrete
// backing slice, so narrowing a column genuinely shrinks its footprint.
package dataset

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies the backing type of a column.
type Kind uint8

const (
	KindInt8 Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindString
	KindTime
)

// String returns the kind name as used in logs.
func (k Kind) String() string {
	switch k {
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Width returns the per-value storage width in bytes. Strings report the
// slice header width; their payload is counted separately.
func (k Kind) Width() int64 {
	switch k {
	case KindInt8:
		return 1
	case KindInt16:
		return 2
	case KindInt32:
		return 4
	case KindInt64, KindFloat64:
		return 8
	case KindFloat32:
		return 4
	case KindString:
		return 16
	case KindTime:
		return 24
	default:
		return 8
	}
}

// IsInteger reports whether the kind is a fixed-width integer.
func (k Kind) IsInteger() bool {
	return k == KindInt8 || k == KindInt16 || k == KindInt32 || k == KindInt64
}

// IsFloat reports whether the kind is a floating type.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsNumeric reports whether the kind is integer or floating.
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k.IsFloat()
}

// Column is one named, typed column. The backing slice matches the kind
// exactly; accessors widen on read so callers always see int64/float64.
type Column struct {
	name string
	kind Kind
	data interface{}
}

// NewInt64Column creates an int64-backed column.
func NewInt64Column(name string, values []int64) *Column {
	return &Column{name: name, kind: KindInt64, data: values}
}

// NewFloat64Column creates a float64-backed column.
func NewFloat64Column(name string, values []float64) *Column {
	return &Column{name: name, kind: KindFloat64, data: values}
}

// NewStringColumn creates a string column.
func NewStringColumn(name string, values []string) *Column {
	return &Column{name: name, kind: KindString, data: values}
}

// NewTimeColumn creates a time column.
func NewTimeColumn(name string, values []time.Time) *Column {
	return &Column{name: name, kind: KindTime, data: values}
}

func newInt8Column(name string, values []int8) *Column {
	return &Column{name: name, kind: KindInt8, data: values}
}

func newInt16Column(name string, values []int16) *Column {
	return &Column{name: name, kind: KindInt16, data: values}
}

func newInt32Column(name string, values []int32) *Column {
	return &Column{name: name, kind: KindInt32, data: values}
}

func newFloat32Column(name string, values []float32) *Column {
	return &Column{name: name, kind: KindFloat32, data: values}
}

// Name returns the column name.
func (c *Column) Name() string {
	return c.name
}

// Kind returns the backing kind.
func (c *Column) Kind() Kind {
	return c.kind
}

// Len returns the number of values.
func (c *Column) Len() int {
	switch v := c.data.(type) {
	case []int8:
		return len(v)
	case []int16:
		return len(v)
	case []int32:
		return len(v)
	case []int64:
		return len(v)
	case []float32:
		return len(v)
	case []float64:
		return len(v)
	case []string:
		return len(v)
	case []time.Time:
		return len(v)
	default:
		return 0
	}
}

// Int returns the value at row i widened to int64. Valid for integer kinds.
func (c *Column) Int(i int) int64 {
	switch v := c.data.(type) {
	case []int8:
		return int64(v[i])
	case []int16:
		return int64(v[i])
	case []int32:
		return int64(v[i])
	case []int64:
		return v[i]
	default:
		panic(fmt.Sprintf("dataset: Int on %s column %q", c.kind, c.name))
	}
}

// Float returns the value at row i widened to float64. Valid for numeric
// kinds; integers convert exactly up to 2^53.
func (c *Column) Float(i int) float64 {
	switch v := c.data.(type) {
	case []float32:
		return float64(v[i])
	case []float64:
		return v[i]
	case []int8:
		return float64(v[i])
	case []int16:
		return float64(v[i])
	case []int32:
		return float64(v[i])
	case []int64:
		return float64(v[i])
	default:
		panic(fmt.Sprintf("dataset: Float on %s column %q", c.kind, c.name))
	}
}

// StringAt returns the string value at row i.
func (c *Column) StringAt(i int) string {
	v, ok := c.data.([]string)
	if !ok {
		panic(fmt.Sprintf("dataset: StringAt on %s column %q", c.kind, c.name))
	}
	return v[i]
}

// TimeAt returns the time value at row i.
func (c *Column) TimeAt(i int) time.Time {
	v, ok := c.data.([]time.Time)
	if !ok {
		panic(fmt.Sprintf("dataset: TimeAt on %s column %q", c.kind, c.name))
	}
	return v[i]
}

// SizeBytes returns the approximate backing storage of the column.
func (c *Column) SizeBytes() int64 {
	size := int64(c.Len()) * c.kind.Width()
	if v, ok := c.data.([]string); ok {
		for _, s := range v {
			size += int64(len(s))
		}
	}
	return size
}

// Table is an immutable set of equal-length columns.
type Table struct {
	columns []*Column
	byName  map[string]int
	rows    int
}

// NewTable builds a table from columns, validating that lengths match and
// names are unique.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: columns,
		byName:  make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if col == nil {
			return nil, fmt.Errorf("dataset: nil column at index %d", i)
		}
		if _, dup := t.byName[col.name]; dup {
			return nil, fmt.Errorf("dataset: duplicate column %q", col.name)
		}
		t.byName[col.name] = i
		if i == 0 {
			t.rows = col.Len()
		} else if col.Len() != t.rows {
			return nil, fmt.Errorf("dataset: column %q has %d rows, want %d", col.name, col.Len(), t.rows)
		}
	}
	return t, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return t.rows
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return len(t.columns)
}

// Columns returns the columns in declaration order.
func (t *Table) Columns() []*Column {
	return t.columns
}

// Column returns the column with the exact given name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// ColumnFold returns the first column matching any of the candidate names,
// compared case-insensitively, in candidate order. Input headers vary across
// vendors, so lookups prefer earlier candidates.
func (t *Table) ColumnFold(candidates ...string) (*Column, bool) {
	for _, want := range candidates {
		for _, col := range t.columns {
			if strings.EqualFold(col.name, want) {
				return col, true
			}
		}
	}
	return nil, false
}

// SizeBytes returns the approximate backing storage of all columns.
func (t *Table) SizeBytes() int64 {
	var size int64
	for _, col := range t.columns {
		size += col.SizeBytes()
	}
	return size
}
