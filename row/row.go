// Package row defines the immutable timestamped tuple that flows through
// a RowBuffer and a VirtualTable: component C1 of the design.
package row

import (
	"fmt"
	"strings"
)

// ColumnType tags the two wire/column kinds a table schema may declare.
type ColumnType int

const (
	Integer ColumnType = iota
	Text
)

func (t ColumnType) String() string {
	if t == Text {
		return "TEXT"
	}
	return "INTEGER"
}

// ParseColumnType matches a DDL type token case-insensitively.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToUpper(s) {
	case "INTEGER":
		return Integer, nil
	case "TEXT":
		return Text, nil
	default:
		return 0, fmt.Errorf("invalid column type %q: must be INTEGER or TEXT", s)
	}
}

// Value is a tagged column value: exactly one of Int or Str is
// meaningful, selected by Type.
type Value struct {
	Type ColumnType
	Int  int64
	Str  string
}

func IntValue(v int64) Value  { return Value{Type: Integer, Int: v} }
func TextValue(v string) Value { return Value{Type: Text, Str: v} }

// Column names a position in a table's schema.
type Column struct {
	Name string
	Type ColumnType
}

// Row is an immutable timestamped tuple plus a running record id. Column
// 0 is always the "ts" column (milliseconds since the Unix epoch). A Row
// with an empty Columns slice is invalid: it represents a transport
// receive failure or a wire-parse failure, carrying only the row id that
// would have been assigned to it.
type Row struct {
	id       int64
	columns  []Value
	consumed bool
}

// Invalid constructs a Row that failed to arrive or parse: it carries
// only the id that was about to be assigned.
func Invalid(id int64) Row { return Row{id: id} }

// New constructs a valid Row. columns must be non-empty, with column 0
// an Integer (the ts column); callers that can't guarantee that should
// use Invalid instead.
func New(id int64, columns []Value) Row {
	return Row{id: id, columns: columns}
}

func (r Row) RowID() int64 { return r.id }

// TS returns column 0 interpreted as milliseconds since the Unix epoch.
// Callers must only call TS on a Valid row.
func (r Row) TS() int64 { return r.columns[0].Int }

func (r Row) Columns() []Value { return r.columns }

func (r Row) Column(n int) Value { return r.columns[n] }

// Valid reports whether this Row carries real column data: an invalid
// Row represents a receive failure or parse failure for row_id.
func (r Row) Valid() bool { return len(r.columns) > 0 }

// Consumed reports whether the engine has already read this row's
// columns. Consumption is a state transition driven by MarkConsumed
// (invoked from the adapter's column callback), not a side effect of
// every access.
func (r Row) Consumed() bool { return r.consumed }

// MarkConsumed is called exactly once an engine has read this row's
// column data. Since Row is otherwise treated as immutable, callers pass
// a pointer to update their own copy in place.
func (r *Row) MarkConsumed() { r.consumed = true }

// Size approximates in-memory footprint for RowBuffer byte accounting: a
// fixed per-value overhead plus the length of any Text payload.
func (r Row) Size() int64 {
	const perValueOverhead = 32
	sz := int64(16) // id + bookkeeping
	for _, c := range r.columns {
		sz += perValueOverhead
		if c.Type == Text {
			sz += int64(len(c.Str))
		}
	}
	return sz
}

func (r Row) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Row:ts=%d:size=%d", func() int64 {
		if r.Valid() {
			return r.TS()
		}
		return 0
	}(), len(r.columns))
	for i, c := range r.columns {
		switch c.Type {
		case Integer:
			fmt.Fprintf(&b, ":col[%d]=%d", i, c.Int)
		case Text:
			fmt.Fprintf(&b, ":col[%d]='%s'", i, c.Str)
		}
	}
	return b.String()
}
