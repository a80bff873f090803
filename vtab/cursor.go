package vtab

import (
	"github.com/linuxfood/setab/internal/debug"
	"github.com/linuxfood/setab/internal/mono"
	"github.com/linuxfood/setab/row"
)

// Cursor is a single query's read position against a Table: component
// C8. Each Filter call opens a fresh batch window; IsEOF closes it
// either on row-count or wall-clock elapsed, requeuing an unconsumed row
// so the next batch picks up where this one left off.
type Cursor struct {
	table      *Table
	batchID    string
	batchStart int64
	openedAt   int64
	started    bool
	requeued   bool
	row        row.Row
}

// Open returns a new Cursor against t, ready for Filter.
func (t *Table) Open() *Cursor {
	return &Cursor{table: t, batchStart: -1}
}

// RowID returns the current row's id, or -1 before the first NextRow.
func (c *Cursor) RowID() int64 {
	if !c.started {
		return -1
	}
	return c.row.RowID()
}

// NextRow advances to the next successfully parsed row, skipping
// transport/parse failures and duplicate suppressions transparently.
func (c *Cursor) NextRow() int64 {
	r := c.table.ReadRow(false)
	for !r.Valid() {
		r = c.table.ReadRow(false)
	}
	c.row = r
	c.started = true
	c.requeued = false
	return r.RowID()
}

// SeekUntilTime advances rows until one satisfies `ts op epochMS`,
// returning the row id of that first matching row (the new batch start).
func (c *Cursor) SeekUntilTime(epochMS int64, op ConstraintOp) int64 {
	c.NextRow()
	for {
		switch op {
		case OpGE:
			if c.row.TS() >= epochMS {
				return c.row.RowID()
			}
		case OpGT:
			if c.row.TS() > epochMS {
				return c.row.RowID()
			}
		default:
			return c.row.RowID()
		}
		c.NextRow()
	}
}

// Filter begins a new batch window. idxNum is the bitmap BestIndex
// produced; when non-zero, startTSMs is the bound from the query's WHERE
// clause and selects a GT or GE seek before the batch starts counting.
func (c *Cursor) Filter(idxNum int, startTSMs int64) {
	c.openedAt = mono.Now()
	c.batchID = NewBatchID()

	if idxNum == 0 {
		c.batchStart = c.NextRow()
		return
	}
	// Bit 0 (GT) takes precedence over bit 1 (GE) when BestIndex found
	// usable constraints on both operators for the same query.
	op := OpGE
	if idxNum&1 != 0 {
		op = OpGT
	}
	c.batchStart = c.SeekUntilTime(startTSMs, op)
}

// IsEOF reports whether this cursor's current batch has closed. A row
// that was read but never had its columns consumed (never Column-called
// by the engine) is requeued so the next batch doesn't lose it. Close is
// always called after IsEOF returns true, so requeued tracks whether
// that already happened here to avoid handing the same row out twice.
func (c *Cursor) IsEOF() bool {
	done := c.table.BatchConsumed(c.RowID(), c.batchStart, c.openedAt)
	if done && c.row.Valid() && !c.row.Consumed() && !c.requeued {
		c.table.Requeue(c.row)
		c.requeued = true
	}
	return done
}

// Column returns the value at position i and marks the current row
// consumed, mirroring sqlite3's xColumn callback.
func (c *Cursor) Column(i int) row.Value {
	debug.Assert(c.row.Valid(), "Column called on an invalid row")
	v := c.row.Column(i)
	c.row.MarkConsumed()
	return v
}

// Close requeues an unconsumed row, if any, so closing a cursor never
// silently drops a message. It's a no-op if IsEOF already requeued the
// same row.
func (c *Cursor) Close() error {
	if c.row.Valid() && !c.row.Consumed() && !c.requeued {
		c.table.Requeue(c.row)
		c.requeued = true
	}
	return nil
}
