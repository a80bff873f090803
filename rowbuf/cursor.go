package rowbuf

import "github.com/linuxfood/setab/row"

// Cursor is a read position (block, offset) over a Buffer's chain. It
// does not own the buffer; it owns a reference to a Block, which keeps
// that block (and every block reachable from it via next) alive even
// after GC has moved the buffer's own head past it.
type Cursor struct {
	block *Block
	offset int
}

// Get reads the row at the cursor's current position. Call only when the
// cursor is known to be positioned on a row (e.g. after Next or Seek
// returns true); on an empty block it returns the zero, invalid Row.
func (c *Cursor) Get() row.Row {
	return c.block.At(c.offset)
}

// Next advances the cursor one row forward. It reports false when there
// is no further row to move to yet: either the current block has room
// for more rows that haven't arrived, or it is full with no successor
// block linked yet.
func (c *Cursor) Next() bool {
	b := c.block
	b.mu.RLock()
	if c.offset+1 <= b.used-1 {
		c.offset++
		b.mu.RUnlock()
		return true
	}
	full := b.used == len(b.rows)
	next := b.next
	b.mu.RUnlock()

	if !full || next == nil {
		return false
	}
	// Release our reference to the old (now immutable) block before
	// taking up the new one: the old block's last holder may free it
	// once nothing else is pointing at it.
	c.block = next
	c.offset = 0
	return true
}

// Seek moves the cursor forward to the first row with ts >= minTS,
// skipping whole blocks that predate minTS without inspecting their
// rows. It reports false if the chain is exhausted before such a row is
// found.
func (c *Cursor) Seek(minTS int64) bool {
	for {
		_, maxTS := c.block.MinMaxTS()
		if maxTS >= minTS {
			break
		}
		next := c.block.Next()
		if next == nil {
			return false
		}
		c.block = next
		c.offset = 0
	}
	for {
		r := c.Get()
		if r.Valid() && r.TS() >= minTS {
			return true
		}
		if !c.Next() {
			return false
		}
	}
}
