// Package rowbuf implements the time-ordered row buffer: a singly-linked
// chain of fixed-size row blocks (component C2), the chain itself
// (component C3), and shared read cursors over it (component C4).
package rowbuf

import (
	"sync"

	"github.com/linuxfood/setab/row"
)

// DefaultBlockCapacity is the default fixed row capacity per block.
const DefaultBlockCapacity = 1000

// Block is a fixed-capacity array of Rows in arrival order, tracking the
// min/max timestamp it holds so a cursor can skip whole blocks that
// predate a seek target without inspecting every row. Once full, a block
// is immutable except for its next pointer.
type Block struct {
	mu     sync.RWMutex
	rows   []row.Row
	used   int
	minTS  int64
	maxTS  int64
	byteSz int64
	next   *Block
}

// NewBlock allocates an empty block of the given row capacity.
func NewBlock(capacity int) *Block {
	return &Block{rows: make([]row.Row, capacity)}
}

// Append adds r to the block unless it is already full. It reports
// whether the row was stored.
func (b *Block) Append(r row.Row) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used == len(b.rows) {
		return false
	}
	if b.used == 0 {
		b.minTS, b.maxTS = r.TS(), r.TS()
	} else {
		if r.TS() < b.minTS {
			b.minTS = r.TS()
		}
		if r.TS() > b.maxTS {
			b.maxTS = r.TS()
		}
	}
	b.rows[b.used] = r
	b.used++
	b.byteSz += r.Size()
	return true
}

// Next returns the successor block, or nil if none has been linked yet.
func (b *Block) Next() *Block {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.next
}

// SetNext links a successor block.
func (b *Block) SetNext(n *Block) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = n
}

// Size is the number of rows currently stored.
func (b *Block) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.used
}

// ByteSize is the accumulated Row.Size() of every stored row.
func (b *Block) ByteSize() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.byteSz
}

// MinMaxTS returns the timestamps of the earliest and latest rows in the
// block, covering exactly the rows in [0, Size()).
func (b *Block) MinMaxTS() (min, max int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.minTS, b.maxTS
}

// At returns the row stored at offset. Callers must ensure offset <
// Size().
func (b *Block) At(offset int) row.Row {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rows[offset]
}

// Front returns the first row in the block.
func (b *Block) Front() row.Row { return b.At(0) }

// Back returns the last row in the block.
func (b *Block) Back() row.Row {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.used == 0 {
		return b.rows[0]
	}
	return b.rows[b.used-1]
}

// Capacity is the block's fixed row capacity.
func (b *Block) Capacity() int { return len(b.rows) }

// full reports whether the block has reached its fixed capacity; once
// true the block stores no more rows and its identity (besides next)
// never changes again.
func (b *Block) full() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.used == len(b.rows)
}
