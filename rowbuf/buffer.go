package rowbuf

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/linuxfood/setab/internal/debug"
	"github.com/linuxfood/setab/metrics"
	"github.com/linuxfood/setab/row"
)

// Stats is an atomic snapshot of a Buffer's live totals.
type Stats struct {
	TotalRows   int64
	TotalBytes  int64
	TotalBlocks int64
}

// Buffer is a growing chain of Blocks with age/size-bounded GC of its
// head: component C3. Appends are total-ordered via RowSeq; multiple
// cursors may read the chain concurrently with appends and with each
// other.
type Buffer struct {
	name     string
	maxRows  int64
	maxBytes int64
	maxAgeMS int64
	blockCap int

	totalRows   atomic.Int64
	totalBytes  atomic.Int64
	totalBlocks atomic.Int64
	rowSeq      atomic.Int64

	chainMu sync.Mutex
	head    *Block
	tail    *Block

	notifyMu sync.Mutex
	notifyCh chan struct{}
}

// New constructs an empty Buffer. maxAge of zero or less disables the
// age-based GC trigger (only size/count bounds apply).
func New(maxRows, maxBytes int64, maxAge time.Duration, blockCap int) *Buffer {
	if blockCap <= 0 {
		blockCap = DefaultBlockCapacity
	}
	first := NewBlock(blockCap)
	b := &Buffer{
		maxRows:  maxRows,
		maxBytes: maxBytes,
		maxAgeMS: maxAge.Milliseconds(),
		blockCap: blockCap,
		head:     first,
		tail:     first,
		notifyCh: make(chan struct{}),
	}
	b.totalBlocks.Store(1)
	return b
}

// SetName labels this buffer's metrics (buffer_rows/blocks_gc_total)
// with name, normally the owning table's name. Unset, they report under
// the empty-string label.
func (b *Buffer) SetName(name string) { b.name = name }

func (b *Buffer) MaxRows() int64          { return b.maxRows }
func (b *Buffer) MaxBytes() int64         { return b.maxBytes }
func (b *Buffer) MaxAge() time.Duration   { return time.Duration(b.maxAgeMS) * time.Millisecond }
func (b *Buffer) BlockCapacity() int      { return b.blockCap }

// Append stores r, allocating and linking new blocks as needed. It always
// succeeds (barring allocator exhaustion).
func (b *Buffer) Append(r row.Row) bool {
	b.adviseGC()

	b.chainMu.Lock()
	tail := b.tail
	appended := tail.Append(r)
	for !appended {
		next := NewBlock(b.blockCap)
		tail.SetNext(next)
		tail = next
		b.tail = tail
		b.totalBlocks.Add(1)
		appended = tail.Append(r)
	}
	b.chainMu.Unlock()

	b.totalRows.Add(1)
	b.totalBytes.Add(r.Size())
	metrics.BufferRows.WithLabelValues(b.name).Set(float64(b.totalRows.Load()))

	b.rowSeq.Add(1)
	b.notifyMu.Lock()
	old := b.notifyCh
	b.notifyCh = make(chan struct{})
	b.notifyMu.Unlock()
	close(old)
	return true
}

// adviseGC drops whole blocks from the head of the chain while any of
// the configured bounds are exceeded. GC never inspects partial blocks
// and never drops the block tail points to.
func (b *Buffer) adviseGC() {
	for {
		b.chainMu.Lock()
		head, tail := b.head, b.tail
		if head == tail {
			b.chainMu.Unlock()
			return
		}
		if !b.overLimits(head, tail) {
			b.chainMu.Unlock()
			return
		}
		next := head.Next()
		if next == tail {
			b.chainMu.Unlock()
			return
		}
		b.head = next
		b.chainMu.Unlock()

		b.totalRows.Add(-int64(head.Size()))
		b.totalBytes.Add(-head.ByteSize())
		b.totalBlocks.Add(-1)
		metrics.BufferRows.WithLabelValues(b.name).Set(float64(b.totalRows.Load()))
		metrics.BlocksGCed.WithLabelValues(b.name).Inc()

		debug.Assert(b.totalBlocks.Load() >= 1, "GC must never empty the chain")
	}
}

func (b *Buffer) overLimits(head, tail *Block) bool {
	if b.totalRows.Load() >= b.maxRows {
		return true
	}
	if b.totalBytes.Load() > b.maxBytes {
		return true
	}
	if b.maxAgeMS <= 0 {
		return false
	}
	hmin, _ := head.MinMaxTS()
	_, tmax := tail.MinMaxTS()
	return hmin < tmax-b.maxAgeMS
}

// WaitForWrite blocks until an Append happens after this call, or until
// maxWait elapses. maxWait of zero or less waits indefinitely and always
// returns true.
func (b *Buffer) WaitForWrite(maxWait time.Duration) bool {
	b.notifyMu.Lock()
	ch := b.notifyCh
	b.notifyMu.Unlock()

	if maxWait <= 0 {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(maxWait):
		return false
	}
}

// GetCursor returns a new Cursor positioned at the current head of the
// chain.
func (b *Buffer) GetCursor() *Cursor {
	b.chainMu.Lock()
	head := b.head
	b.chainMu.Unlock()
	return &Cursor{block: head}
}

// Stat returns an atomic snapshot of the buffer's live totals.
func (b *Buffer) Stat() Stats {
	return Stats{
		TotalRows:   b.totalRows.Load(),
		TotalBytes:  b.totalBytes.Load(),
		TotalBlocks: b.totalBlocks.Load(),
	}
}
