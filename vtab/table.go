// Package vtab implements the streaming virtual table (component C7) and
// its read cursor (component C8): DDL-argument parsing, schema
// declaration, wire-message ingestion and dispatch, and the batching
// rules that bound how long a query's read loop runs.
package vtab

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	cuckoofilter "github.com/seiflotfy/cuckoofilter"
	jsoniter "github.com/json-iterator/go"
	"github.com/teris-io/shortid"
	"github.com/OneOfOne/xxhash"

	"github.com/linuxfood/setab/internal/cos"
	"github.com/linuxfood/setab/internal/mono"
	"github.com/linuxfood/setab/internal/nlog"
	"github.com/linuxfood/setab/metrics"
	"github.com/linuxfood/setab/registry"
	"github.com/linuxfood/setab/row"
	"github.com/linuxfood/setab/transport"
	"github.com/linuxfood/setab/wire"
	"github.com/linuxfood/setab/xerrors"
)

const (
	defaultBatchSize  = 10000
	defaultWindow     = 100 * time.Second
	defaultDedupSize  = 1 << 16
)

// Table is a single CREATE VIRTUAL TABLE instance: the schema, its
// transport endpoints, and the bookkeeping shared by every cursor opened
// against it.
type Table struct {
	name     string
	columns  []row.Column
	registry *registry.Registry

	listenPort      int
	nextHopService  string
	batchSize       int
	windowSize      time.Duration
	lingerMs        time.Duration
	dedup           bool
	compress        bool

	reader *transport.Reader
	writer *transport.Writer

	mu         sync.Mutex
	queued     []row.Row
	nextRowID  int64
	seen       *cuckoofilter.Filter
}

// New parses rawArgs (the CREATE VIRTUAL TABLE argument list), wires up
// whichever transport endpoints the arguments request, and registers the
// table under name. Argument syntax: `key=value` configures the engine
// (listen_port, next_hop_service, batch_size, window_size_ms, dedup,
// compress); anything else must be `name type` and becomes a schema
// column, appended after the always-present leading `ts INTEGER` column.
func New(ctx context.Context, name string, rawArgs []string, reg *registry.Registry) (*Table, error) {
	t := &Table{
		name:       name,
		columns:    []row.Column{{Name: "ts", Type: row.Integer}},
		registry:   reg,
		batchSize:  defaultBatchSize,
		windowSize: defaultWindow,
		lingerMs:   time.Second,
	}

	if err := t.parseArgs(rawArgs); err != nil {
		return nil, err
	}

	if t.listenPort <= 0 && t.nextHopService == "" {
		return nil, xerrors.New(xerrors.Config, "table does not listen and/or connect to anything")
	}

	if t.dedup {
		t.seen = cuckoofilter.NewFilter(defaultDedupSize)
	}

	if t.nextHopService != "" {
		w, err := transport.Dial(ctx, t.nextHopService, t.lingerMs)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Transport, err, "dial downstream")
		}
		t.writer = w
	}
	if t.listenPort > 0 {
		r, err := transport.Listen(ctx, t.listenPort)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.Transport, err, "bind listener")
		}
		t.reader = r
	}

	reg.Add(name, t)
	nlog.Infoln("vtab: created", name, "schema:", t.Schema())
	return t, nil
}

// parseArgs applies rawArgs to t's configuration fields without touching
// transport: key=value entries configure the engine, anything else is a
// `name type` schema column.
func (t *Table) parseArgs(rawArgs []string) error {
	for _, arg := range rawArgs {
		arg = cos.TrimString(arg)
		if arg == "" {
			continue
		}
		eq := strings.IndexByte(arg, '=')
		if eq < 0 {
			if err := t.addColumnArg(arg); err != nil {
				return err
			}
			continue
		}
		key := cos.TrimString(arg[:eq])
		value := cos.TrimString(arg[eq+1:])
		if err := t.applyOption(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) addColumnArg(arg string) error {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return xerrors.New(xerrors.Config, "invalid column description, expected `name type`: "+arg)
	}
	colType, err := row.ParseColumnType(cos.LCString(cos.TrimString(fields[1])))
	if err != nil {
		return xerrors.Wrap(xerrors.Config, err, "column "+fields[0])
	}
	t.columns = append(t.columns, row.Column{Name: fields[0], Type: colType})
	return nil
}

func (t *Table) applyOption(key, value string) error {
	switch key {
	case "listen_port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return xerrors.Wrap(xerrors.Config, err, "listen_port")
		}
		t.listenPort = n
	case "next_hop_service":
		t.nextHopService = cos.TrimQuotes(value)
	case "batch_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return xerrors.Wrap(xerrors.Config, err, "batch_size")
		}
		t.batchSize = n
	case "window_size_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return xerrors.Wrap(xerrors.Config, err, "window_size_ms")
		}
		t.windowSize = time.Duration(n) * time.Millisecond
	case "linger_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return xerrors.Wrap(xerrors.Config, err, "linger_ms")
		}
		t.lingerMs = time.Duration(n) * time.Millisecond
	case "dedup":
		t.dedup = value == "true"
	case "compress":
		t.compress = value == "true"
	default:
		return xerrors.New(xerrors.Config, "unknown table option: "+key)
	}
	return nil
}

// Name returns the table's current registered name.
func (t *Table) Name() string { return t.name }

// Columns returns the table's resolved schema, leading ts column
// included.
func (t *Table) Columns() []row.Column { return t.columns }

// Schema renders the CREATE TABLE DDL SQLite needs from sqlite3_declare_vtab.
func (t *Table) Schema() string {
	parts := make([]string, len(t.columns))
	for i, c := range t.columns {
		parts[i] = c.Name + " " + c.Type.String()
	}
	return "CREATE TABLE x(" + strings.Join(parts, ", ") + ");"
}

// ForWrite reports whether this table forwards rows downstream.
func (t *Table) ForWrite() bool { return t.nextHopService != "" }

// ForRead reports whether this table listens for inbound rows.
func (t *Table) ForRead() bool { return t.listenPort > 0 }

// IsWriteOnly reports whether this table can only be inserted into.
func (t *Table) IsWriteOnly() bool { return t.ForWrite() && !t.ForRead() }

// IsReadOnly reports whether this table can only be queried.
func (t *Table) IsReadOnly() bool { return !t.ForWrite() && t.ForRead() }

// CheckReadable returns a xerrors.Semantic error if this table is
// write-only and therefore cannot have a cursor opened against it.
func (t *Table) CheckReadable() error {
	if t.IsWriteOnly() {
		return xerrors.New(xerrors.Semantic, "cannot open a cursor on write-only table "+t.name)
	}
	return nil
}

// CheckWritable returns a xerrors.Semantic error if this table is
// read-only and therefore cannot accept an INSERT.
func (t *Table) CheckWritable() error {
	if t.IsReadOnly() {
		return xerrors.New(xerrors.Semantic, "cannot insert into read-only table "+t.name)
	}
	return nil
}

// Rename updates the table's registered name.
func (t *Table) Rename(newName string) {
	t.registry.Rename(t.name, newName)
	t.name = newName
}

// Close tears down the table's transport endpoints and deregisters it.
func (t *Table) Close() error {
	var firstErr error
	if t.reader != nil {
		if err := t.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if t.writer != nil {
		if err := t.writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.registry.Remove(t.name)
	return firstErr
}

// Parse decodes a raw wire message into column values for this table's
// schema.
func (t *Table) Parse(msg []byte) ([]row.Value, error) {
	values, err := wire.Parse(msg, t.columns)
	if err != nil {
		metrics.RowsParsedFail.WithLabelValues(t.name).Inc()
		return nil, xerrors.Wrap(xerrors.Parse, err, "parse row")
	}
	return values, nil
}

// ReadRow pulls the next message off the queue (if Requeue left one) or
// the transport, parses it, and returns a Row. A transport error or a
// parse failure yields row.Invalid with a freshly allocated row id
// rather than blocking the caller's retry loop. dontWait is accepted for
// symmetry with the non-blocking read path but the pure-Go transport
// here always blocks; callers loop on invalid rows instead.
func (t *Table) ReadRow(dontWait bool) row.Row {
	t.mu.Lock()
	if len(t.queued) > 0 {
		r := t.queued[0]
		t.queued = t.queued[1:]
		t.mu.Unlock()
		return r
	}
	t.nextRowID++
	id := t.nextRowID
	t.mu.Unlock()

	if t.reader == nil {
		return row.Invalid(id)
	}
	msg, err := t.reader.Recv()
	if err != nil {
		nlog.Warningln("vtab:", t.name, "recv failed:", err)
		return row.Invalid(id)
	}
	nlog.Debugln(2, "vtab:", t.name, "raw message:", string(msg))

	if t.dedup && t.isDuplicate(msg) {
		metrics.RowsDeduped.WithLabelValues(t.name).Inc()
		return row.Invalid(id)
	}

	if t.compress {
		decoded, derr := wire.Decompress(msg)
		if derr != nil {
			nlog.Warningln("vtab:", t.name, "decompress failed:", derr)
			return row.Invalid(id)
		}
		msg = decoded
	}

	values, err := t.Parse(msg)
	if err != nil {
		nlog.Warningln("vtab:", t.name, "parse failed:", err)
		return row.Invalid(id)
	}
	metrics.RowsAppended.WithLabelValues(t.name).Inc()
	return row.New(id, values)
}

func (t *Table) isDuplicate(msg []byte) bool {
	sum := xxhash.Checksum64(msg)
	key := []byte{
		byte(sum), byte(sum >> 8), byte(sum >> 16), byte(sum >> 24),
		byte(sum >> 32), byte(sum >> 40), byte(sum >> 48), byte(sum >> 56),
	}
	return !t.seen.InsertUnique(key)
}

// Requeue pushes a not-yet-consumed row back so the next ReadRow call
// returns it again, used when a batch window closes mid-row.
func (t *Table) Requeue(r row.Row) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queued = append([]row.Row{r}, t.queued...)
}

// BatchConsumed reports whether a cursor's current read batch should end:
// either the batch's time window has elapsed since openedAtMS, or it has
// read batchSize rows since batchStart.
func (t *Table) BatchConsumed(rowID, batchStart, openedAtMS int64) bool {
	if mono.Now()-openedAtMS >= t.windowSize.Milliseconds() {
		return true
	}
	return rowID-batchStart >= int64(t.batchSize)
}

// Write serializes values (already stringified by the caller, one per
// schema column, ts first) and forwards them downstream. Returns a
// xerrors.Semantic error if this table has no downstream endpoint.
func (t *Table) Write(values []string) error {
	if t.writer == nil {
		return xerrors.New(xerrors.Semantic, "table has no next_hop_service to write to")
	}
	nlog.Debugln(2, "vtab:", t.name, "insert:", values)
	payload := wire.Encode(values)
	if t.compress {
		framed, err := wire.Compress(payload)
		if err != nil {
			return xerrors.Wrap(xerrors.Transport, err, "compress outbound row")
		}
		payload = framed
	}
	if err := t.writer.Send(payload); err != nil {
		return xerrors.Wrap(xerrors.Transport, err, "send outbound row")
	}
	return nil
}

// NewBatchID returns a short, log-friendly identifier for a freshly
// opened cursor's batch, purely for correlating log lines.
func NewBatchID() string {
	id, err := shortid.Generate()
	if err != nil {
		return "batch"
	}
	return id
}

// ConfigJSON renders the table's resolved configuration as JSON for the
// debug/stats surface.
func (t *Table) ConfigJSON() ([]byte, error) {
	snap := struct {
		Name           string `json:"name"`
		ListenPort     int    `json:"listen_port,omitempty"`
		NextHopService string `json:"next_hop_service,omitempty"`
		BatchSize      int    `json:"batch_size"`
		WindowSizeMs   int64  `json:"window_size_ms"`
		Dedup          bool   `json:"dedup"`
		Compress       bool   `json:"compress"`
		Columns        int    `json:"columns"`
	}{
		Name:           t.name,
		ListenPort:     t.listenPort,
		NextHopService: t.nextHopService,
		BatchSize:      t.batchSize,
		WindowSizeMs:   t.windowSize.Milliseconds(),
		Dedup:          t.dedup,
		Compress:       t.compress,
		Columns:        len(t.columns),
	}
	return jsoniter.Marshal(snap)
}
