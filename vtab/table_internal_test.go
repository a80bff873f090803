package vtab

import (
	"testing"
	"time"

	"github.com/linuxfood/setab/internal/mono"
	"github.com/linuxfood/setab/row"
)

func newTestTable() *Table {
	return &Table{
		name:       "t",
		columns:    []row.Column{{Name: "ts", Type: row.Integer}},
		batchSize:  defaultBatchSize,
		windowSize: defaultWindow,
	}
}

func TestParseArgsBuildsSchema(t *testing.T) {
	tbl := newTestTable()
	err := tbl.parseArgs([]string{
		"listen_port = 8000",
		"batch_size = 1000",
		"window_size_ms = 30000",
		"host TEXT",
		"tag TEXT",
		"latency_ms INTEGER",
	})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if tbl.listenPort != 8000 || tbl.batchSize != 1000 {
		t.Fatalf("options not applied: %+v", tbl)
	}
	want := "CREATE TABLE x(ts INTEGER, host TEXT, tag TEXT, latency_ms INTEGER);"
	if got := tbl.Schema(); got != want {
		t.Fatalf("Schema() = %q, want %q", got, want)
	}
}

func TestParseArgsRejectsBadColumn(t *testing.T) {
	tbl := newTestTable()
	if err := tbl.parseArgs([]string{"justoneword"}); err == nil {
		t.Fatal("expected an error for a malformed column description")
	}
}

func TestParseArgsRejectsUnknownColumnType(t *testing.T) {
	tbl := newTestTable()
	if err := tbl.parseArgs([]string{"host BOOLEAN"}); err == nil {
		t.Fatal("expected an error for an unsupported column type")
	}
}

func TestApplyOptionNextHopServiceStripsQuotes(t *testing.T) {
	tbl := newTestTable()
	if err := tbl.parseArgs([]string{"next_hop_service = 'tcp://localhost:9000'"}); err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if tbl.nextHopService != "tcp://localhost:9000" {
		t.Fatalf("got %q", tbl.nextHopService)
	}
}

func TestIsReadWriteClassification(t *testing.T) {
	readOnly := newTestTable()
	readOnly.listenPort = 8000
	if !readOnly.IsReadOnly() || readOnly.IsWriteOnly() {
		t.Fatal("listen-only table should be read-only")
	}

	writeOnly := newTestTable()
	writeOnly.nextHopService = "tcp://x:1"
	if !writeOnly.IsWriteOnly() || writeOnly.IsReadOnly() {
		t.Fatal("forward-only table should be write-only")
	}
}

func TestBatchConsumedByRowCount(t *testing.T) {
	tbl := newTestTable()
	tbl.batchSize = 10
	tbl.windowSize = time.Hour
	now := mono.Now()
	if tbl.BatchConsumed(5, 0, now) {
		t.Fatal("batch should still be open before batchSize rows")
	}
	if !tbl.BatchConsumed(10, 0, now) {
		t.Fatal("batch should close once batchSize rows have been read")
	}
}

func TestRequeueReturnsRowFirst(t *testing.T) {
	tbl := newTestTable()
	r := row.New(7, []row.Value{row.IntValue(42)})
	tbl.Requeue(r)

	got := tbl.ReadRow(false)
	if got.RowID() != 7 {
		t.Fatalf("expected requeued row back first, got id %d", got.RowID())
	}
}

func TestWriteWithoutWriterIsSemanticError(t *testing.T) {
	tbl := newTestTable()
	if err := tbl.Write([]string{"x"}); err == nil {
		t.Fatal("expected an error writing to a table with no downstream")
	}
}

func TestCheckReadableRejectsWriteOnlyTable(t *testing.T) {
	tbl := newTestTable()
	tbl.nextHopService = "tcp://x:1"
	if err := tbl.CheckReadable(); err == nil {
		t.Fatal("expected an error opening a cursor on a write-only table")
	}

	tbl.listenPort = 8000
	if err := tbl.CheckReadable(); err != nil {
		t.Fatalf("a table that also listens should be readable: %v", err)
	}
}

func TestCheckWritableRejectsReadOnlyTable(t *testing.T) {
	tbl := newTestTable()
	tbl.listenPort = 8000
	if err := tbl.CheckWritable(); err == nil {
		t.Fatal("expected an error inserting into a read-only table")
	}

	tbl.nextHopService = "tcp://x:1"
	if err := tbl.CheckWritable(); err != nil {
		t.Fatalf("a table that also forwards should be writable: %v", err)
	}
}
