package wire_test

import (
	"testing"

	"github.com/linuxfood/setab/row"
	"github.com/linuxfood/setab/wire"
)

func schema() []row.Column {
	return []row.Column{
		{Name: "ts", Type: row.Integer},
		{Name: "host", Type: row.Text},
		{Name: "latency_ms", Type: row.Integer},
	}
}

func TestParseRoundTrip(t *testing.T) {
	msg := wire.Encode([]string{"1000", "web01", "42"})
	values, err := wire.Parse(msg, schema())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if values[0].Int != 1000 || values[1].Str != "web01" || values[2].Int != 42 {
		t.Fatalf("unexpected values: %+v", values)
	}
}

func TestParseWrongColumnCount(t *testing.T) {
	msg := wire.Encode([]string{"1000", "web01"})
	if _, err := wire.Parse(msg, schema()); err == nil {
		t.Fatal("expected an error for a short message")
	}
}

func TestParseBadInteger(t *testing.T) {
	msg := wire.Encode([]string{"not-a-number", "web01", "42"})
	if _, err := wire.Parse(msg, schema()); err == nil {
		t.Fatal("expected an error for a non-numeric ts")
	}
}

func TestCompressRoundTrip(t *testing.T) {
	payload := []byte("host=web01\x1Elatency_ms=42\x1Ehost=web01\x1Elatency_ms=42")
	framed, err := wire.Compress(payload)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	out, err := wire.Decompress(framed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != string(payload) {
		t.Fatalf("round trip mismatch: got %q want %q", out, payload)
	}
}

func TestCompressTinyPayloadRoundTrip(t *testing.T) {
	// Too short for lz4 to find any gain; Compress must still fall back
	// to a raw frame that Decompress can reverse without a size hint.
	payload := []byte("1")
	framed, err := wire.Compress(payload)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	out, err := wire.Decompress(framed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != string(payload) {
		t.Fatalf("round trip mismatch: got %q want %q", out, payload)
	}
}
