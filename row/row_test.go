package row_test

import (
	"testing"

	"github.com/linuxfood/setab/row"
)

func TestInvalidRow(t *testing.T) {
	r := row.Invalid(4)
	if r.Valid() {
		t.Fatal("invalid row reported valid")
	}
	if r.RowID() != 4 {
		t.Fatalf("row id = %d, want 4", r.RowID())
	}
}

func TestValidRow(t *testing.T) {
	r := row.New(1, []row.Value{row.IntValue(10), row.TextValue("hello")})
	if !r.Valid() {
		t.Fatal("valid row reported invalid")
	}
	if r.TS() != 10 {
		t.Fatalf("ts = %d, want 10", r.TS())
	}
	if r.Column(1).Str != "hello" {
		t.Fatalf("col[1] = %q, want hello", r.Column(1).Str)
	}
}

func TestConsumedIsATransition(t *testing.T) {
	r := row.New(1, []row.Value{row.IntValue(10)})
	if r.Consumed() {
		t.Fatal("fresh row reports consumed")
	}
	r.MarkConsumed()
	if !r.Consumed() {
		t.Fatal("MarkConsumed did not stick")
	}
}

func TestSizeCountsTextPayload(t *testing.T) {
	short := row.New(1, []row.Value{row.IntValue(10), row.TextValue("a")})
	long := row.New(1, []row.Value{row.IntValue(10), row.TextValue("a much longer string value")})
	if long.Size() <= short.Size() {
		t.Fatalf("expected longer text payload to report larger size: %d vs %d", long.Size(), short.Size())
	}
}
