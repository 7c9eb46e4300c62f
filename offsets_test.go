package bloscpack

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOffsetsTableRoundTrip(t *testing.T) {
	t.Parallel()

	table := newOffsetsTable(3, 2)
	if diff := cmp.Diff(5, table.len()); diff != "" {
		t.Fatalf("len (-want, +got):\n%s", diff)
	}

	table.set(0, 64)
	table.set(1, 128)
	table.set(2, 256)

	if !table.isFinalized(3) {
		t.Errorf("isFinalized(3): got false, want true")
	}
	if table.isFinalized(5) {
		t.Errorf("isFinalized(5): got true, want false (reserved slots unwritten)")
	}

	buf := table.serialize()
	if diff := cmp.Diff(40, len(buf)); diff != "" {
		t.Fatalf("serialized length (-want, +got):\n%s", diff)
	}

	got, err := parseOffsetsTable(buf, 5)
	if err != nil {
		t.Fatalf("parseOffsetsTable: %v", err)
	}
	if diff := cmp.Diff(table.entries, got.entries); diff != "" {
		t.Errorf("parseOffsetsTable(serialize(table)) (-want, +got):\n%s", diff)
	}
}

func TestOffsetsTableGrow(t *testing.T) {
	t.Parallel()

	table := newOffsetsTable(2, 0)
	table.set(0, 1)
	table.set(1, 2)
	table.grow(3)

	want := []int64{1, 2, offsetSentinel, offsetSentinel, offsetSentinel}
	if diff := cmp.Diff(want, table.entries); diff != "" {
		t.Errorf("grow (-want, +got):\n%s", diff)
	}
}

func TestParseOffsetsTableTruncated(t *testing.T) {
	t.Parallel()

	_, err := parseOffsetsTable(make([]byte, 8), 2)
	if err != ErrTruncatedFile {
		t.Errorf("parseOffsetsTable: got %v, want %v", err, ErrTruncatedFile)
	}
}
