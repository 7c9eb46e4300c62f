package bloscpack

import "encoding/binary"

// offsetsTable is the in-memory ordered list of chunk start offsets
// described in SPEC_FULL.md §3/§4.D. Entries beyond the current chunk
// count are reserved for future appends and hold offsetSentinel (-1).
type offsetsTable struct {
	entries []int64
}

// newOffsetsTable returns a table sized for nchunks used entries plus
// maxAppChunks reserved, unwritten entries, all set to the -1 sentinel.
func newOffsetsTable(nchunks, maxAppChunks int64) *offsetsTable {
	t := &offsetsTable{entries: make([]int64, nchunks+maxAppChunks)}
	for i := range t.entries {
		t.entries[i] = offsetSentinel
	}
	return t
}

// set records the absolute file offset of chunk i's record.
func (t *offsetsTable) set(i int, offset int64) {
	t.entries[i] = offset
}

// get returns the absolute file offset of chunk i's record.
func (t *offsetsTable) get(i int) int64 {
	return t.entries[i]
}

// len returns the total number of entries, used plus reserved.
func (t *offsetsTable) len() int {
	return len(t.entries)
}

// grow appends n reserved, unwritten entries.
func (t *offsetsTable) grow(n int) {
	for i := 0; i < n; i++ {
		t.entries = append(t.entries, offsetSentinel)
	}
}

// serialize encodes the table as 8*len(entries) little-endian int64s.
func (t *offsetsTable) serialize() []byte {
	buf := make([]byte, 8*len(t.entries))
	for i, off := range t.entries {
		//nolint:gosec // offsets and the -1 sentinel round-trip through uint64.
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], uint64(off))
	}
	return buf
}

// parseOffsetsTable decodes a table with the given total entry count
// (nchunks + maxAppChunks) from buf.
func parseOffsetsTable(buf []byte, total int64) (*offsetsTable, error) {
	want := int(total) * 8
	if len(buf) < want {
		return nil, ErrTruncatedFile
	}
	t := &offsetsTable{entries: make([]int64, total)}
	for i := range t.entries {
		//nolint:gosec // round-tripping a value we wrote ourselves as int64.
		t.entries[i] = int64(binary.LittleEndian.Uint64(buf[i*8 : i*8+8]))
	}
	return t, nil
}

// isFinalized reports whether all of the first n entries have been
// written (i.e. none are still the -1 sentinel). A reader that finds
// sentinel offsets where data is expected is looking at an in-progress
// file (SPEC_FULL.md §5 ordering guarantees).
func (t *offsetsTable) isFinalized(n int64) bool {
	for i := int64(0); i < n; i++ {
		if t.entries[i] == offsetSentinel {
			return false
		}
	}
	return true
}
