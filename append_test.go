package bloscpack

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// memFile is an in-memory AppendTarget (and Source, for reading the result
// back), growing as WriteAt writes past its current end.
type memFile struct {
	buf []byte
}

func newMemFile(data []byte) *memFile {
	return &memFile{buf: append([]byte(nil), data...)}
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.buf)) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(f.buf)) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	copy(f.buf[off:], p)
	return len(p), nil
}

func TestAppendStreamExtendsContainer(t *testing.T) {
	t.Parallel()

	first := []byte("chunk-one-data-chunk-one-data")
	second := []byte("chunk-two-data-appended-later")

	cfg := DefaultCompressConfig()
	cfg.ChunkSize = 10
	cfg.MaxAppChunksOverride = 20

	var initial bytes.Buffer
	if _, err := CompressStream(bytes.NewReader(first), &initial, cfg); err != nil {
		t.Fatalf("CompressStream: %v", err)
	}

	mf := newMemFile(initial.Bytes())

	stats, err := AppendStream(mf, bytes.NewReader(second), cfg)
	if err != nil {
		t.Fatalf("AppendStream: %v", err)
	}
	if stats.MaxAppChunks <= 0 {
		t.Errorf("Stats.MaxAppChunks = %d, want > 0 (reserved capacity remaining)", stats.MaxAppChunks)
	}

	var out bytes.Buffer
	value, err := DecompressStream(bytes.NewReader(mf.buf), &out, DefaultDecompressOptions())
	if err != nil {
		t.Fatalf("DecompressStream: %v", err)
	}
	if value != nil {
		t.Errorf("DecompressStream metadata = %v, want nil", value)
	}

	want := append(append([]byte(nil), first...), second...)
	if diff := cmp.Diff(want, out.Bytes()); diff != "" {
		t.Errorf("appended container contents (-want, +got):\n%s", diff)
	}
}

func TestAppendStreamRejectsOffsetsDisabled(t *testing.T) {
	t.Parallel()

	cfg := DefaultCompressConfig()
	cfg.Offsets = false

	var initial bytes.Buffer
	if _, err := CompressStream(bytes.NewReader([]byte("no offsets table here")), &initial, cfg); err != nil {
		t.Fatalf("CompressStream: %v", err)
	}

	mf := newMemFile(initial.Bytes())
	_, err := AppendStream(mf, bytes.NewReader([]byte("more")), cfg)
	if diff := cmp.Diff(ErrOffsetsDisabled, err, cmpopts.EquateErrors()); diff != "" {
		t.Errorf("AppendStream (-want, +got):\n%s", diff)
	}
}

func TestAppendStreamRejectsZeroChunkFile(t *testing.T) {
	t.Parallel()

	cfg := DefaultCompressConfig()
	cfg.MaxAppChunksOverride = 10

	var initial bytes.Buffer
	if _, err := CompressStream(bytes.NewReader(nil), &initial, cfg); err != nil {
		t.Fatalf("CompressStream: %v", err)
	}

	mf := newMemFile(initial.Bytes())
	_, err := AppendStream(mf, bytes.NewReader([]byte("more")), cfg)
	if err == nil {
		t.Errorf("AppendStream on a zero-chunk file: got nil error, want non-nil")
	}
}

func TestAppendStreamCapacityExceeded(t *testing.T) {
	t.Parallel()

	cfg := DefaultCompressConfig()
	cfg.ChunkSize = 4
	cfg.MaxAppChunksOverride = 1

	var initial bytes.Buffer
	if _, err := CompressStream(bytes.NewReader([]byte("abcd")), &initial, cfg); err != nil {
		t.Fatalf("CompressStream: %v", err)
	}

	mf := newMemFile(initial.Bytes())
	// Only one append slot was reserved; two new chunks' worth of data
	// must overflow it.
	_, err := AppendStream(mf, bytes.NewReader([]byte("efghijkl")), cfg)
	if diff := cmp.Diff(ErrAppendCapacityExceeded, err, cmpopts.EquateErrors()); diff != "" {
		t.Errorf("AppendStream (-want, +got):\n%s", diff)
	}
}

func TestAppendStreamReplacesMetadata(t *testing.T) {
	t.Parallel()

	cfg := DefaultCompressConfig()
	cfg.ChunkSize = 10
	cfg.MaxAppChunksOverride = 20
	cfg.Metadata = map[string]any{"rev": float64(1)}

	var initial bytes.Buffer
	if _, err := CompressStream(bytes.NewReader([]byte("original container data")), &initial, cfg); err != nil {
		t.Fatalf("CompressStream: %v", err)
	}

	mf := newMemFile(initial.Bytes())
	cfg.Metadata = map[string]any{"rev": float64(2)}
	if _, err := AppendStream(mf, bytes.NewReader([]byte("more data")), cfg); err != nil {
		t.Fatalf("AppendStream: %v", err)
	}

	info, err := Info(bytes.NewReader(mf.buf))
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"rev": float64(2)}, info.MetaValue); diff != "" {
		t.Errorf("replaced metadata (-want, +got):\n%s", diff)
	}
}
