package bloscpack

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func mustCompress(t *testing.T, data []byte, mod func(c CompressConfig) CompressConfig) []byte {
	t.Helper()

	cfg := DefaultCompressConfig()
	if mod != nil {
		cfg = mod(cfg)
	}
	var buf bytes.Buffer
	if _, err := CompressStream(bytes.NewReader(data), &buf, cfg); err != nil {
		t.Fatalf("CompressStream: %v", err)
	}
	return buf.Bytes()
}

func TestReaderReadSequential(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("sequential read test data "), 500)
	container := mustCompress(t, data, func(c CompressConfig) CompressConfig {
		c.ChunkSize = 64
		return c
	})

	r, err := NewReader(bytes.NewReader(container), DefaultDecompressOptions())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("io.ReadAll: %v", err)
	}
	if diff := cmp.Diff(data, got); diff != "" {
		t.Errorf("Read (-want, +got):\n%s", diff)
	}
}

func TestReaderReadAtRandomAccess(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("random access test data "), 500)
	container := mustCompress(t, data, func(c CompressConfig) CompressConfig {
		c.ChunkSize = 50
		return c
	})

	r, err := NewReader(bytes.NewReader(container), DefaultDecompressOptions())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	testCases := []struct {
		name string
		off  int64
		n    int
	}{
		{name: "start", off: 0, n: 10},
		{name: "mid chunk", off: 75, n: 20},
		{name: "crosses chunk boundary", off: 45, n: 30},
		{name: "near end", off: int64(len(data)) - 5, n: 5},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, tc.n)
			n, err := r.ReadAt(buf, tc.off)
			if err != nil {
				t.Fatalf("ReadAt: %v", err)
			}
			if diff := cmp.Diff(tc.n, n); diff != "" {
				t.Errorf("ReadAt n (-want, +got):\n%s", diff)
			}
			if diff := cmp.Diff(data[tc.off:tc.off+int64(tc.n)], buf); diff != "" {
				t.Errorf("ReadAt data (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestReaderReadAtWithoutOffsetsFails(t *testing.T) {
	t.Parallel()

	container := mustCompress(t, []byte("no random access here"), func(c CompressConfig) CompressConfig {
		c.Offsets = false
		c.ChunkSize = 8
		return c
	})

	r, err := NewReader(bytes.NewReader(container), DefaultDecompressOptions())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	_, err = r.ReadAt(make([]byte, 4), 0)
	if diff := cmp.Diff(ErrOffsetsDisabled, err, cmpopts.EquateErrors()); diff != "" {
		t.Errorf("ReadAt (-want, +got):\n%s", diff)
	}

	// Sequential reads still work.
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("io.ReadAll: %v", err)
	}
	if diff := cmp.Diff([]byte("no random access here"), got); diff != "" {
		t.Errorf("Read (-want, +got):\n%s", diff)
	}
}

func TestReaderSeek(t *testing.T) {
	t.Parallel()

	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz")
	container := mustCompress(t, data, func(c CompressConfig) CompressConfig {
		c.ChunkSize = 10
		return c
	})

	r, err := NewReader(bytes.NewReader(container), DefaultDecompressOptions())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	if _, err := r.Seek(10, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if diff := cmp.Diff(data[10:15], buf); diff != "" {
		t.Errorf("Read after Seek (-want, +got):\n%s", diff)
	}

	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if diff := cmp.Diff(int64(len(data)), end); diff != "" {
		t.Errorf("Seek(0, SeekEnd) (-want, +got):\n%s", diff)
	}

	if _, err := r.Seek(-1, io.SeekStart); err == nil {
		t.Errorf("Seek to negative offset: got nil error, want non-nil")
	}
}

func TestNewReaderBadMagic(t *testing.T) {
	t.Parallel()

	_, err := NewReader(bytes.NewReader([]byte("not a bloscpack file, just some text.....")), DefaultDecompressOptions())
	if diff := cmp.Diff(ErrBadMagic, err, cmpopts.EquateErrors()); diff != "" {
		t.Errorf("NewReader (-want, +got):\n%s", diff)
	}
}

func TestNewReaderTruncatedFile(t *testing.T) {
	t.Parallel()

	container := mustCompress(t, []byte("some data"), nil)

	_, err := NewReader(bytes.NewReader(container[:headerSize-1]), DefaultDecompressOptions())
	if diff := cmp.Diff(ErrTruncatedFile, err, cmpopts.EquateErrors()); diff != "" {
		t.Errorf("NewReader (-want, +got):\n%s", diff)
	}
}

func TestDecompressStreamChunkChecksumMismatch(t *testing.T) {
	t.Parallel()

	container := mustCompress(t, bytes.Repeat([]byte("corrupt me "), 50), func(c CompressConfig) CompressConfig {
		c.ChunkSize = 32
		return c
	})

	// Flip a byte inside the first chunk's payload, after the headers and
	// offsets table.
	r, err := NewReader(bytes.NewReader(container), DefaultDecompressOptions())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	firstChunkOffset := r.offsets.get(0)
	corrupted := append([]byte(nil), container...)
	corrupted[firstChunkOffset+int64(frameHeaderSize)] ^= 0xff

	var out bytes.Buffer
	_, err = DecompressStream(bytes.NewReader(corrupted), &out, DefaultDecompressOptions())
	if !cmp.Equal(err, ErrChunkChecksumMismatch, cmpopts.EquateErrors()) {
		t.Errorf("DecompressStream: got %v, want an error wrapping ErrChunkChecksumMismatch", err)
	}
}

func TestInfoHeadersOnly(t *testing.T) {
	t.Parallel()

	container := mustCompress(t, bytes.Repeat([]byte("info test "), 200), func(c CompressConfig) CompressConfig {
		c.ChunkSize = 32
		c.Metadata = map[string]any{"k": "v"}
		return c
	})

	info, err := Info(bytes.NewReader(container))
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !info.Offsets {
		t.Errorf("Info.Offsets = false, want true")
	}
	if !info.Metadata {
		t.Errorf("Info.Metadata = false, want true")
	}
	if diff := cmp.Diff(map[string]any{"k": "v"}, info.MetaValue); diff != "" {
		t.Errorf("Info.MetaValue (-want, +got):\n%s", diff)
	}
	if len(info.FirstOffsets) == 0 {
		t.Errorf("Info.FirstOffsets is empty, want at least one entry")
	}
}
