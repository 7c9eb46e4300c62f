package bloscpack

import "fmt"

// ChunkSizeMax, when used as CompressConfig.ChunkSize, tells CompressStream
// to pick the largest chunk size that fits both the codec's per-call limit
// and the input's length (spec.md §4.G policy 1). It corresponds to the
// "max" string in the language-neutral CompressConfig described in
// spec.md §6.
const ChunkSizeMax = -1

// DefaultChunkSize is the chunk size DefaultCompressConfig sets. A zero
// CompressConfig.ChunkSize is rejected with ErrChunkSizeOutOfRange.
const DefaultChunkSize = 1 << 20 // 1 MiB

// CompressConfig configures CompressStream and AppendStream. The zero
// value is not directly usable; construct one with DefaultCompressConfig
// and override only the fields that need to differ.
type CompressConfig struct {
	// Typesize is the declared element width in bytes, used by Shuffle.
	// 1..255.
	Typesize int

	// Clevel is the compression level, 0..9.
	Clevel int

	// Shuffle enables the byte-shuffle preconditioning filter.
	Shuffle bool

	// Codec names the compression algorithm: one of CodecBloscLZ,
	// CodecLZ4, CodecLZ4HC, CodecSnappy, CodecZlib.
	Codec string

	// ChunkSize is the nominal uncompressed size of each chunk, or
	// ChunkSizeMax to pick the largest size that fits the input.
	ChunkSize int

	// Checksum names the per-chunk checksum algorithm.
	Checksum string

	// Offsets enables the random-access offsets table. Disabling it also
	// forces MaxAppChunks to 0.
	Offsets bool

	// Metadata, if non-nil, is JSON-marshaled and stored as the
	// container's metadata blob.
	Metadata any

	// Nthreads is the thread count passed to the codec adapter for each
	// block. 1..256.
	Nthreads int

	// MaxAppChunksOverride, if non-zero, replaces the default
	// 10*nchunks heuristic for reserved append capacity (spec.md §9).
	MaxAppChunksOverride int64
}

// DefaultCompressConfig returns the defaults named in spec.md §6.
func DefaultCompressConfig() CompressConfig {
	return CompressConfig{
		Typesize:  8,
		Clevel:    7,
		Shuffle:   true,
		Codec:     CodecBloscLZ,
		ChunkSize: DefaultChunkSize,
		Checksum:  ChecksumAdler32,
		Offsets:   true,
		Metadata:  nil,
		Nthreads:  1,
	}
}

// validate checks configuration errors before any I/O is attempted,
// per spec.md §7's "configuration errors are validated before any I/O".
func (c CompressConfig) validate() error {
	if c.ChunkSize <= 0 && c.ChunkSize != ChunkSizeMax {
		return ErrChunkSizeOutOfRange
	}
	if c.Typesize < 1 || c.Typesize > 255 {
		return ErrTypesizeInvalid
	}
	if c.Clevel < 0 || c.Clevel > 9 {
		return fmt.Errorf("%w: clevel %d", errBloscpack, c.Clevel)
	}
	if c.Nthreads < 1 || c.Nthreads > 256 {
		return ErrNthreadsOutOfRange
	}
	if _, ok := codecIDs[c.Codec]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCodec, c.Codec)
	}
	if _, err := checksumIDByName(c.Checksum); err != nil {
		return err
	}
	if c.MaxAppChunksOverride < 0 {
		return fmt.Errorf("%w: negative max_app_chunks override", errBloscpack)
	}
	return nil
}

// DecompressOptions configures DecompressStream.
type DecompressOptions struct {
	// Nthreads is the thread count passed to the codec adapter.
	Nthreads int

	// CheckExtension, when true and the source is a named file, requires
	// a ".blp" suffix. Only meaningful at the CLI layer; the library
	// itself never inspects file names.
	CheckExtension bool
}

// DefaultDecompressOptions returns the defaults named in spec.md §6.
func DefaultDecompressOptions() DecompressOptions {
	return DecompressOptions{
		Nthreads:       1,
		CheckExtension: true,
	}
}

func (o DecompressOptions) validate() error {
	if o.Nthreads < 1 || o.Nthreads > 256 {
		return ErrNthreadsOutOfRange
	}
	return nil
}

// Stats reports the outcome of a successful compress or append operation.
type Stats struct {
	NChunks          int64
	ChunkSize        int64
	LastChunk        int64
	UncompressedSize int64
	CompressedSize   int64
	MaxAppChunks     int64
	Offsets          bool
	Metadata         bool
}

// Info reports a file's headers without decoding any chunk payload, as
// returned by the Info function and printed by the "info" CLI subcommand.
type Info struct {
	FormatVersion int
	Offsets       bool
	Metadata      bool
	ChecksumID    byte
	Checksum      string
	Typesize      int
	ChunkSize     int64
	LastChunk     int64
	NChunks       int64
	MaxAppChunks  int64

	// MetaCodec, MetaChecksum, MetaSize, MetaCompSize, and MaxMetaSize are
	// only valid when Metadata is true.
	MetaCodec    string
	MetaChecksum string
	MetaSize     int64
	MetaCompSize int64
	MaxMetaSize  int64
	MetaValue    any

	// FirstOffsets holds up to the first 10 entries of the offsets table,
	// when present.
	FirstOffsets []int64
}
