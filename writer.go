package bloscpack

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Writer implements io.WriteCloser for writing bloscpack files. Like its
// teacher, it streams compressed chunk records to a temporary file as they
// are produced and only writes the real header, metadata, and offsets
// table once Close is called and the final chunk count is known. This
// lets it accept a plain io.Writer sink (spec.md §9 explicitly allows
// "emit chunks to a temp file first" for non-seekable sinks) instead of
// requiring true seek-and-patch on every call site.
//
// Close must be called to produce a valid file.
type Writer struct {
	cfg CompressConfig

	w   io.Writer
	tmp *os.File

	metaHeader metaHeader
	metaRegion []byte
	hasMeta    bool

	chunkSize int64
	accum     []byte

	// tmpOffsets[i] is the byte offset of chunk i's record within tmp,
	// relative to the start of the chunk region (not the final file).
	tmpOffsets []int64

	isize   int64
	nchunks int64

	checksumID byte

	closed bool
	stats  Stats
}

// NewWriter initializes a new Writer with cfg, which must have ChunkSize
// already resolved to a concrete positive value (see CompressStream for
// resolving ChunkSizeMax).
func NewWriter(w io.Writer, cfg CompressConfig) (*Writer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ChunkSize == ChunkSizeMax {
		return nil, fmt.Errorf("%w: ChunkSizeMax requires CompressStream", ErrChunkSizeOutOfRange)
	}

	checksumID, err := checksumIDByName(cfg.Checksum)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "bloscpack.*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating temp file: %w", errBloscpack, err)
	}

	z := &Writer{
		cfg:        cfg,
		w:          w,
		tmp:        tmp,
		chunkSize:  int64(cfg.ChunkSize),
		checksumID: checksumID,
	}

	if cfg.Metadata != nil {
		mh, region, err := buildMetadataRegion(cfg.Metadata, DefaultMetaChecksum, DefaultMetaCodec, DefaultMetaLevel)
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return nil, err
		}
		z.metaHeader = mh
		z.metaRegion = region
		z.hasMeta = true
	}

	return z, nil
}

// Write implements io.Writer, splitting p into chunkSize-aligned pieces
// and flushing completed chunks to the temp file as they fill.
func (z *Writer) Write(p []byte) (int, error) {
	if z.closed {
		return 0, fmt.Errorf("%w: Write called on closed writer", errBloscpack)
	}

	var i int
	for i < len(p) {
		need := int(z.chunkSize) - len(z.accum)
		j := i + need
		if j > len(p) {
			j = len(p)
		}
		z.accum = append(z.accum, p[i:j]...)
		z.isize += int64(j - i)
		i = j

		if int64(len(z.accum)) == z.chunkSize {
			if err := z.flushChunk(); err != nil {
				return i, err
			}
		}
	}
	return i, nil
}

// flushChunk compresses the accumulated bytes into one chunk record and
// appends it to the temp file.
func (z *Writer) flushChunk() error {
	record, err := buildChunkRecord(z.accum, z.cfg.Codec, z.cfg.Clevel, z.cfg.Shuffle, z.cfg.Typesize, z.cfg.Nthreads, z.checksumID)
	if err != nil {
		return err
	}

	if z.cfg.Offsets {
		off, err := z.tmp.Seek(0, io.SeekCurrent)
		if err != nil {
			return fmt.Errorf("%w: seek: %w", errBloscpack, err)
		}
		z.tmpOffsets = append(z.tmpOffsets, off)
	}

	if _, err := z.tmp.Write(record); err != nil {
		return fmt.Errorf("%w: writing chunk: %w", errBloscpack, err)
	}

	z.nchunks++
	z.accum = z.accum[:0]
	return nil
}

// Close finalizes the file: it flushes any partial final chunk, computes
// max_app_chunks and the offsets table, writes the header, metadata
// region, and offsets table, then copies the chunk records from the temp
// file (spec.md §4.G policy 1-7).
func (z *Writer) Close() error {
	if z.closed {
		return nil
	}
	z.closed = true
	defer func() {
		_ = z.tmp.Close()
		_ = os.Remove(z.tmp.Name())
	}()

	lastChunk := int64(len(z.accum))
	if len(z.accum) > 0 {
		if err := z.flushChunk(); err != nil {
			return err
		}
	} else if z.nchunks > 0 {
		// The last Write call landed exactly on a chunk boundary; the
		// final chunk's uncompressed size is the full chunk size.
		lastChunk = z.chunkSize
	}

	maxAppChunks := int64(0)
	if z.cfg.Offsets {
		maxAppChunks = 10 * z.nchunks
		if z.cfg.MaxAppChunksOverride > 0 {
			maxAppChunks = z.cfg.MaxAppChunksOverride
		}
	}

	h := header{
		FormatVersion: FormatVersion,
		Offsets:       z.cfg.Offsets,
		Metadata:      z.hasMeta,
		ChecksumID:    z.checksumID,
		Typesize:      z.cfg.Typesize,
		ChunkSize:     z.chunkSize,
		//nolint:gosec // lastChunk is bounded by chunkSize, itself bounded by maxBlockSize.
		LastChunk:    uint32(lastChunk),
		NChunks:      z.nchunks,
		MaxAppChunks: maxAppChunks,
	}

	headerBytes, err := h.serialize()
	if err != nil {
		return err
	}
	if _, err := z.w.Write(headerBytes); err != nil {
		return fmt.Errorf("%w: writing header: %w", errBloscpack, err)
	}

	if z.hasMeta {
		mhBytes, err := z.metaHeader.serialize()
		if err != nil {
			return err
		}
		if _, err := z.w.Write(mhBytes); err != nil {
			return fmt.Errorf("%w: writing metadata header: %w", errBloscpack, err)
		}
		if _, err := z.w.Write(z.metaRegion); err != nil {
			return fmt.Errorf("%w: writing metadata: %w", errBloscpack, err)
		}
	}

	var preamble int64 = headerSize
	if z.hasMeta {
		preamble += metaHeaderSize + int64(len(z.metaRegion))
	}

	if z.cfg.Offsets {
		table := newOffsetsTable(z.nchunks, maxAppChunks)
		offsetsSize := int64(8 * table.len())
		for i, off := range z.tmpOffsets {
			table.set(i, preamble+offsetsSize+off)
		}
		if _, err := z.w.Write(table.serialize()); err != nil {
			return fmt.Errorf("%w: writing offsets: %w", errBloscpack, err)
		}
	}

	if _, err := z.tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek: %w", errBloscpack, err)
	}
	compressedSize, err := io.Copy(z.w, z.tmp)
	if err != nil {
		return fmt.Errorf("%w: writing chunks: %w", errBloscpack, err)
	}

	z.stats = Stats{
		NChunks:          z.nchunks,
		ChunkSize:        z.chunkSize,
		LastChunk:        lastChunk,
		UncompressedSize: z.isize,
		CompressedSize:   compressedSize,
		MaxAppChunks:     maxAppChunks,
		Offsets:          z.cfg.Offsets,
		Metadata:         z.hasMeta,
	}

	return nil
}

// Stats returns the statistics of the finalized write. It is only valid
// after Close has returned successfully.
func (z *Writer) Stats() Stats {
	return z.stats
}

// chooseMaxChunkSize implements spec.md §4.G policy 1 for ChunkSizeMax:
// the largest chunk size that fits both the codec's per-call limit and
// the input's length.
func chooseMaxChunkSize(inputLen int) int {
	if inputLen == 0 {
		return DefaultChunkSize
	}
	if inputLen > maxBlockSize {
		return maxBlockSize
	}
	return inputLen
}

// CompressStream compresses all of src into dst according to cfg,
// resolving ChunkSizeMax by buffering src fully when necessary to learn
// its length. It is the language-neutral "compress_stream" entry point
// named in spec.md §6.
func CompressStream(src io.Reader, dst io.Writer, cfg CompressConfig) (Stats, error) {
	if err := cfg.validate(); err != nil {
		return Stats{}, err
	}

	if cfg.ChunkSize == ChunkSizeMax {
		data, err := io.ReadAll(src)
		if err != nil {
			return Stats{}, fmt.Errorf("%w: reading input: %w", errBloscpack, err)
		}
		cfg.ChunkSize = chooseMaxChunkSize(len(data))
		src = bytes.NewReader(data)
	}

	w, err := NewWriter(dst, cfg)
	if err != nil {
		return Stats{}, err
	}

	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return Stats{}, fmt.Errorf("%w: compressing: %w", errBloscpack, err)
	}
	if err := w.Close(); err != nil {
		return Stats{}, err
	}

	return w.Stats(), nil
}
