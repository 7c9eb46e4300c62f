package bloscpack

import (
	"errors"
	"fmt"
	"io"
)

var (
	errUnsupportedSeek = fmt.Errorf("%w: unsupported seek mode", errBloscpack)
	errNegativeOffset  = fmt.Errorf("%w: negative offset", errBloscpack)
)

// Source is what Reader needs from its underlying file: sequential reads
// for streaming decompression, ReadAt for random chunk access, and Seek to
// reposition between the two.
type Source interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// Reader implements io.Reader, io.ReaderAt, and io.Seeker over a bloscpack
// file. It provides random access to chunks when the file was written with
// an offsets table, and sequential access otherwise.
type Reader struct {
	src  Source
	opts DecompressOptions

	hdr        header
	hasMeta    bool
	metaHeader metaHeader
	metaValue  any

	hasOffsets bool
	offsets    *offsetsTable
	dataStart  int64

	offset int64

	// seqChunk/seqFileOffset identify the current chunk and its record's
	// file offset when hasOffsets is false (chunk 0 before any read):
	// access may only stay on that chunk or move on to the next one.
	seqChunk      int64
	seqFileOffset int64
}

// NewReader parses src's headers and returns a Reader positioned at the
// start of the uncompressed stream.
func NewReader(src Source, opts DecompressOptions) (*Reader, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	z := &Reader{src: src, opts: opts}
	if err := z.reset(); err != nil {
		return nil, err
	}
	return z, nil
}

func (z *Reader) reset() error {
	if _, err := z.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek: %w", errBloscpack, err)
	}

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(z.src, buf); err != nil {
		return headerReadErr(err)
	}
	h, err := parseHeader(buf)
	if err != nil {
		return err
	}
	z.hdr = h

	pos := int64(headerSize)

	if h.Metadata {
		mhBuf := make([]byte, metaHeaderSize)
		if _, err := io.ReadFull(z.src, mhBuf); err != nil {
			return headerReadErr(err)
		}
		mh, err := parseMetaHeader(mhBuf)
		if err != nil {
			return err
		}
		region := make([]byte, mh.MaxMetaSize)
		if _, err := io.ReadFull(z.src, region); err != nil {
			return headerReadErr(err)
		}
		value, err := parseMetadataRegion(mh, region)
		if err != nil {
			return err
		}
		z.hasMeta = true
		z.metaHeader = mh
		z.metaValue = value
		pos += metaHeaderSize + int64(mh.MaxMetaSize)
	}

	if h.Offsets {
		total := h.NChunks + h.MaxAppChunks
		tableBuf := make([]byte, 8*total)
		if _, err := io.ReadFull(z.src, tableBuf); err != nil {
			return headerReadErr(err)
		}
		table, err := parseOffsetsTable(tableBuf, total)
		if err != nil {
			return err
		}
		if !table.isFinalized(h.NChunks) {
			return fmt.Errorf("%w: unfinalized offsets", ErrTruncatedFile)
		}
		z.hasOffsets = true
		z.offsets = table
		pos += 8 * total
	}

	z.dataStart = pos
	z.offset = 0
	z.seqChunk = 0
	z.seqFileOffset = pos

	return nil
}

func headerReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncatedFile
	}
	return fmt.Errorf("%w: %w", errBloscpack, err)
}

// Close is a no-op; Reader does not own src.
func (z *Reader) Close() error {
	return nil
}

// Metadata returns the decoded user metadata and whether the file carries
// any.
func (z *Reader) Metadata() (any, bool) {
	return z.metaValue, z.hasMeta
}

// NChunks, ChunkSize, and LastChunk expose the parsed header fields.
func (z *Reader) NChunks() int64   { return z.hdr.NChunks }
func (z *Reader) ChunkSize() int64 { return z.hdr.ChunkSize }
func (z *Reader) LastChunk() int64 { return int64(z.hdr.LastChunk) }

// totalSize returns the uncompressed size of the whole stream:
// (nchunks-1)*chunk_size + last_chunk.
func (z *Reader) totalSize() int64 {
	if z.hdr.NChunks == 0 {
		return 0
	}
	return (z.hdr.NChunks-1)*z.hdr.ChunkSize + int64(z.hdr.LastChunk)
}

// Read implements io.Reader, decompressing forward through the file.
func (z *Reader) Read(p []byte) (int, error) {
	n, err := z.readAt(p, z.offset)
	z.offset += int64(n)
	return n, err
}

// ReadAt implements io.ReaderAt. It requires an offsets table; files
// written with Offsets: false return ErrOffsetsDisabled.
func (z *Reader) ReadAt(p []byte, off int64) (int, error) {
	if !z.hasOffsets {
		return 0, ErrOffsetsDisabled
	}
	return z.readAt(p, off)
}

// Seek implements io.Seeker over the uncompressed stream.
func (z *Reader) Seek(offset int64, whence int) (int64, error) {
	var newOffset int64
	switch whence {
	case io.SeekStart:
		newOffset = offset
	case io.SeekCurrent:
		newOffset = z.offset + offset
	case io.SeekEnd:
		newOffset = z.totalSize() + offset
	default:
		return z.offset, fmt.Errorf("%w: %v", errUnsupportedSeek, whence)
	}
	if newOffset < 0 {
		return z.offset, errNegativeOffset
	}
	z.offset = newOffset
	return z.offset, nil
}

// readAt fills p starting at uncompressed offset off, crossing chunk
// boundaries as needed (required for io.ReaderAt's full-buffer contract).
func (z *Reader) readAt(p []byte, off int64) (int, error) {
	if z.hdr.ChunkSize <= 0 {
		return 0, fmt.Errorf("%w: chunk size not applicable to this file", errBloscpack)
	}

	var total int
	for total < len(p) {
		pos := off + int64(total)
		chunkNum := pos / z.hdr.ChunkSize

		raw, err := z.chunkBytes(chunkNum)
		if err != nil {
			if total > 0 && errors.Is(err, io.EOF) {
				return total, io.EOF
			}
			return total, err
		}

		chunkStart := chunkNum * z.hdr.ChunkSize
		within := pos - chunkStart
		if within >= int64(len(raw)) {
			if total > 0 {
				return total, io.EOF
			}
			return 0, io.EOF
		}
		n := copy(p[total:], raw[within:])
		total += n
	}
	return total, nil
}

// chunkBytes returns the decompressed bytes of chunk chunkNum, verifying
// its checksum. When the file has no offsets table, each request must be
// for the current chunk again or for the one right after it.
func (z *Reader) chunkBytes(chunkNum int64) ([]byte, error) {
	if chunkNum < 0 || chunkNum >= z.hdr.NChunks {
		return nil, io.EOF
	}

	if z.hasOffsets {
		pos := z.offsets.get(int(chunkNum))
		if pos == offsetSentinel {
			return nil, fmt.Errorf("%w: chunk %d unwritten", ErrTruncatedFile, chunkNum)
		}
		if _, err := z.src.Seek(pos, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: seek: %w", errBloscpack, err)
		}
		return readChunkRecord(z.src, z.hdr.ChecksumID, z.opts.Nthreads, int(chunkNum))
	}

	if chunkNum == z.seqChunk+1 {
		size, err := chunkRecordSizeAt(z.src, z.seqFileOffset, z.hdr.ChecksumID)
		if err != nil {
			return nil, err
		}
		z.seqFileOffset += size
		z.seqChunk = chunkNum
	}
	if chunkNum != z.seqChunk {
		return nil, ErrOffsetsDisabled
	}
	if _, err := z.src.Seek(z.seqFileOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek: %w", errBloscpack, err)
	}
	return readChunkRecord(z.src, z.hdr.ChecksumID, z.opts.Nthreads, int(chunkNum))
}

// DecompressStream decompresses all chunks from src into dst in order,
// verifying every chunk checksum and the file's total uncompressed length,
// and returns the decoded metadata value (nil if the file carries none).
func DecompressStream(src Source, dst io.Writer, opts DecompressOptions) (any, error) {
	r, err := NewReader(src, opts)
	if err != nil {
		return nil, err
	}

	n, err := io.Copy(dst, r)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing: %w", errBloscpack, err)
	}
	if want := r.totalSize(); n != want {
		return nil, fmt.Errorf("%w: decompressed %d bytes, expected %d", errBloscpack, n, want)
	}

	value, hasMeta := r.Metadata()
	if !hasMeta {
		return nil, nil
	}
	return value, nil
}
