package bloscpack

import (
	"encoding/binary"
	"errors"
	"io"
)

// buildChunkRecord compresses raw into a framed block and appends its
// checksum digest, producing the exact bytes written for one chunk record
// (SPEC_FULL.md §4.F). No length field is added beyond the frame's own
// header; a reader recovers the record's length from the frame.
func buildChunkRecord(raw []byte, algorithm string, level int, shuffle bool, typesize, nthreads int, checksumID byte) ([]byte, error) {
	framed, err := compress(raw, algorithm, level, shuffle, typesize, nthreads)
	if err != nil {
		return nil, err
	}
	digest, err := computeChecksum(checksumID, framed)
	if err != nil {
		return nil, err
	}
	record := make([]byte, len(framed)+len(digest))
	copy(record, framed)
	copy(record[len(framed):], digest)
	return record, nil
}

// readFramedBlock reads one complete framed block from r by first reading
// its fixed-size header, then the payload length that header names. It
// does not read the trailing checksum digest.
func readFramedBlock(r io.Reader) ([]byte, error) {
	hdr := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedChunk
		}
		return nil, err
	}
	compSize := binary.LittleEndian.Uint32(hdr[7:11])

	framed := make([]byte, frameHeaderSize+int(compSize))
	copy(framed, hdr)
	if _, err := io.ReadFull(r, framed[frameHeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedChunk
		}
		return nil, err
	}
	return framed, nil
}

// readChunkRecord reads and verifies one chunk record from r (a framed
// block immediately followed by its checksum digest), then decompresses
// it. index is used only to identify the chunk in a returned
// ChunkChecksumMismatch error.
func readChunkRecord(r io.Reader, checksumID byte, nthreads, index int) ([]byte, error) {
	framed, err := readFramedBlock(r)
	if err != nil {
		return nil, err
	}

	dsize, err := digestSize(checksumID)
	if err != nil {
		return nil, err
	}
	digest := make([]byte, dsize)
	if dsize > 0 {
		if _, err := io.ReadFull(r, digest); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrTruncatedChunk
			}
			return nil, err
		}
	}

	ok, err := verifyChecksum(checksumID, framed, digest)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ChunkChecksumMismatch(index)
	}

	return decompress(framed, nthreads)
}

// chunkRecordSizeAt reads just enough of the record at a known absolute
// offset to learn its total on-disk size (frame header + payload +
// checksum digest), without decompressing it. Used when scanning a file
// sequentially without an offsets table.
func chunkRecordSizeAt(r io.ReaderAt, offset int64, checksumID byte) (int64, error) {
	hdr := make([]byte, frameHeaderSize)
	if _, err := r.ReadAt(hdr, offset); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrTruncatedChunk
		}
		return 0, err
	}
	compSize := binary.LittleEndian.Uint32(hdr[7:11])
	dsize, err := digestSize(checksumID)
	if err != nil {
		return 0, err
	}
	return int64(frameHeaderSize) + int64(compSize) + int64(dsize), nil
}
