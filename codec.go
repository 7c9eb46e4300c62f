package bloscpack

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"
)

// Codec names recognized by CompressConfig.Codec, in the fixed order their
// internal frame ids are assigned. This order is private to this package's
// chunk framing (see the Design Notes in SPEC_FULL.md on "codec identity in
// chunk framing") and is not part of the bloscpack header itself.
const (
	CodecBloscLZ = "blosclz"
	CodecLZ4     = "lz4"
	CodecLZ4HC   = "lz4hc"
	CodecSnappy  = "snappy"
	CodecZlib    = "zlib"
)

var codecIDs = map[string]byte{
	CodecBloscLZ: 0,
	CodecLZ4:     1,
	CodecLZ4HC:   2,
	CodecSnappy:  3,
	CodecZlib:    4,
}

var codecNames = func() map[byte]string {
	m := make(map[byte]string, len(codecIDs))
	for name, id := range codecIDs {
		m[id] = name
	}
	return m
}()

// frameHeaderSize is the size of the per-chunk frame header produced by
// compress and consumed by decompress. It is what makes a chunk record
// self-describing: a reader needs only these 11 bytes plus the following
// compSize bytes, no separate length field in the container itself.
//
//	byte 0      algo id
//	byte 1      flags (bit 0: shuffled)
//	byte 2      typesize
//	bytes 3..6  uncompressed size (uint32 LE)
//	bytes 7..10 compressed payload size (uint32 LE)
const frameHeaderSize = 11

const flagShuffled = byte(1 << 0)

// maxBlockSize is the largest buffer this adapter will compress in one
// call; it is bounded by the uint32 size fields in the frame header.
const maxBlockSize = math.MaxUint32 - frameHeaderSize

// validateCodecParams validates the parameters shared by compress calls,
// independent of which algorithm is selected.
func validateCodecParams(level, typesize, nthreads int) error {
	if typesize < 1 || typesize > 255 {
		return ErrTypesizeInvalid
	}
	if nthreads < 1 || nthreads > 256 {
		return ErrNthreadsOutOfRange
	}
	if level < 0 || level > 9 {
		return fmt.Errorf("%w: clevel %d", errBloscpack, level)
	}
	return nil
}

// compress compresses buf with the named algorithm and returns a
// self-describing framed block: decompress needs only the framed bytes
// and a thread count to recover buf.
func compress(buf []byte, algorithm string, level int, shuffle bool, typesize, nthreads int) ([]byte, error) {
	if err := validateCodecParams(level, typesize, nthreads); err != nil {
		return nil, err
	}
	algoID, ok := codecIDs[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, algorithm)
	}
	if len(buf) > maxBlockSize {
		return nil, fmt.Errorf("%w: buffer of %d bytes exceeds codec limit of %d", errBloscpack, len(buf), maxBlockSize)
	}

	src := buf
	var flags byte
	if shuffle {
		src = shuffleBytes(buf, typesize)
		flags |= flagShuffled
	}

	payload, err := compressPayload(algorithm, level, src)
	if err != nil {
		return nil, fmt.Errorf("%w: compressing with %s: %w", errBloscpack, algorithm, err)
	}

	framed := make([]byte, frameHeaderSize+len(payload))
	framed[0] = algoID
	framed[1] = flags
	//nolint:gosec // typesize bounds checked above.
	framed[2] = byte(typesize)
	//nolint:gosec // length bounds checked above.
	binary.LittleEndian.PutUint32(framed[3:7], uint32(len(buf)))
	//nolint:gosec // length bounds checked above.
	binary.LittleEndian.PutUint32(framed[7:11], uint32(len(payload)))
	copy(framed[frameHeaderSize:], payload)

	return framed, nil
}

// frameLen reports the total length of the framed record starting at the
// beginning of buf, reading only the frame header. It returns
// ErrTruncatedChunk if buf is too short to contain a full header.
func frameLen(buf []byte) (int, error) {
	if len(buf) < frameHeaderSize {
		return 0, ErrTruncatedChunk
	}
	compSize := binary.LittleEndian.Uint32(buf[7:11])
	return frameHeaderSize + int(compSize), nil
}

// decompress reverses compress: framed must be exactly one complete framed
// record (see frameLen).
func decompress(framed []byte, nthreads int) ([]byte, error) {
	if nthreads < 1 || nthreads > 256 {
		return nil, ErrNthreadsOutOfRange
	}
	if len(framed) < frameHeaderSize {
		return nil, ErrTruncatedChunk
	}

	algoID := framed[0]
	flags := framed[1]
	typesize := int(framed[2])
	rawSize := binary.LittleEndian.Uint32(framed[3:7])
	compSize := binary.LittleEndian.Uint32(framed[7:11])

	algorithm, ok := codecNames[algoID]
	if !ok {
		return nil, fmt.Errorf("%w: frame algo id %d", ErrUnknownCodec, algoID)
	}
	if len(framed) < frameHeaderSize+int(compSize) {
		return nil, ErrTruncatedChunk
	}
	payload := framed[frameHeaderSize : frameHeaderSize+int(compSize)]

	raw, err := decompressPayload(algorithm, payload, int(rawSize))
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing with %s: %w", errBloscpack, algorithm, err)
	}
	if uint32(len(raw)) != rawSize { //nolint:gosec // rawSize came from our own frame.
		return nil, fmt.Errorf("%w: decompressed size mismatch: got %d want %d", errBloscpack, len(raw), rawSize)
	}

	if flags&flagShuffled != 0 {
		raw = unshuffleBytes(raw, typesize)
	}
	return raw, nil
}

// compressPayload dispatches to the concrete third-party codec behind each
// algorithm name. See SPEC_FULL.md's DOMAIN STACK table for why each
// library was chosen.
func compressPayload(algorithm string, level int, src []byte) ([]byte, error) {
	switch algorithm {
	case CodecBloscLZ:
		// No standalone Go port of blosclz exists in the retrieval pack;
		// s2 (klauspost/compress) stands in as the fastest low-overhead
		// LZ codec available, matching blosclz's role in the family.
		return s2.Encode(nil, src), nil
	case CodecSnappy:
		return snappy.Encode(nil, src), nil
	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		var c lz4.Compressor
		n, err := c.CompressBlock(src, dst)
		if err != nil {
			return nil, err
		}
		if n == 0 && len(src) > 0 {
			// incompressible input: lz4 reports 0 when the block didn't
			// shrink; fall back to storing it raw inside the lz4 frame
			// is not supported at block level, so widen the dest buffer
			// and retry is unnecessary here because CompressBlockBound
			// already accounts for the worst case.
			return nil, fmt.Errorf("lz4: could not compress block")
		}
		return dst[:n], nil
	case CodecLZ4HC:
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		c := lz4.CompressorHC{Level: lz4.CompressionLevel(1 << (9 + level))}
		n, err := c.CompressBlock(src, dst)
		if err != nil {
			return nil, err
		}
		if n == 0 && len(src) > 0 {
			return nil, fmt.Errorf("lz4hc: could not compress block")
		}
		return dst[:n], nil
	case CodecZlib:
		var buf bytes.Buffer
		w, err := zlib.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(src); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, algorithm)
	}
}

// decompressPayload reverses compressPayload. rawSize is the expected
// decompressed length, used to size the output buffer for the block-level
// codecs that require it up front.
func decompressPayload(algorithm string, payload []byte, rawSize int) ([]byte, error) {
	switch algorithm {
	case CodecBloscLZ:
		return s2.Decode(nil, payload)
	case CodecSnappy:
		return snappy.Decode(nil, payload)
	case CodecLZ4, CodecLZ4HC:
		dst := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case CodecZlib:
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, algorithm)
	}
}

// shuffleBytes implements the blosc shuffle filter: it permutes buf so
// that for each typesize-wide element, byte 0 of every element is grouped
// first, then byte 1 of every element, and so on. This improves
// compressibility of typed numeric data by putting similar-magnitude bytes
// next to each other.
//
// The trailing bytes that don't form a complete typesize-wide element are
// left in place at the end, unshuffled, matching c-blosc's handling of a
// partial remainder block.
func shuffleBytes(buf []byte, typesize int) []byte {
	if typesize <= 1 || len(buf) < typesize {
		return append([]byte(nil), buf...)
	}
	n := len(buf) / typesize
	rem := len(buf) % typesize
	out := make([]byte, len(buf))
	for b := 0; b < typesize; b++ {
		for i := 0; i < n; i++ {
			out[b*n+i] = buf[i*typesize+b]
		}
	}
	copy(out[n*typesize:], buf[n*typesize:n*typesize+rem])
	return out
}

// unshuffleBytes reverses shuffleBytes.
func unshuffleBytes(buf []byte, typesize int) []byte {
	if typesize <= 1 || len(buf) < typesize {
		return append([]byte(nil), buf...)
	}
	n := len(buf) / typesize
	rem := len(buf) % typesize
	out := make([]byte, len(buf))
	for b := 0; b < typesize; b++ {
		for i := 0; i < n; i++ {
			out[i*typesize+b] = buf[b*n+i]
		}
	}
	copy(out[n*typesize:], buf[n*typesize:n*typesize+rem])
	return out
}
