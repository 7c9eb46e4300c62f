package bloscpack

import (
	"encoding/binary"
	"fmt"
)

// bit positions within the bloscpack header's options byte.
const (
	optOffsets  = byte(1 << 0)
	optMetadata = byte(1 << 1)
	optReserved = ^(optOffsets | optMetadata)
)

// chunkSizeSentinel is the on-wire value of chunk_size meaning "variable /
// not applicable".
const chunkSizeSentinel uint32 = 0xFFFFFFFF

// header is the 32 byte bloscpack header described in SPEC_FULL.md §3.
type header struct {
	FormatVersion byte
	Offsets       bool
	Metadata      bool
	ChecksumID    byte
	Typesize      int

	// ChunkSize is the nominal uncompressed chunk size in bytes, or -1 for
	// the "variable / not applicable" sentinel.
	ChunkSize int64

	// LastChunk is the uncompressed size of the final chunk.
	LastChunk uint32

	// NChunks is the number of chunks present, or nchunksSentinel (-1) if
	// still unknown (forbidden in a finalized file).
	NChunks int64

	// MaxAppChunks is the number of reserved extra offset slots for
	// append. Always 0 when Offsets is false.
	MaxAppChunks int64
}

// serialize encodes h into a 32 byte bloscpack header.
func (h header) serialize() ([]byte, error) {
	if h.MaxAppChunks != 0 && !h.Offsets {
		return nil, fmt.Errorf("%w: max_app_chunks set without offsets", ErrMalformedHeader)
	}

	buf := make([]byte, headerSize)
	copy(buf[0:4], Magic)
	buf[4] = h.FormatVersion
	var opts byte
	if h.Offsets {
		opts |= optOffsets
	}
	if h.Metadata {
		opts |= optMetadata
	}
	buf[5] = opts
	buf[6] = h.ChecksumID
	//nolint:gosec // typesize is validated by callers before reaching here.
	buf[7] = byte(h.Typesize)

	var chunkSize uint32
	if h.ChunkSize < 0 {
		chunkSize = chunkSizeSentinel
	} else {
		//nolint:gosec // caller-validated chunk size.
		chunkSize = uint32(h.ChunkSize)
	}
	binary.LittleEndian.PutUint32(buf[8:12], chunkSize)
	binary.LittleEndian.PutUint32(buf[12:16], h.LastChunk)
	//nolint:gosec // NChunks is a count or the -1 sentinel; both round-trip through int64->uint64.
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.NChunks))
	//nolint:gosec // MaxAppChunks is always non-negative by construction.
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.MaxAppChunks))

	return buf, nil
}

// parseHeader decodes a 32 byte bloscpack header.
func parseHeader(buf []byte) (header, error) {
	if len(buf) < headerSize {
		return header{}, ErrTruncatedFile
	}
	if string(buf[0:4]) != Magic {
		return header{}, ErrBadMagic
	}

	version := buf[4]
	if version != FormatVersion {
		return header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	opts := buf[5]
	if opts&optReserved != 0 {
		return header{}, fmt.Errorf("%w: reserved option bits set", ErrMalformedHeader)
	}

	h := header{
		FormatVersion: version,
		Offsets:       opts&optOffsets != 0,
		Metadata:      opts&optMetadata != 0,
		ChecksumID:    buf[6],
		Typesize:      int(buf[7]),
	}

	chunkSize := binary.LittleEndian.Uint32(buf[8:12])
	if chunkSize == chunkSizeSentinel {
		h.ChunkSize = -1
	} else {
		h.ChunkSize = int64(chunkSize)
	}
	h.LastChunk = binary.LittleEndian.Uint32(buf[12:16])
	//nolint:gosec // round-tripping a value we wrote ourselves as int64.
	h.NChunks = int64(binary.LittleEndian.Uint64(buf[16:24]))
	//nolint:gosec // round-tripping a value we wrote ourselves as int64.
	h.MaxAppChunks = int64(binary.LittleEndian.Uint64(buf[24:32]))

	if !h.Offsets && h.MaxAppChunks != 0 {
		return header{}, fmt.Errorf("%w: max_app_chunks set without offsets", ErrMalformedHeader)
	}
	if h.ChunkSize >= 0 && int64(h.LastChunk) > h.ChunkSize {
		return header{}, fmt.Errorf("%w: last_chunk exceeds chunk_size", ErrMalformedHeader)
	}

	return h, nil
}

// metaHeader is the 32 byte metadata header described in SPEC_FULL.md §3.
type metaHeader struct {
	MagicFormat    string // up to 8 bytes, e.g. "JSON"
	MetaOptions    byte
	MetaChecksumID byte
	MetaCodecID    byte
	MetaLevel      byte
	MetaSize       uint32
	MetaCompSize   uint32
	MaxMetaSize    uint32
	UserCodec      string // up to 8 bytes, empty for built-in
}

func asciiField(s string, n int) ([]byte, error) {
	b := make([]byte, n)
	if len(s) > n {
		return nil, fmt.Errorf("%w: field %q longer than %d bytes", ErrMalformedHeader, s, n)
	}
	copy(b, s)
	return b, nil
}

// serialize encodes mh into a 32 byte metadata header.
func (mh metaHeader) serialize() ([]byte, error) {
	if mh.MetaCompSize > mh.MaxMetaSize {
		return nil, fmt.Errorf("%w: meta_comp_size exceeds max_meta_size", ErrMalformedHeader)
	}

	buf := make([]byte, metaHeaderSize)
	magic, err := asciiField(mh.MagicFormat, 8)
	if err != nil {
		return nil, err
	}
	copy(buf[0:8], magic)
	buf[8] = mh.MetaOptions
	buf[9] = mh.MetaChecksumID
	buf[10] = mh.MetaCodecID
	buf[11] = mh.MetaLevel
	binary.LittleEndian.PutUint32(buf[12:16], mh.MetaSize)
	binary.LittleEndian.PutUint32(buf[16:20], mh.MetaCompSize)
	binary.LittleEndian.PutUint32(buf[20:24], mh.MaxMetaSize)
	userCodec, err := asciiField(mh.UserCodec, 8)
	if err != nil {
		return nil, err
	}
	copy(buf[24:32], userCodec)

	return buf, nil
}

// trimNulls returns s up to its first NUL byte, matching how fixed-width
// ASCII fields are padded on the wire.
func trimNulls(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// parseMetaHeader decodes a 32 byte metadata header.
func parseMetaHeader(buf []byte) (metaHeader, error) {
	if len(buf) < metaHeaderSize {
		return metaHeader{}, ErrTruncatedFile
	}

	mh := metaHeader{
		MagicFormat:    trimNulls(buf[0:8]),
		MetaOptions:    buf[8],
		MetaChecksumID: buf[9],
		MetaCodecID:    buf[10],
		MetaLevel:      buf[11],
		MetaSize:       binary.LittleEndian.Uint32(buf[12:16]),
		MetaCompSize:   binary.LittleEndian.Uint32(buf[16:20]),
		MaxMetaSize:    binary.LittleEndian.Uint32(buf[20:24]),
		UserCodec:      trimNulls(buf[24:32]),
	}

	if mh.MetaCompSize > mh.MaxMetaSize {
		return metaHeader{}, fmt.Errorf("%w: meta_comp_size exceeds max_meta_size", ErrMalformedHeader)
	}

	return mh, nil
}
