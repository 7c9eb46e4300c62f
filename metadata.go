package bloscpack

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// json is configured to behave like encoding/json (field tags, map key
// ordering on encode, etc.) while using json-iterator's faster codec
// underneath, matching the library famarks-loki carries for the same
// purpose.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMetaChecksum and DefaultMetaCodec are the defaults named in
// SPEC_FULL.md §4.E.
const (
	DefaultMetaChecksum = ChecksumAdler32
	DefaultMetaCodec    = CodecZlib
	DefaultMetaLevel    = 6
)

// metaMagicJSON is the only magic_format value this package writes or
// accepts; user metadata is always JSON per spec.md §1's explicit
// non-goal of "no schema... beyond opaque JSON blob".
const metaMagicJSON = "JSON"

// roundUp8 rounds n up to the next multiple of 8.
func roundUp8(n int) int {
	return (n + 7) &^ 7
}

// buildMetadataRegion serializes value to JSON, compresses it with the
// metadata codec, computes its checksum, and sizes the reserved slot with
// slack for later append-time growth (SPEC_FULL.md §4.E, §9).
func buildMetadataRegion(value any, metaChecksum, metaCodec string, metaLevel int) (metaHeader, []byte, error) {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return metaHeader{}, nil, fmt.Errorf("%w: encoding metadata: %w", errBloscpack, err)
	}

	compressed, err := compressPayload(metaCodec, metaLevel, jsonBytes)
	if err != nil {
		return metaHeader{}, nil, fmt.Errorf("%w: compressing metadata: %w", errBloscpack, err)
	}

	checksumID, err := checksumIDByName(metaChecksum)
	if err != nil {
		return metaHeader{}, nil, err
	}
	digest, err := computeChecksum(checksumID, compressed)
	if err != nil {
		return metaHeader{}, nil, err
	}

	codecID, ok := codecIDs[metaCodec]
	if !ok {
		return metaHeader{}, nil, fmt.Errorf("%w: %s", ErrUnknownCodec, metaCodec)
	}

	return sizeAndPackMetadataRegion(jsonBytes, compressed, digest, checksumID, codecID, metaLevel)
}

// sizeAndPackMetadataRegion computes max_meta_size and assembles the
// region bytes (compressed blob + checksum + zero padding).
func sizeAndPackMetadataRegion(jsonBytes, compressed, digest []byte, checksumID, codecID byte, level int) (metaHeader, []byte, error) {
	metaCompSize := len(compressed)
	slack := metaCompSize + (metaCompSize+9)/10 // ceil(metaCompSize * 1.1)
	if slack < metaCompSize {
		slack = metaCompSize
	}
	// The reserved slot must also hold the trailing checksum digest: the
	// container layout fixes the metadata region at exactly max_meta_size
	// bytes after the header, so there is nowhere else for the digest to
	// live.
	maxMetaSize := roundUp8(slack + len(digest))

	mh := metaHeader{
		MagicFormat:    metaMagicJSON,
		MetaChecksumID: checksumID,
		MetaCodecID:    codecID,
		//nolint:gosec // level is validated to 0..9 by callers.
		MetaLevel:    byte(level),
		MetaSize:     uint32(len(jsonBytes)), //nolint:gosec // bounded by the JSON encoder.
		MetaCompSize: uint32(metaCompSize),   //nolint:gosec // bounded above.
		MaxMetaSize:  uint32(maxMetaSize),    //nolint:gosec // bounded above.
	}

	region := make([]byte, maxMetaSize)
	copy(region, compressed)
	copy(region[metaCompSize:], digest)
	// remainder is already zero from make([]byte, ...)

	return mh, region, nil
}

// parseMetadataRegion verifies and decodes a metadata region given its
// header and exactly MaxMetaSize bytes of region data.
func parseMetadataRegion(mh metaHeader, region []byte) (any, error) {
	if mh.MagicFormat != metaMagicJSON {
		return nil, fmt.Errorf("%w: unsupported metadata format %q", ErrMalformedHeader, mh.MagicFormat)
	}
	if uint32(len(region)) < mh.MaxMetaSize { //nolint:gosec // MaxMetaSize is read from the file, bounded by uint32.
		return nil, ErrTruncatedFile
	}

	compressed := region[:mh.MetaCompSize]

	digestSize, err := digestSize(mh.MetaChecksumID)
	if err != nil {
		return nil, err
	}
	digestEnd := int(mh.MetaCompSize) + digestSize
	if digestEnd > len(region) {
		return nil, ErrTruncatedFile
	}
	digest := region[mh.MetaCompSize:digestEnd]

	ok, err := verifyChecksum(mh.MetaChecksumID, compressed, digest)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMetaChecksumMismatch
	}

	codec, known := codecNames[mh.MetaCodecID]
	if !known {
		return nil, fmt.Errorf("%w: metadata codec id %d", ErrUnknownCodec, mh.MetaCodecID)
	}
	jsonBytes, err := decompressPayload(codec, compressed, int(mh.MetaSize))
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing metadata: %w", errBloscpack, err)
	}

	var value any
	if err := json.Unmarshal(jsonBytes, &value); err != nil {
		return nil, fmt.Errorf("%w: decoding metadata JSON: %w", errBloscpack, err)
	}
	return value, nil
}
