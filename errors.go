package bloscpack

import (
	"errors"
	"fmt"
)

// errBloscpack is the base error for all go-bloscpack errors. Every error
// returned by this package wraps it, so callers can test with a single
// errors.Is(err, bloscpack.ErrBloscpack) regardless of the specific kind.
var errBloscpack = errors.New("bloscpack")

// ErrBloscpack is the sentinel all package errors wrap.
var ErrBloscpack = errBloscpack

// Format errors.
var (
	// ErrBadMagic indicates the first 4 bytes of a file are not "blpk".
	ErrBadMagic = fmt.Errorf("%w: bad magic", errBloscpack)

	// ErrUnsupportedVersion indicates format_version is not recognized.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported format version", errBloscpack)

	// ErrMalformedHeader indicates reserved-bit violations or impossible
	// field combinations in a header.
	ErrMalformedHeader = fmt.Errorf("%w: malformed header", errBloscpack)

	// ErrTruncatedChunk indicates a chunk record ended before its framed
	// size or checksum digest was fully read.
	ErrTruncatedChunk = fmt.Errorf("%w: truncated chunk", errBloscpack)

	// ErrTruncatedFile indicates the file ended before a required header
	// or region could be read in full.
	ErrTruncatedFile = fmt.Errorf("%w: truncated file", errBloscpack)
)

// Integrity errors.
var (
	// ErrMetaChecksumMismatch indicates the metadata blob's checksum did
	// not match the recorded digest.
	ErrMetaChecksumMismatch = fmt.Errorf("%w: metadata checksum mismatch", errBloscpack)

	// errChunkChecksumMismatch is the base for per-chunk checksum errors.
	// Use ChunkChecksumMismatch(i) to construct one and
	// errors.Is(err, ErrChunkChecksumMismatch) to test for it.
	errChunkChecksumMismatch = fmt.Errorf("%w: chunk checksum mismatch", errBloscpack)
)

// ChunkChecksumMismatch returns an error reporting a checksum failure for
// the chunk at the given index. It wraps errBloscpack and can be matched
// with errors.Is(err, bloscpack.ErrChunkChecksumMismatch).
func ChunkChecksumMismatch(index int) error {
	return chunkChecksumError{index: index}
}

// chunkChecksumError is a comparable value, so two errors for the same
// chunk index match under errors.Is.
type chunkChecksumError struct{ index int }

func (e chunkChecksumError) Error() string {
	return fmt.Sprintf("%v: chunk %d", errChunkChecksumMismatch, e.index)
}

func (e chunkChecksumError) Unwrap() error { return errChunkChecksumMismatch }

// ErrChunkChecksumMismatch is the sentinel all per-chunk checksum errors
// wrap; use errors.Is(err, ErrChunkChecksumMismatch) to detect any chunk
// checksum failure regardless of index.
var ErrChunkChecksumMismatch = errChunkChecksumMismatch

// Configuration errors.
var (
	// ErrUnknownCodec indicates an unrecognized compression algorithm name.
	ErrUnknownCodec = fmt.Errorf("%w: unknown codec", errBloscpack)

	// ErrUnknownChecksum indicates an unrecognized checksum name or id.
	ErrUnknownChecksum = fmt.Errorf("%w: unknown checksum", errBloscpack)

	// ErrChunkSizeOutOfRange indicates a non-positive or otherwise invalid
	// chunk_size configuration value.
	ErrChunkSizeOutOfRange = fmt.Errorf("%w: chunk size out of range", errBloscpack)

	// ErrTypesizeInvalid indicates a typesize outside 1..255.
	ErrTypesizeInvalid = fmt.Errorf("%w: invalid typesize", errBloscpack)

	// ErrNthreadsOutOfRange indicates an nthreads value outside 1..256.
	ErrNthreadsOutOfRange = fmt.Errorf("%w: nthreads out of range", errBloscpack)
)

// Capacity errors.
var (
	// ErrAppendCapacityExceeded indicates an append would exceed
	// max_app_chunks reserved at creation time.
	ErrAppendCapacityExceeded = fmt.Errorf("%w: append capacity exceeded", errBloscpack)

	// ErrMetaTooLarge indicates replacement metadata does not fit within
	// max_meta_size.
	ErrMetaTooLarge = fmt.Errorf("%w: metadata too large", errBloscpack)

	// ErrOffsetsDisabled indicates a random-access call was made on a file
	// written without an offsets table.
	ErrOffsetsDisabled = fmt.Errorf("%w: offsets disabled", errBloscpack)
)

// CLI errors. These are only ever returned by the cmd/bloscpack front end,
// never by the library itself.
var (
	// ErrOutputExists indicates the destination path already exists and
	// --force was not given.
	ErrOutputExists = fmt.Errorf("%w: output exists", errBloscpack)

	// ErrExtensionMismatch indicates a decompress target does not carry
	// the expected .blp suffix and --no-check-extension was not given.
	ErrExtensionMismatch = fmt.Errorf("%w: extension mismatch", errBloscpack)

	// ErrFileNotFound indicates the input path does not exist.
	ErrFileNotFound = fmt.Errorf("%w: file not found", errBloscpack)
)
