// Package bloscpack implements the bloscpack container format: large
// binary payloads stored as a sequence of independently compressed,
// checksummed chunks with random-access offsets, optional JSON metadata,
// and in-place append.
//
// See: https://github.com/Blosc/bloscpack
//
// Unless otherwise informed clients should not assume implementations in
// this package are safe for parallel execution.
package bloscpack

// FormatVersion is the bloscpack container format version written by this
// package and the only version it accepts when reading.
const FormatVersion = 3

// Magic is the 4 byte marker at the start of every bloscpack file.
const Magic = "blpk"

// headerSize is the fixed size in bytes of the bloscpack header.
const headerSize = 32

// metaHeaderSize is the fixed size in bytes of the metadata header.
const metaHeaderSize = 32

// offsetSentinel marks an unused offsets table entry.
const offsetSentinel int64 = -1

// nchunksSentinel marks an unknown chunk count. A finalized file must never
// carry this value.
const nchunksSentinel int64 = -1
