package bloscpack

import (
	"encoding/binary"
	"fmt"
	"io"
)

// AppendTarget is what AppendStream needs from the destination file: random
// reads to parse the existing headers and chunks, and random writes to
// patch and extend them in place. *os.File satisfies this.
type AppendTarget interface {
	io.ReaderAt
	io.WriterAt
}

// appendLayout records the absolute byte offsets of each fixed region of an
// existing file, computed once while parsing its headers.
type appendLayout struct {
	h               header
	mh              metaHeader
	hasMeta         bool
	metaHeaderOff   int64
	metaBlobOff     int64
	table           *offsetsTable
	offsetsTableOff int64
}

// AppendStream extends an already-finalized bloscpack file with the bytes
// read from src, consuming reserved max_app_chunks capacity. The file must
// have been written with Offsets: true; cfg's ChunkSize, Checksum, and
// Offsets fields are ignored, since chunk_size and checksum_id are
// file-wide values fixed at creation and the offsets table cannot be
// turned on retroactively. cfg's Codec, Clevel, Shuffle, Typesize, and
// Nthreads apply only to the chunks this call writes; earlier chunks keep
// whatever codec they were written with, since each chunk's codec is
// recorded in its own frame.
//
// Append always re-reads, decompresses, and rewrites the file's existing
// last chunk before emitting new ones, whether or not that chunk was
// already at chunk_size. Its on-disk size may therefore change. Callers
// must not cache chunk offsets across an Append call.
func AppendStream(file AppendTarget, src io.Reader, cfg CompressConfig) (Stats, error) {
	if err := validateAppendConfig(cfg); err != nil {
		return Stats{}, err
	}

	layout, err := readAppendLayout(file)
	if err != nil {
		return Stats{}, err
	}
	if !layout.h.Offsets {
		return Stats{}, ErrOffsetsDisabled
	}
	if layout.h.ChunkSize <= 0 {
		return Stats{}, fmt.Errorf("%w: chunk size not applicable to this file", errBloscpack)
	}
	if layout.h.NChunks == 0 {
		return Stats{}, fmt.Errorf("%w: append to a zero-chunk file is unsupported", errBloscpack)
	}
	if cfg.Metadata != nil && !layout.hasMeta {
		return Stats{}, fmt.Errorf("%w: cannot add metadata to a file that has none", ErrMetaTooLarge)
	}

	a := &appender{
		file:           file,
		cfg:            cfg,
		chunkSize:      layout.h.ChunkSize,
		checksumID:     layout.h.ChecksumID,
		table:          layout.table,
		maxChunks:      layout.h.NChunks + layout.h.MaxAppChunks,
		tableAbsOffset: layout.offsetsTableOff,
	}

	if err := a.seedFromOldLastChunk(layout.h.NChunks); err != nil {
		return Stats{}, err
	}

	if _, err := io.Copy(writerFunc(a.write), src); err != nil {
		return Stats{}, err
	}
	if err := a.flushFinal(); err != nil {
		return Stats{}, err
	}

	if cfg.Metadata != nil {
		if err := a.replaceMetadata(layout); err != nil {
			return Stats{}, err
		}
	}

	if err := a.patchHeader(); err != nil {
		return Stats{}, err
	}
	if err := a.patchOffsets(layout.h.NChunks); err != nil {
		return Stats{}, err
	}

	return Stats{
		NChunks:          a.nchunks,
		ChunkSize:        a.chunkSize,
		LastChunk:        a.lastChunk,
		UncompressedSize: a.newISize,
		CompressedSize:   a.bytesWritten,
		MaxAppChunks:     a.maxChunks - a.nchunks,
		Offsets:          true,
		Metadata:         layout.hasMeta || cfg.Metadata != nil,
	}, nil
}

// writerFunc adapts a func(p []byte) (int, error) to io.Writer.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

func validateAppendConfig(cfg CompressConfig) error {
	if _, ok := codecIDs[cfg.Codec]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCodec, cfg.Codec)
	}
	if cfg.Typesize < 1 || cfg.Typesize > 255 {
		return ErrTypesizeInvalid
	}
	if cfg.Clevel < 0 || cfg.Clevel > 9 {
		return fmt.Errorf("%w: clevel %d", errBloscpack, cfg.Clevel)
	}
	if cfg.Nthreads < 1 || cfg.Nthreads > 256 {
		return ErrNthreadsOutOfRange
	}
	return nil
}

// readAppendLayout parses the header, optional metadata header/region, and
// offsets table of an existing file, recording the absolute byte offset of
// each region.
func readAppendLayout(file AppendTarget) (appendLayout, error) {
	hdrBuf := make([]byte, headerSize)
	if _, err := file.ReadAt(hdrBuf, 0); err != nil {
		return appendLayout{}, headerReadErr(err)
	}
	h, err := parseHeader(hdrBuf)
	if err != nil {
		return appendLayout{}, err
	}

	layout := appendLayout{h: h}
	pos := int64(headerSize)

	if h.Metadata {
		layout.metaHeaderOff = pos
		mhBuf := make([]byte, metaHeaderSize)
		if _, err := file.ReadAt(mhBuf, pos); err != nil {
			return appendLayout{}, headerReadErr(err)
		}
		mh, err := parseMetaHeader(mhBuf)
		if err != nil {
			return appendLayout{}, err
		}
		layout.mh = mh
		layout.hasMeta = true
		pos += metaHeaderSize
		layout.metaBlobOff = pos
		pos += int64(mh.MaxMetaSize)
	}

	if h.Offsets {
		layout.offsetsTableOff = pos
		total := h.NChunks + h.MaxAppChunks
		tableBuf := make([]byte, 8*total)
		if _, err := file.ReadAt(tableBuf, pos); err != nil {
			return appendLayout{}, headerReadErr(err)
		}
		table, err := parseOffsetsTable(tableBuf, total)
		if err != nil {
			return appendLayout{}, err
		}
		if !table.isFinalized(h.NChunks) {
			return appendLayout{}, fmt.Errorf("%w: unfinalized offsets", ErrTruncatedFile)
		}
		layout.table = table
	}

	return layout, nil
}

// appender holds the mutable state of one AppendStream call: where the next
// chunk record will be written, and the accumulator for the in-progress
// chunk.
type appender struct {
	file AppendTarget
	cfg  CompressConfig

	chunkSize      int64
	checksumID     byte
	table          *offsetsTable
	maxChunks      int64
	tableAbsOffset int64

	pos          int64 // next write position in file
	accum        []byte
	nchunks      int64 // final chunk count after this call
	lastChunk    int64
	newISize     int64
	bytesWritten int64
}

// seedFromOldLastChunk reads, verifies, and decompresses the file's current
// last chunk, seeds the accumulator with it, and positions pos at that
// chunk's old file offset so the rewrite overwrites it in place.
func (a *appender) seedFromOldLastChunk(oldNChunks int64) error {
	lastIdx := oldNChunks - 1
	off := a.table.get(int(lastIdx))
	if off == offsetSentinel {
		return fmt.Errorf("%w: chunk %d unwritten", ErrTruncatedFile, lastIdx)
	}

	raw, err := readChunkRecordAt(a.file, off, a.checksumID, a.cfg.Nthreads, int(lastIdx))
	if err != nil {
		return err
	}

	a.pos = off
	a.accum = append(a.accum, raw...)
	a.nchunks = lastIdx // the seeded chunk is rewritten at this same index
	return nil
}

// readChunkRecordAt reads and decompresses one chunk record directly via
// ReaderAt, without requiring a Seek first.
func readChunkRecordAt(r io.ReaderAt, offset int64, checksumID byte, nthreads, index int) ([]byte, error) {
	return readChunkRecord(io.NewSectionReader(r, offset, maxBlockSize+frameHeaderSize+64), checksumID, nthreads, index)
}

// write implements the streaming accumulate-and-flush loop shared with
// Writer.Write.
func (a *appender) write(p []byte) (int, error) {
	var i int
	for i < len(p) {
		need := int(a.chunkSize) - len(a.accum)
		j := i + need
		if j > len(p) {
			j = len(p)
		}
		a.accum = append(a.accum, p[i:j]...)
		a.newISize += int64(j - i)
		i = j

		if int64(len(a.accum)) == a.chunkSize {
			if err := a.flushChunk(); err != nil {
				return i, err
			}
		}
	}
	return i, nil
}

// flushChunk writes the accumulated bytes as one chunk record at a.pos,
// enforcing the reserved append capacity.
func (a *appender) flushChunk() error {
	if a.nchunks >= a.maxChunks {
		return ErrAppendCapacityExceeded
	}

	record, err := buildChunkRecord(a.accum, a.cfg.Codec, a.cfg.Clevel, a.cfg.Shuffle, a.cfg.Typesize, a.cfg.Nthreads, a.checksumID)
	if err != nil {
		return err
	}
	if _, err := a.file.WriteAt(record, a.pos); err != nil {
		return fmt.Errorf("%w: writing chunk: %w", errBloscpack, err)
	}
	a.table.set(int(a.nchunks), a.pos)

	a.pos += int64(len(record))
	a.bytesWritten += int64(len(record))
	a.nchunks++
	a.lastChunk = int64(len(a.accum))
	a.accum = a.accum[:0]
	return nil
}

// flushFinal writes whatever remains in the accumulator as the new last
// chunk. If the accumulator is empty, the stream's length was an exact
// multiple of chunkSize and the last real flushChunk call already wrote
// the final chunk at full size; flushing an empty accumulator here would
// append a spurious zero-length chunk, so it is skipped, matching
// Writer.Close's handling of the same case.
func (a *appender) flushFinal() error {
	if len(a.accum) == 0 {
		return nil
	}
	if a.nchunks >= a.maxChunks {
		return ErrAppendCapacityExceeded
	}
	return a.flushChunk()
}

// replaceMetadata overwrites the metadata blob in place, bounded by the
// file's existing max_meta_size slot.
func (a *appender) replaceMetadata(layout appendLayout) error {
	metaChecksum, err := checksumEntryByID(layout.mh.MetaChecksumID)
	if err != nil {
		return err
	}
	metaCodec, ok := codecNames[layout.mh.MetaCodecID]
	if !ok {
		return fmt.Errorf("%w: metadata codec id %d", ErrUnknownCodec, layout.mh.MetaCodecID)
	}

	newMH, region, err := buildMetadataRegion(a.cfg.Metadata, metaChecksum.name, metaCodec, int(layout.mh.MetaLevel))
	if err != nil {
		return err
	}
	// Only the compressed blob and its digest must fit in the existing slot.
	if int64(newMH.MetaCompSize)+int64(metaChecksum.size) > int64(layout.mh.MaxMetaSize) {
		return ErrMetaTooLarge
	}

	// Keep the original slot size; zero-pad the unused remainder.
	slot := make([]byte, layout.mh.MaxMetaSize)
	copy(slot, region)

	newMH.MaxMetaSize = layout.mh.MaxMetaSize
	mhBytes, err := newMH.serialize()
	if err != nil {
		return err
	}

	if _, err := a.file.WriteAt(mhBytes, layout.metaHeaderOff); err != nil {
		return fmt.Errorf("%w: writing metadata header: %w", errBloscpack, err)
	}
	if _, err := a.file.WriteAt(slot, layout.metaBlobOff); err != nil {
		return fmt.Errorf("%w: writing metadata: %w", errBloscpack, err)
	}
	return nil
}

// patchHeader overwrites the last_chunk, nchunks, and max_app_chunks fields
// of the bloscpack header in place; all three live contiguously at bytes
// 12..32. max_app_chunks becomes the remaining reserved capacity, so
// nchunks + max_app_chunks still equals the offsets table's entry count.
func (a *appender) patchHeader() error {
	buf := make([]byte, 20)
	//nolint:gosec // lastChunk is bounded by chunkSize.
	binary.LittleEndian.PutUint32(buf[0:4], uint32(a.lastChunk))
	//nolint:gosec // nchunks is a count, always non-negative.
	binary.LittleEndian.PutUint64(buf[4:12], uint64(a.nchunks))
	//nolint:gosec // flushChunk keeps nchunks <= maxChunks.
	binary.LittleEndian.PutUint64(buf[12:20], uint64(a.maxChunks-a.nchunks))
	if _, err := a.file.WriteAt(buf, 12); err != nil {
		return fmt.Errorf("%w: patching header: %w", errBloscpack, err)
	}
	return nil
}

// patchOffsets writes back the offsets table entries from the rewritten
// last chunk through the final new chunk.
func (a *appender) patchOffsets(oldNChunks int64) error {
	for i := int(oldNChunks - 1); i < int(a.nchunks); i++ {
		buf := make([]byte, 8)
		//nolint:gosec // offsets round-trip through uint64.
		binary.LittleEndian.PutUint64(buf, uint64(a.table.get(i)))
		if _, err := a.file.WriteAt(buf, a.tableAbsOffset+int64(i*8)); err != nil {
			return fmt.Errorf("%w: patching offsets: %w", errBloscpack, err)
		}
	}
	return nil
}
