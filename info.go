package bloscpack

// Info parses src's headers without decoding any chunk payload and
// returns a summary suitable for the "info" CLI subcommand or
// programmatic inspection.
func Info(src Source) (Info, error) {
	r, err := NewReader(src, DefaultDecompressOptions())
	if err != nil {
		return Info{}, err
	}

	checksumEntry, err := checksumEntryByID(r.hdr.ChecksumID)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		FormatVersion: int(r.hdr.FormatVersion),
		Offsets:       r.hasOffsets,
		Metadata:      r.hasMeta,
		ChecksumID:    r.hdr.ChecksumID,
		Checksum:      checksumEntry.name,
		Typesize:      r.hdr.Typesize,
		ChunkSize:     r.hdr.ChunkSize,
		LastChunk:     int64(r.hdr.LastChunk),
		NChunks:       r.hdr.NChunks,
		MaxAppChunks:  r.hdr.MaxAppChunks,
	}

	if r.hasMeta {
		metaCodec, ok := codecNames[r.metaHeader.MetaCodecID]
		if !ok {
			return Info{}, ErrUnknownCodec
		}
		metaChecksum, err := checksumEntryByID(r.metaHeader.MetaChecksumID)
		if err != nil {
			return Info{}, err
		}
		info.MetaCodec = metaCodec
		info.MetaChecksum = metaChecksum.name
		info.MetaSize = int64(r.metaHeader.MetaSize)
		info.MetaCompSize = int64(r.metaHeader.MetaCompSize)
		info.MaxMetaSize = int64(r.metaHeader.MaxMetaSize)
		info.MetaValue = r.metaValue
	}

	if r.hasOffsets {
		n := r.offsets.len()
		if n > 10 {
			n = 10
		}
		info.FirstOffsets = make([]int64, n)
		for i := 0; i < n; i++ {
			info.FirstOffsets[i] = r.offsets.get(i)
		}
	}

	return info, nil
}
