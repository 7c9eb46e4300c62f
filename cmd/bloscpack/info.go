package main

import (
	"fmt"
	"os"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/bloscpack/go-bloscpack"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Aliases:   []string{"i"},
		Usage:     "print a bloscpack file's headers without decoding any chunk",
		ArgsUsage: "PATH",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("%w: PATH is required", ErrFlagParse)
			}
			return runInfo(c, path)
		},
	}
}

func runInfo(c *cli.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening file: %w", bloscpack.ErrBloscpack, err)
	}
	defer f.Close()

	info, err := bloscpack.Info(f)
	if err != nil {
		return fmt.Errorf("%w: reading headers: %w", bloscpack.ErrBloscpack, err)
	}

	tbl := table.New("field", "value")
	tbl.AddRow("format_version", info.FormatVersion)
	tbl.AddRow("checksum", info.Checksum)
	tbl.AddRow("typesize", info.Typesize)
	tbl.AddRow("chunk_size", info.ChunkSize)
	tbl.AddRow("last_chunk", info.LastChunk)
	tbl.AddRow("nchunks", info.NChunks)
	tbl.AddRow("max_app_chunks", info.MaxAppChunks)
	tbl.AddRow("offsets", info.Offsets)
	tbl.AddRow("metadata", info.Metadata)
	tbl.Print()

	if info.Metadata {
		fmt.Fprintln(c.App.Writer)
		mtbl := table.New("field", "value")
		mtbl.AddRow("meta_codec", info.MetaCodec)
		mtbl.AddRow("meta_checksum", info.MetaChecksum)
		mtbl.AddRow("meta_size", info.MetaSize)
		mtbl.AddRow("meta_comp_size", info.MetaCompSize)
		mtbl.AddRow("max_meta_size", info.MaxMetaSize)
		mtbl.Print()
		fmt.Fprintf(c.App.Writer, "metadata value: %v\n", info.MetaValue)
	}

	if len(info.FirstOffsets) > 0 {
		fmt.Fprintln(c.App.Writer)
		otbl := table.New("chunk", "offset")
		for i, off := range info.FirstOffsets {
			otbl.AddRow(i, off)
		}
		otbl.Print()
	}

	return nil
}
