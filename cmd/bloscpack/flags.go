package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/bloscpack/go-bloscpack"
)

// codecFlags returns the flag set shared by the "compress" and "append"
// commands: everything CompressConfig needs except ChunkSize and Offsets,
// which only compress.go adds, since append cannot change them.
func codecFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "typesize",
			Usage: "declared element width in bytes, used by --shuffle",
			Value: 8,
		},
		&cli.IntFlag{
			Name:  "clevel",
			Usage: "compression level, 0-9",
			Value: 7,
		},
		&cli.BoolFlag{
			Name:  "shuffle",
			Usage: "enable the byte-shuffle preconditioning filter",
			Value: true,
		},
		&cli.StringFlag{
			Name:  "codec",
			Usage: fmt.Sprintf("compression algorithm: %s, %s, %s, %s, or %s", bloscpack.CodecBloscLZ, bloscpack.CodecLZ4, bloscpack.CodecLZ4HC, bloscpack.CodecSnappy, bloscpack.CodecZlib),
			Value: bloscpack.CodecBloscLZ,
		},
		&cli.StringFlag{
			Name:  "checksum",
			Usage: "per-chunk checksum algorithm",
			Value: bloscpack.ChecksumAdler32,
		},
		&cli.IntFlag{
			Name:    "nthreads",
			Aliases: []string{"n"},
			Usage:   "thread count passed to the codec adapter, 1-256",
			Value:   1,
		},
		&cli.StringFlag{
			Name:    "metadata",
			Aliases: []string{"m"},
			Usage:   "path to a JSON file to store as the container's metadata blob",
		},
		&cli.BoolFlag{
			Name:               "verbose",
			Aliases:            []string{"v"},
			Usage:              "log per-operation progress",
			DisableDefaultText: true,
		},
		&cli.BoolFlag{
			Name:               "debug",
			Aliases:            []string{"d"},
			Usage:              "log header field values in addition to --verbose output",
			DisableDefaultText: true,
		},
		&cli.BoolFlag{
			Name:               "force",
			Aliases:            []string{"f"},
			Usage:              "force overwrite of output file",
			DisableDefaultText: true,
		},
	}
}

// codecConfigFromContext builds a CompressConfig's codec-related fields
// from the flags codecFlags registers. ChunkSize and Offsets are left at
// their zero values for the caller to fill in.
func codecConfigFromContext(c *cli.Context) bloscpack.CompressConfig {
	return bloscpack.CompressConfig{
		Typesize: c.Int("typesize"),
		Clevel:   c.Int("clevel"),
		Shuffle:  c.Bool("shuffle"),
		Codec:    c.String("codec"),
		Checksum: c.String("checksum"),
		Nthreads: c.Int("nthreads"),
	}
}
