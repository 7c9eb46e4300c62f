package main

import (
	"fmt"
	"os"

	"github.com/go-kit/kit/log/level"
	"github.com/urfave/cli/v2"

	"github.com/bloscpack/go-bloscpack"
)

func compressCommand() *cli.Command {
	flags := append([]cli.Flag{
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "nominal uncompressed size of each chunk in bytes, or -1 for \"max\"",
			Value: bloscpack.DefaultChunkSize,
		},
		&cli.BoolFlag{
			Name:  "offsets",
			Usage: "enable the random-access offsets table",
			Value: true,
		},
	}, codecFlags()...)

	return &cli.Command{
		Name:      "compress",
		Aliases:   []string{"c"},
		Usage:     "compress a file into a bloscpack container",
		ArgsUsage: "PATH",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("%w: PATH is required", ErrFlagParse)
			}

			cfg := codecConfigFromContext(c)
			cfg.ChunkSize = c.Int("chunk-size")
			cfg.Offsets = c.Bool("offsets")

			if metaPath := c.String("metadata"); metaPath != "" {
				raw, err := os.ReadFile(metaPath)
				if err != nil {
					return fmt.Errorf("%w: reading metadata file: %w", bloscpack.ErrBloscpack, err)
				}
				var value any
				if err := json.Unmarshal(raw, &value); err != nil {
					return fmt.Errorf("%w: decoding metadata file: %w", bloscpack.ErrBloscpack, err)
				}
				cfg.Metadata = value
			}

			return runCompress(c, path, cfg)
		},
	}
}

func runCompress(c *cli.Context, path string, cfg bloscpack.CompressConfig) error {
	logger := newLogger(c.Bool("verbose"), c.Bool("debug"))

	newPath := path + ".blp"
	if _, err := os.Stat(newPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("%w: %q", bloscpack.ErrOutputExists, newPath)
	}

	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", bloscpack.ErrFileNotFound, path)
		}
		return fmt.Errorf("%w: opening file: %w", bloscpack.ErrBloscpack, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(newPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening target file: %w", bloscpack.ErrBloscpack, err)
	}
	defer dst.Close()

	_ = level.Debug(logger).Log("msg", "compressing", "path", path, "codec", cfg.Codec, "chunk_size", cfg.ChunkSize, "checksum", cfg.Checksum)

	stats, err := bloscpack.CompressStream(src, dst, cfg)
	if err != nil {
		return err
	}

	_ = level.Info(logger).Log("msg", "compressed", "path", newPath,
		"nchunks", stats.NChunks, "uncompressed", stats.UncompressedSize, "compressed", stats.CompressedSize)

	return nil
}
