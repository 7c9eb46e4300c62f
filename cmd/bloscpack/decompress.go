package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/kit/log/level"
	"github.com/urfave/cli/v2"

	"github.com/bloscpack/go-bloscpack"
)

func decompressCommand() *cli.Command {
	return &cli.Command{
		Name:      "decompress",
		Aliases:   []string{"d"},
		Usage:     "decompress a bloscpack file",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:               "force",
				Aliases:            []string{"f"},
				Usage:              "force overwrite of output file",
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:    "no-check-extension",
				Aliases: []string{"e"},
				Usage:   "do not require a .blp suffix on the input path",
			},
			&cli.IntFlag{
				Name:    "nthreads",
				Aliases: []string{"n"},
				Usage:   "thread count passed to the codec adapter, 1-256",
				Value:   1,
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
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("%w: PATH is required", ErrFlagParse)
			}
			return runDecompress(c, path)
		},
	}
}

func runDecompress(c *cli.Context, path string) error {
	logger := newLogger(c.Bool("verbose"), c.Bool("debug"))

	checkExtension := !c.Bool("no-check-extension")
	if checkExtension && !strings.HasSuffix(path, ".blp") {
		return fmt.Errorf("%w: %q does not end in .blp", bloscpack.ErrExtensionMismatch, path)
	}

	newPath := strings.TrimSuffix(path, ".blp")
	if newPath == path {
		newPath += ".out"
	}

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

	opts := bloscpack.DefaultDecompressOptions()
	opts.Nthreads = c.Int("nthreads")
	opts.CheckExtension = checkExtension

	_ = level.Debug(logger).Log("msg", "decompressing", "path", path)

	value, err := bloscpack.DecompressStream(src, dst, opts)
	if err != nil {
		if errors.Is(err, bloscpack.ErrChunkChecksumMismatch) {
			return fmt.Errorf("%w: %q is corrupt", err, path)
		}
		return err
	}

	_ = level.Info(logger).Log("msg", "decompressed", "path", newPath, "has_metadata", value != nil)
	if value != nil {
		_ = level.Debug(logger).Log("msg", "metadata", "value", fmt.Sprintf("%v", value))
	}

	return nil
}
