package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/kit/log/level"
	"github.com/urfave/cli/v2"

	"github.com/bloscpack/go-bloscpack"
)

func appendCommand() *cli.Command {
	flags := append([]cli.Flag{
		&cli.BoolFlag{
			Name:    "no-check-extension",
			Aliases: []string{"e"},
			Usage:   "do not require a .blp suffix on the container path",
		},
	}, codecFlags()...)

	return &cli.Command{
		Name:      "append",
		Aliases:   []string{"a"},
		Usage:     "append the contents of a file to an existing bloscpack container",
		ArgsUsage: "CONTAINER INPUT",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			containerPath := c.Args().Get(0)
			inputPath := c.Args().Get(1)
			if containerPath == "" || inputPath == "" {
				return fmt.Errorf("%w: CONTAINER and INPUT are required", ErrFlagParse)
			}

			cfg := codecConfigFromContext(c)

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

			return runAppend(c, containerPath, inputPath, cfg)
		},
	}
}

func runAppend(c *cli.Context, containerPath, inputPath string, cfg bloscpack.CompressConfig) error {
	logger := newLogger(c.Bool("verbose"), c.Bool("debug"))

	if !c.Bool("no-check-extension") && !strings.HasSuffix(containerPath, ".blp") {
		return fmt.Errorf("%w: %q does not end in .blp", bloscpack.ErrExtensionMismatch, containerPath)
	}

	container, err := os.OpenFile(containerPath, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", bloscpack.ErrFileNotFound, containerPath)
		}
		return fmt.Errorf("%w: opening container: %w", bloscpack.ErrBloscpack, err)
	}
	defer container.Close()

	input, err := os.Open(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", bloscpack.ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("%w: opening input: %w", bloscpack.ErrBloscpack, err)
	}
	defer input.Close()

	_ = level.Debug(logger).Log("msg", "appending", "container", containerPath, "input", inputPath, "codec", cfg.Codec)

	stats, err := bloscpack.AppendStream(container, input, cfg)
	if err != nil {
		return err
	}

	_ = level.Info(logger).Log("msg", "appended", "container", containerPath,
		"nchunks", stats.NChunks, "added", stats.UncompressedSize, "remaining_app_chunks", stats.MaxAppChunks)

	return nil
}
