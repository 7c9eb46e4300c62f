package main

import (
	"os"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// newLogger builds the CLI's structured progress logger. The bloscpack
// package itself never logs; --verbose and --debug are purely a CLI
// concern layered on top of the Stats/Info values the library returns.
func newLogger(verbose, debug bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	switch {
	case debug:
		logger = level.NewFilter(logger, level.AllowDebug())
	case verbose:
		logger = level.NewFilter(logger, level.AllowInfo())
	default:
		logger = level.NewFilter(logger, level.AllowWarn())
	}
	return logger
}
