package bloscpack

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestCompressConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		mod  func(c CompressConfig) CompressConfig
		err  error
	}{
		{name: "defaults are valid", mod: func(c CompressConfig) CompressConfig { return c }},
		{name: "chunk size max is valid", mod: func(c CompressConfig) CompressConfig {
			c.ChunkSize = ChunkSizeMax
			return c
		}},
		{name: "chunk size zero", mod: func(c CompressConfig) CompressConfig {
			c.ChunkSize = 0
			return c
		}, err: ErrChunkSizeOutOfRange},
		{name: "typesize too large", mod: func(c CompressConfig) CompressConfig {
			c.Typesize = 256
			return c
		}, err: ErrTypesizeInvalid},
		{name: "nthreads zero", mod: func(c CompressConfig) CompressConfig {
			c.Nthreads = 0
			return c
		}, err: ErrNthreadsOutOfRange},
		{name: "unknown codec", mod: func(c CompressConfig) CompressConfig {
			c.Codec = "made-up"
			return c
		}, err: ErrUnknownCodec},
		{name: "unknown checksum", mod: func(c CompressConfig) CompressConfig {
			c.Checksum = "made-up"
			return c
		}, err: ErrUnknownChecksum},
		{name: "negative max app chunks override", mod: func(c CompressConfig) CompressConfig {
			c.MaxAppChunksOverride = -1
			return c
		}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := tc.mod(DefaultCompressConfig())
			err := cfg.validate()
			if tc.name == "negative max app chunks override" {
				if err == nil {
					t.Fatalf("validate: got nil error, want non-nil")
				}
				return
			}
			if diff := cmp.Diff(tc.err, err, cmpopts.EquateErrors()); diff != "" {
				t.Errorf("validate (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestDecompressOptionsValidate(t *testing.T) {
	t.Parallel()

	opts := DefaultDecompressOptions()
	if err := opts.validate(); err != nil {
		t.Errorf("validate: %v", err)
	}

	opts.Nthreads = 0
	if diff := cmp.Diff(ErrNthreadsOutOfRange, opts.validate(), cmpopts.EquateErrors()); diff != "" {
		t.Errorf("validate (-want, +got):\n%s", diff)
	}
}
