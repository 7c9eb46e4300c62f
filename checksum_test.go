package bloscpack

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestChecksumIDByName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want byte
		err  error
	}{
		{name: ChecksumNone, want: 0},
		{name: ChecksumAdler32, want: 1},
		{name: ChecksumCRC32, want: 2},
		{name: ChecksumMD5, want: 3},
		{name: ChecksumSHA1, want: 4},
		{name: ChecksumSHA224, want: 5},
		{name: ChecksumSHA256, want: 6},
		{name: ChecksumSHA384, want: 7},
		{name: ChecksumSHA512, want: 8},
		{name: "bogus", err: ErrUnknownChecksum},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := checksumIDByName(tc.name)
			if diff := cmp.Diff(tc.err, err, cmpopts.EquateErrors()); diff != "" {
				t.Fatalf("checksumIDByName (-want, +got):\n%s", diff)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("checksumIDByName (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestComputeAndVerifyChecksum(t *testing.T) {
	t.Parallel()

	names := []string{
		ChecksumNone, ChecksumAdler32, ChecksumCRC32, ChecksumMD5,
		ChecksumSHA1, ChecksumSHA224, ChecksumSHA256, ChecksumSHA384, ChecksumSHA512,
	}

	for _, name := range names {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			id, err := checksumIDByName(name)
			if err != nil {
				t.Fatalf("checksumIDByName: %v", err)
			}

			buf := []byte("the quick brown fox jumps over the lazy dog")
			digest, err := computeChecksum(id, buf)
			if err != nil {
				t.Fatalf("computeChecksum: %v", err)
			}

			size, err := digestSize(id)
			if err != nil {
				t.Fatalf("digestSize: %v", err)
			}
			if diff := cmp.Diff(size, len(digest)); diff != "" {
				t.Errorf("digest size (-want, +got):\n%s", diff)
			}

			ok, err := verifyChecksum(id, buf, digest)
			if err != nil {
				t.Fatalf("verifyChecksum: %v", err)
			}
			if !ok {
				t.Errorf("verifyChecksum: got false, want true")
			}

			if name == ChecksumNone {
				return
			}
			tampered := append([]byte(nil), buf...)
			tampered[0] ^= 0xff
			ok, err = verifyChecksum(id, tampered, digest)
			if err != nil {
				t.Fatalf("verifyChecksum: %v", err)
			}
			if ok {
				t.Errorf("verifyChecksum: got true for tampered input, want false")
			}
		})
	}
}

func TestChecksumEntryByIDUnknown(t *testing.T) {
	t.Parallel()

	if _, err := checksumEntryByID(255); !cmp.Equal(err, ErrUnknownChecksum, cmpopts.EquateErrors()) {
		t.Errorf("checksumEntryByID(255): got %v, want %v", err, ErrUnknownChecksum)
	}
}
