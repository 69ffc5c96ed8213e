// Package fs implements filesystem-facing adapters: the weak content hasher
// and the member freshness verifier.
package fs

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/voo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// digestBits is the digest width in hex characters. 13 characters fit the
// record's integrity token field exactly.
const digestBits = 13

// digestMask keeps the low 52 bits of the 64-bit sum so the digest always
// formats to exactly 13 hex characters.
const digestMask = (uint64(1) << (4 * digestBits)) - 1

// Hasher produces the weak digests used as cache filenames and staleness
// tokens. The digest is cheap and deterministic, not collision-free;
// collisions are tolerated by the store's name re-check.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// DigestString returns the 13-character hex digest of an arbitrary string.
func (h *Hasher) DigestString(s string) string {
	return fmt.Sprintf("%013x", xxhash.Sum64String(s)&digestMask)
}

// DigestFile returns the digest of a file's content.
func (h *Hasher) DigestFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return fmt.Sprintf("%013x", hasher.Sum64()&digestMask), nil
}
