package fs

import (
	"bytes"
	"errors"
	"io/fs"
	"os"

	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/zerr"
)

// Verifier decides whether a cached member's source may be trusted this run.
type Verifier struct {
	gate *domain.IntegrityGate
}

// NewVerifier creates a Verifier over the given integrity gate.
func NewVerifier(gate *domain.IntegrityGate) *Verifier {
	return &Verifier{gate: gate}
}

// Check reports whether the cached bytes for the member are still good.
// Cache-only mode trusts unconditionally; members under the trusted root
// bypass the comparison; everything else is compared byte-for-byte against a
// fresh read of the real file. On a mismatch the freshly read bytes are
// returned so the caller can refresh the member without a second read. A
// member whose file vanished is stale with nil fresh bytes, not an error.
func (v *Verifier) Check(id string, cached []byte) (bool, []byte, error) {
	if v.gate.CacheOnly() {
		return true, nil, nil
	}
	if v.gate.Covers(id) {
		return true, nil, nil
	}

	current, err := os.ReadFile(id) //nolint:gosec // Member identifiers are normalized paths from the loader
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil, nil
		}
		return false, nil, zerr.With(zerr.Wrap(err, domain.ErrMemberReadFailed.Error()), "path", id)
	}

	if !bytes.Equal(cached, current) {
		return false, current, nil
	}
	return true, nil, nil
}
