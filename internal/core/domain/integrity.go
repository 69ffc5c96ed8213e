package domain

import (
	"path/filepath"
	"strings"
)

// IntegrityGate decides whether previously captured resolution results may be
// trusted this run. Trust comes from an externally supplied token (the weak
// digest of a trust source such as a package manifest) or from explicit
// cache-only mode. The gate itself does no I/O; the token is computed at
// startup from Options.
type IntegrityGate struct {
	token     Token
	root      string
	cacheOnly bool
}

// NewIntegrityGate builds a gate from a computed token and options.
func NewIntegrityGate(token Token, trustedRoot string, cacheOnly bool) *IntegrityGate {
	root := trustedRoot
	if root != "" {
		root = filepath.Clean(root)
	}
	return &IntegrityGate{token: token, root: root, cacheOnly: cacheOnly}
}

// Token returns the integrity token written into persisted records.
func (g *IntegrityGate) Token() Token { return g.token }

// CacheOnly reports whether all freshness comparisons are skipped.
func (g *IntegrityGate) CacheOnly() bool { return g.cacheOnly }

// Trusted reports whether captured resolutions may be reused at all:
// either a trust token is present or cache-only mode is active.
func (g *IntegrityGate) Trusted() bool {
	return g.cacheOnly || !g.token.IsZero()
}

// Covers reports whether the member identifier falls under the trusted root.
// Members under the root bypass the expensive byte-for-byte comparison and
// are eligible for resolution capture.
func (g *IntegrityGate) Covers(id string) bool {
	if g.cacheOnly {
		return true
	}
	if g.token.IsZero() || g.root == "" {
		return false
	}
	if id == g.root {
		return true
	}
	return strings.HasPrefix(id, g.root+string(filepath.Separator))
}

// Accepts reports whether a restored record's token matches this run's trust
// token. A mismatch means the trust source changed: captured resolutions are
// discarded, member sources fall back to the byte comparison.
func (g *IntegrityGate) Accepts(recorded Token) bool {
	if g.cacheOnly {
		return true
	}
	return !g.token.IsZero() && g.token == recorded
}
