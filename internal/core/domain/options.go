package domain

import "time"

// DefaultPersistBudget bounds the shutdown flush wall clock.
const DefaultPersistBudget = 100 * time.Millisecond

// Verbosity gates diagnostic emission. It has no behavioral effect.
type Verbosity string

const (
	// VerbosityWarning emits warnings only.
	VerbosityWarning Verbosity = "warning"
	// VerbosityInfo additionally emits cache-miss and persist notices.
	VerbosityInfo Verbosity = "info"
	// VerbosityVerbose additionally emits per-member tracking details.
	VerbosityVerbose Verbosity = "verbose"
)

// Options is the recognized configuration surface of the engine.
type Options struct {
	// CacheDir overrides where records are read and written.
	CacheDir string

	// TrustSources are candidate files (e.g. package manifests) whose weak
	// digest supplies the integrity token. The first one that exists wins.
	TrustSources []string

	// TrustedRoot is the subtree under which previously captured resolution
	// results may be trusted when the token matches.
	TrustedRoot string

	// CacheOnly skips all freshness comparisons; cached bytes and resolutions
	// are always trusted. The caller accepts the risk.
	CacheOnly bool

	// NoPersist disables both the adaptive timer and the shutdown flush.
	NoPersist bool

	// PersistBudget bounds the shutdown flush. Zero means DefaultPersistBudget.
	PersistBudget time.Duration

	// Verbosity selects the diagnostic level.
	Verbosity Verbosity
}

// Budget returns the effective shutdown flush budget.
func (o Options) Budget() time.Duration {
	if o.PersistBudget <= 0 {
		return DefaultPersistBudget
	}
	return o.PersistBudget
}
