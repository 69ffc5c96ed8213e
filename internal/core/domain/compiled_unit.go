package domain

// CompiledUnit is the engine-produced handle for a group's combined source.
// The engine is opaque to this package; the unit only needs to run, report
// whether the prior artifact was accepted, and emit a fresh artifact from its
// current compiled state.
type CompiledUnit interface {
	// Run executes the combined source and returns its exports.
	Run() (any, error)

	// ArtifactRejected reports whether the engine discarded the prior artifact
	// supplied at compile time. A rejected artifact resets recorded hotness.
	ArtifactRejected() bool

	// Artifact extracts acceleration data from the unit's compiled state.
	Artifact() ([]byte, error)
}
