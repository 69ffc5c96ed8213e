package ports

import "go.trai.ch/voo/internal/core/domain"

// ScriptEngine defines the interface to the opaque execution engine that
// turns combined source into a runnable unit, optionally accelerated by a
// previously produced artifact.
//
//go:generate go run go.uber.org/mock/mockgen -source=engine.go -destination=mocks/mock_engine.go -package=mocks
type ScriptEngine interface {
	// Compile compiles the combined source. priorArtifact may be nil; if the
	// engine refuses it, the returned unit reports ArtifactRejected and the
	// caller treats the group as never optimized.
	Compile(source []byte, priorArtifact []byte) (domain.CompiledUnit, error)
}
