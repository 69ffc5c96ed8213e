package ports

// Hasher defines the interface for the weak content hash used as a cache key
// and staleness token. The hash is deliberately not collision-free; callers
// detect collisions rather than assume uniqueness.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// DigestString returns the fixed-length digest of an arbitrary string.
	DigestString(s string) string

	// DigestFile returns the digest of a file's content.
	DigestFile(path string) (string, error)
}
