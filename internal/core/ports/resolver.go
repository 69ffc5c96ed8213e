package ports

// Resolver defines the interface for resolving a load request to a concrete
// path. The host supplies the real resolver; the engine layers a caching
// resolver over it rather than replacing it in place.
//
//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type Resolver interface {
	// Resolve resolves request relative to the directory of the requesting
	// member and returns the resolved path.
	Resolve(request, fromDir string) (string, error)
}
