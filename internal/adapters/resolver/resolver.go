// Package resolver implements the caching resolution middleware.
package resolver

import (
	"fmt"
	"path/filepath"

	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports"
)

// keySeparator joins the request and the requesting directory into one cache
// key. NUL cannot occur in either part.
const keySeparator = "\x00"

// Key builds the process-wide cache key for a resolution request issued from
// a member file.
func Key(request, fromMember string) string {
	return request + keySeparator + filepath.Dir(fromMember)
}

// RecordFunc receives a resolution result for capture into the group owning
// fromMember.
type RecordFunc func(fromMember, key, value string)

// CachingResolver wraps the host's real resolver with the run-wide resolution
// cache. When the integrity gate grants trust, cached results short-circuit
// the wrapped resolver entirely; otherwise every request falls through and
// the result is remembered for the rest of the run.
//
// Not safe for concurrent use; the runtime serializes all resolution.
type CachingResolver struct {
	next   ports.Resolver
	gate   *domain.IntegrityGate
	logger ports.Logger
	record RecordFunc
	cache  map[string]string
}

// New creates a CachingResolver around the host resolver. record may be nil
// when no capture into groups is wanted.
func New(next ports.Resolver, gate *domain.IntegrityGate, logger ports.Logger, record RecordFunc) *CachingResolver {
	return &CachingResolver{
		next:   next,
		gate:   gate,
		logger: logger,
		record: record,
		cache:  make(map[string]string),
	}
}

// Preload seeds the run-wide cache from a restored resolution table. The
// caller has already verified the record's integrity token.
func (r *CachingResolver) Preload(entries []domain.ResolveRecord) {
	for _, e := range entries {
		if _, ok := r.cache[e.Key]; !ok {
			r.cache[e.Key] = e.Value
		}
	}
}

// Len returns the number of cached resolutions.
func (r *CachingResolver) Len() int { return len(r.cache) }

// ResolveFrom resolves request on behalf of the member file fromMember.
// Trusted cache hits never reach the wrapped resolver.
func (r *CachingResolver) ResolveFrom(request, fromMember string) (string, error) {
	key := Key(request, fromMember)

	if r.gate.Trusted() {
		if value, ok := r.cache[key]; ok {
			r.logger.Debug(fmt.Sprintf("resolution cache hit for %q", request))
			return value, nil
		}
	}

	value, err := r.next.Resolve(request, filepath.Dir(fromMember))
	if err != nil {
		return "", err
	}

	r.cache[key] = value
	if r.record != nil && r.gate.Trusted() && r.gate.Covers(fromMember) {
		r.record(fromMember, key, value)
	}
	return value, nil
}
