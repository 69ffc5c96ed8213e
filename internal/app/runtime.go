// Package app implements the application layer for voo.
package app

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/voo/internal/adapters/fs"       //nolint:depguard // Wired in app layer
	"go.trai.ch/voo/internal/adapters/resolver" //nolint:depguard // Wired in app layer
	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports"
	"go.trai.ch/voo/internal/engine/grouper"
	"go.trai.ch/voo/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// Runtime is the host-facing cache engine. The host loader hook feeds it load
// events and resolution requests; the runtime groups members, restores and
// compiles their combined source, and keeps the persistence scheduler fed.
//
// All entry points serialize on one lock, which the scheduler's timer
// callbacks share, so groups are never touched from two execution contexts
// at once.
type Runtime struct {
	mu sync.Mutex

	opts     domain.Options
	gate     *domain.IntegrityGate
	logger   ports.Logger
	clock    clockwork.Clock
	engine   ports.ScriptEngine
	resolver *resolver.CachingResolver
	policy   *grouper.Policy
	sched    *scheduler.Scheduler

	drained bool
}

// NewRuntime creates a Runtime. engine and hostResolver come from the host;
// everything else is wired from adapters.
func NewRuntime(
	opts domain.Options,
	store ports.RecordStore,
	hasher ports.Hasher,
	engine ports.ScriptEngine,
	hostResolver ports.Resolver,
	logger ports.Logger,
	clock clockwork.Clock,
) (*Runtime, error) {
	if engine == nil {
		return nil, domain.ErrNoEngine
	}
	if hostResolver == nil {
		return nil, domain.ErrNoResolver
	}

	gate := domain.NewIntegrityGate(trustToken(opts, hasher, logger), opts.TrustedRoot, opts.CacheOnly)

	r := &Runtime{
		opts:   opts,
		gate:   gate,
		logger: logger,
		clock:  clock,
		engine: engine,
	}
	r.resolver = resolver.New(hostResolver, gate, logger, r.recordResolution)
	r.policy = grouper.New(store, gate, fs.NewVerifier(gate), logger, clock, grouper.Hooks{
		Restored: func(g *domain.Group) { r.resolver.Preload(g.Resolutions()) },
	})
	r.sched = scheduler.New(store, gate, logger, clock, &r.mu, opts, nil)

	if n, err := store.PruneTemps(); err == nil && n > 0 {
		logger.Info(fmt.Sprintf("pruned %d leftover temp files", n))
	}
	return r, nil
}

// Track routes a load event: member id is about to be loaded as a script
// with the given source bytes. src may be nil when the host has not read the
// file; a cached member is then validated against disk instead.
func (r *Runtime) Track(id string, src []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drained {
		return domain.ErrGroupClosed
	}

	id = filepath.Clean(id)
	r.logger.Debug(fmt.Sprintf("tracking member %q", id))
	_, err := r.policy.Observe(id, src)
	return err
}

// Done marks the end of the load event opened by the matching Track.
func (r *Runtime) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy.Done()
}

// UnitFor returns the compiled unit for the group owning member id,
// compiling the group's combined source first if needed. The stored artifact
// is offered to the engine; if the engine rejects it the group is treated as
// never optimized and recompiled from source.
func (r *Runtime) UnitFor(id string) (domain.CompiledUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id = filepath.Clean(id)
	g, ok := r.policy.Owner(id)
	if !ok {
		return nil, zerr.With(domain.ErrUnknownMember, "member", id)
	}
	return r.compile(g)
}

// Resolve answers a resolution request issued while fromMember was loading.
func (r *Runtime) Resolve(request, fromMember string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolver.ResolveFrom(request, filepath.Clean(fromMember))
}

// Persist writes the group owning member id to disk immediately.
func (r *Runtime) Persist(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.policy.Owner(filepath.Clean(id))
	if !ok {
		return false
	}
	return r.sched.Persist(g)
}

// Drain is the exit sequence: every live group gets one last restructure and
// a shot at persistence within the wall-clock budget. The runtime is spent
// afterwards; further tracking is refused.
func (r *Runtime) Drain() (persisted, deferred int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drained {
		return 0, 0
	}
	r.drained = true
	return r.sched.Flush(r.policy.Groups())
}

// Groups returns the groups alive this run, in creation order.
func (r *Runtime) Groups() []*domain.Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policy.Groups()
}

func (r *Runtime) compile(g *domain.Group) (domain.CompiledUnit, error) {
	if u := g.Unit(); u != nil {
		return u, nil
	}
	if g.Len() == 0 {
		return nil, zerr.With(domain.ErrNotCompiled, "group", g.Name())
	}

	unit, err := r.engine.Compile(g.CombinedSource(), g.Artifact())
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrNotCompiled.Error()), "group", g.Name())
	}
	if unit.ArtifactRejected() {
		r.logger.Warn(fmt.Sprintf("%s for group %q, treating as never optimized", domain.ErrArtifactRejected.Error(), g.Name()))
		g.ResetLifetime()
	}
	g.SetCompiled(unit, r.clock.Now())
	r.sched.Register(g)
	return unit, nil
}

// recordResolution captures a resolution result into the group owning the
// requesting member. The resolver only calls this for trust-covered members.
func (r *Runtime) recordResolution(fromMember, key, value string) {
	if g, ok := r.policy.Owner(fromMember); ok {
		g.RecordResolution(key, value)
	}
}

// trustToken digests the first available trust source. No trust source means
// a zero token: captured resolutions are never reused.
func trustToken(opts domain.Options, hasher ports.Hasher, logger ports.Logger) domain.Token {
	for _, src := range opts.TrustSources {
		digest, err := hasher.DigestFile(src)
		if err != nil {
			logger.Debug(fmt.Sprintf("trust source %q unavailable", src))
			continue
		}
		logger.Debug(fmt.Sprintf("trust token from %q", src))
		return domain.TokenFromDigest(digest)
	}
	return domain.Token{}
}
