// Package grouper implements the grouping policy for load events.
package grouper

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports"
)

// SourceVerifier checks a member's cached bytes against the real file.
// Satisfied by fs.Verifier.
type SourceVerifier interface {
	Check(id string, cached []byte) (valid bool, fresh []byte, err error)
}

// Hooks are optional notifications the policy emits while routing.
type Hooks struct {
	// GroupOpened fires once for every group that comes to life, fresh or
	// restored, before its seed member is routed through it.
	GroupOpened func(*domain.Group)
	// Restored fires for a restored group whose integrity token matched this
	// run's trust token, so captured resolutions may be reused.
	Restored func(*domain.Group)
}

// Policy routes every load event to a group. It keeps a stack of in-flight
// load contexts: each Observe pushes the routed group and each Done pops it,
// so nested loads join the group of the member that triggered them. Files
// loaded contiguously under an open group belong together; a load that does
// not fit the current context chains a new group off the old one's name.
//
// Not safe for concurrent use. The runtime serializes all routing.
type Policy struct {
	store    ports.RecordStore
	gate     *domain.IntegrityGate
	verifier SourceVerifier
	logger   ports.Logger
	clock    clockwork.Clock
	hooks    Hooks

	stack    []*domain.Group
	groups   []*domain.Group
	byMember map[string]*domain.Group
}

// New creates a grouping policy.
func New(
	store ports.RecordStore,
	gate *domain.IntegrityGate,
	verifier SourceVerifier,
	logger ports.Logger,
	clock clockwork.Clock,
	hooks Hooks,
) *Policy {
	return &Policy{
		store:    store,
		gate:     gate,
		verifier: verifier,
		logger:   logger,
		clock:    clock,
		hooks:    hooks,
		byMember: make(map[string]*domain.Group),
	}
}

// Observe routes a load event for member id carrying its source bytes. src
// may be nil when the host did not read the file; the bytes are then fetched
// through the verifier, and a known member of a closed group is validated
// against the real file instead. The routed group is pushed as the current
// load context until the matching Done.
func (p *Policy) Observe(id string, src []byte) (*domain.Group, error) {
	if owner, ok := p.byMember[id]; ok {
		if err := p.revisit(owner, id, src); err != nil {
			return nil, err
		}
		p.stack = append(p.stack, owner)
		return owner, nil
	}

	if top := p.top(); top != nil && top.Open() {
		if src == nil {
			src = p.fetch(id)
		}
		if src == nil {
			// No bytes to cache yet. Route the context anyway; membership
			// waits for a later load event that carries the source.
			p.stack = append(p.stack, top)
			return top, nil
		}
		if err := top.Track(id, src); err != nil {
			return nil, err
		}
		p.byMember[id] = top
		p.stack = append(p.stack, top)
		return top, nil
	}

	name := id
	if top := p.top(); top != nil {
		name = top.Name() + domain.NameSeparator + id
	}
	g, err := p.open(name, id, src)
	if err != nil {
		return nil, err
	}
	p.stack = append(p.stack, g)
	return g, nil
}

// Done pops the current load context. Calls are paired with Observe.
func (p *Policy) Done() {
	if len(p.stack) == 0 {
		return
	}
	p.stack = p.stack[:len(p.stack)-1]
}

// Owner returns the group a member was routed to, if any.
func (p *Policy) Owner(id string) (*domain.Group, bool) {
	g, ok := p.byMember[id]
	return g, ok
}

// Groups returns every group that came to life this run, in creation order.
func (p *Policy) Groups() []*domain.Group {
	out := make([]*domain.Group, len(p.groups))
	copy(out, p.groups)
	return out
}

// Depth returns the current load context nesting depth.
func (p *Policy) Depth() int { return len(p.stack) }

func (p *Policy) top() *domain.Group {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

// revisit handles a load event for a member that already belongs to a group.
// Open groups take the event as a track; closed groups only note the
// observation and check the cached bytes for staleness.
func (p *Policy) revisit(g *domain.Group, id string, src []byte) error {
	if g.Open() {
		if src == nil {
			src = p.fetch(id)
		}
		if src == nil {
			g.MarkObserved(id)
			return nil
		}
		return g.Track(id, src)
	}

	g.MarkObserved(id)
	if p.gate.CacheOnly() || p.gate.Covers(id) {
		return nil
	}

	if src != nil {
		return g.Refresh(id, src)
	}

	cached, _ := g.Source(id)
	valid, fresh, err := p.verifier.Check(id, cached)
	if err != nil {
		// Unreadable member file. Keep the cached bytes and let the host's
		// own load surface the real failure.
		p.logger.Error(err)
		return nil
	}
	if !valid {
		p.logger.Warn(fmt.Sprintf("cached source for %q is stale", id))
		if fresh != nil {
			return g.Refresh(id, fresh)
		}
	}
	return nil
}

// open brings a group named name to life for the seed member, restoring it
// from disk when a usable record exists. Any load failure is treated as no
// cache; a fresh group takes its place.
func (p *Policy) open(name, seed string, src []byte) (*domain.Group, error) {
	rec, err := p.store.Load(name)
	if err != nil {
		p.logger.Warn(fmt.Sprintf("unusable cache record for %q, compiling fresh", name))
		p.logger.Error(err)
		rec = nil
	}

	var g *domain.Group
	if rec != nil && recordHasMember(rec, seed) {
		accepted := p.gate.Accepts(rec.IntegrityToken)
		if !accepted {
			// The trust source changed; captured resolutions are worthless.
			rec.Resolved = nil
		}
		g = domain.RestoreGroup(rec, p.clock.Now())
		p.logger.Debug(fmt.Sprintf("restored group %q with %d members", name, g.Len()))
		if p.hooks.GroupOpened != nil {
			p.hooks.GroupOpened(g)
		}
		if accepted && p.hooks.Restored != nil {
			p.hooks.Restored(g)
		}
		if err := p.revisit(g, seed, src); err != nil {
			return nil, err
		}
	} else {
		g = domain.NewGroup(name, p.clock.Now())
		if p.hooks.GroupOpened != nil {
			p.hooks.GroupOpened(g)
		}
		if src == nil {
			src = p.fetch(seed)
		}
		if src != nil {
			if err := g.Track(seed, src); err != nil {
				return nil, err
			}
		}
	}

	p.groups = append(p.groups, g)
	for _, m := range g.MemberIDs() {
		p.byMember[m] = g
	}
	p.byMember[seed] = g
	return g, nil
}

// fetch reads a member's current source through the verifier when the load
// event carried none. Members the gate trusts without reading and unreadable
// files yield nil; the member is then never cached with empty bytes.
func (p *Policy) fetch(id string) []byte {
	_, fresh, err := p.verifier.Check(id, nil)
	if err != nil {
		p.logger.Error(err)
		return nil
	}
	return fresh
}

func recordHasMember(rec *domain.GroupRecord, id string) bool {
	for _, m := range rec.Members {
		if m.Key == id {
			return true
		}
	}
	return false
}
