// Package scheduler implements the persistence scheduler.
package scheduler

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports"
)

const (
	// TimerFloor is the minimum delay before a group is re-persisted.
	TimerFloor = time.Second
	// TimerCeil caps the re-persist delay no matter how hot a group gets.
	TimerCeil = time.Hour
)

// Scheduler decides when live groups reach disk. Two mechanisms run side by
// side: an adaptive per-group timer that re-persists a group after roughly
// its recorded hot lifetime, and a shutdown flush that persists a weighted
// random selection of the remaining groups within a wall-clock budget.
//
// Timer callbacks take the shared lock before touching any group, so they
// never run concurrently with member tracking.
type Scheduler struct {
	store  ports.RecordStore
	gate   *domain.IntegrityGate
	logger ports.Logger
	clock  clockwork.Clock
	mu     sync.Locker
	rng    *rand.Rand

	noPersist bool
	budget    time.Duration

	timers map[*domain.Group]clockwork.Timer
	closed bool
}

// New creates a Scheduler. mu is the runtime's lock serializing all group
// access; timer callbacks acquire it before firing. rng may be nil, in which
// case a self-seeded generator is used.
func New(
	store ports.RecordStore,
	gate *domain.IntegrityGate,
	logger ports.Logger,
	clock clockwork.Clock,
	mu sync.Locker,
	opts domain.Options,
	rng *rand.Rand,
) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Scheduler{
		store:     store,
		gate:      gate,
		logger:    logger,
		clock:     clock,
		mu:        mu,
		rng:       rng,
		noPersist: opts.NoPersist,
		budget:    opts.Budget(),
		timers:    make(map[*domain.Group]clockwork.Timer),
	}
}

// Register arms the adaptive re-persist timer for a group. The delay grows
// with the recorded hot lifetime, clamped to [TimerFloor, TimerCeil], so a
// group is re-saved roughly every time its lifetime doubles. Re-registering
// resets the timer off the latest lifetime.
//
// The caller holds the shared lock.
func (s *Scheduler) Register(g *domain.Group) {
	if s.noPersist || s.closed {
		return
	}
	s.schedule(g)
}

// Persist snapshots a group and writes it to disk immediately, after giving
// it a restructure pass. A write failure is deferred, not fatal: the group
// keeps its state and a later timer or flush tries again.
//
// The caller holds the shared lock.
func (s *Scheduler) Persist(g *domain.Group) bool {
	if s.noPersist {
		return false
	}
	s.restructure(g)
	if g.Len() == 0 {
		return false
	}
	return s.persist(g)
}

// Flush gives every group one last restructure, applies the retention test
// and persists the survivors in random order until the wall-clock budget is
// exhausted. Groups cut off by the budget are simply deferred to a future
// run. Flush disarms all timers; the scheduler is spent afterwards.
//
// The caller holds the shared lock.
func (s *Scheduler) Flush(groups []*domain.Group) (persisted, deferred int) {
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	clear(s.timers)

	if s.noPersist {
		return 0, 0
	}

	now := s.clock.Now()
	var candidates []*domain.Group
	for _, g := range groups {
		s.restructure(g)
		if g.Len() == 0 {
			continue
		}
		if s.retain(g, now) {
			candidates = append(candidates, g)
		}
	}

	s.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	deadline := now.Add(s.budget)
	for i, g := range candidates {
		if s.clock.Now().After(deadline) {
			deferred = len(candidates) - i
			break
		}
		if s.persist(g) {
			persisted++
		}
	}
	if deferred > 0 {
		s.logger.Warn(fmt.Sprintf("persist budget exhausted, deferred %d groups to a future run", deferred))
	}
	return persisted, deferred
}

// retain is the shutdown coin flip. A group that never recorded a lifetime
// or never started timing is always kept. Otherwise the persist probability
// is min(1, elapsedThisRun/lifetime): the longer a group has been known hot
// relative to this session, the less urgent re-saving it is.
func (s *Scheduler) retain(g *domain.Group, now time.Time) bool {
	lifetime := g.LifetimeMS()
	if lifetime <= 0 || !g.TimingStarted() {
		return true
	}
	p := float64(g.ElapsedThisRun(now).Milliseconds()) / float64(lifetime)
	if p >= 1 {
		return true
	}
	return s.rng.Float64() < p
}

func (s *Scheduler) schedule(g *domain.Group) {
	if t, ok := s.timers[g]; ok {
		t.Stop()
	}
	delay := clampLifetime(g.LifetimeMS())
	s.timers[g] = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.restructure(g)
		if g.Len() == 0 {
			return
		}
		// A failed write keeps the timer armed; the next interval retries.
		s.persist(g)
		s.schedule(g)
	})
}

func (s *Scheduler) restructure(g *domain.Group) {
	if removed, freed, changed := g.Restructure(); changed {
		s.logger.Info(fmt.Sprintf("restructured group %q, shed %d members (%d bytes)", g.Name(), removed, freed))
	}
}

func (s *Scheduler) persist(g *domain.Group) bool {
	rec, err := g.Snapshot(s.clock.Now(), s.gate.Token())
	if err != nil {
		// The record is still usable with the previously held artifact.
		s.logger.Warn(fmt.Sprintf("artifact extraction failed for group %q, keeping prior artifact", g.Name()))
		s.logger.Error(err)
	}
	if err := s.store.Save(rec); err != nil {
		s.logger.Warn(fmt.Sprintf("persist failed for group %q, will retry later", g.Name()))
		s.logger.Error(err)
		return false
	}
	g.MarkPersisted()
	s.logger.Debug(fmt.Sprintf("persisted group %q (%d members, lifetime %dms)", g.Name(), g.Len(), g.LifetimeMS()))
	return true
}

func clampLifetime(ms int32) time.Duration {
	d := time.Duration(ms) * time.Millisecond
	if d < TimerFloor {
		return TimerFloor
	}
	if d > TimerCeil {
		return TimerCeil
	}
	return d
}
