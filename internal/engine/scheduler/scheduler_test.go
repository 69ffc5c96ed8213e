package scheduler_test

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports/mocks"
	"go.trai.ch/voo/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type fakeUnit struct {
	artifact []byte
	rejected bool
}

func (f *fakeUnit) Run() (any, error) { return nil, nil }

func (f *fakeUnit) ArtifactRejected() bool { return f.rejected }

func (f *fakeUnit) Artifact() ([]byte, error) { return f.artifact, nil }

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()
	return logger
}

func openGate() *domain.IntegrityGate {
	return domain.NewIntegrityGate(domain.Token{}, "", false)
}

func seededRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func trackedGroup(t *testing.T, clock clockwork.Clock, name string) *domain.Group {
	t.Helper()
	g := domain.NewGroup(name, clock.Now())
	require.NoError(t, g.Track(name, []byte("module.exports = 1;")))
	return g
}

func TestScheduler_TimerPersistsAndReschedules(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	var saves atomic.Int32
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Save(gomock.Any()).DoAndReturn(func(*domain.GroupRecord) error {
		saves.Add(1)
		return nil
	}).AnyTimes()

	var mu sync.Mutex
	s := scheduler.New(store, openGate(), quietLogger(ctrl), clock, &mu, domain.Options{}, seededRand())

	g := trackedGroup(t, clock, "a.js")
	g.SetCompiled(&fakeUnit{artifact: []byte("art")}, clock.Now())

	mu.Lock()
	s.Register(g)
	mu.Unlock()

	// Zero recorded lifetime clamps the first delay to the floor.
	clock.Advance(scheduler.TimerFloor)
	require.Eventually(t, func() bool { return saves.Load() == 1 }, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, domain.StatePersisted, g.State())
	mu.Unlock()

	// The timer re-arms off the updated lifetime.
	clock.Advance(scheduler.TimerCeil)
	require.Eventually(t, func() bool { return saves.Load() == 2 }, time.Second, time.Millisecond)
}

func TestScheduler_FlushPersistsFreshGroups(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Save(gomock.Any()).Return(nil).Times(3)

	var mu sync.Mutex
	s := scheduler.New(store, openGate(), quietLogger(ctrl), clock, &mu, domain.Options{}, seededRand())

	groups := []*domain.Group{
		trackedGroup(t, clock, "a.js"),
		trackedGroup(t, clock, "b.js"),
		trackedGroup(t, clock, "c.js"),
	}

	mu.Lock()
	persisted, deferred := s.Flush(groups)
	mu.Unlock()

	assert.Equal(t, 3, persisted)
	assert.Equal(t, 0, deferred)
}

func TestScheduler_FlushSkipsEmptyGroups(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	store := mocks.NewMockRecordStore(ctrl)

	var mu sync.Mutex
	s := scheduler.New(store, openGate(), quietLogger(ctrl), clock, &mu, domain.Options{}, seededRand())

	mu.Lock()
	persisted, deferred := s.Flush([]*domain.Group{domain.NewGroup("empty", clock.Now())})
	mu.Unlock()

	assert.Equal(t, 0, persisted)
	assert.Equal(t, 0, deferred)
}

func TestScheduler_FlushHonorsWallClockBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	store := mocks.NewMockRecordStore(ctrl)
	// Every save burns more than the whole budget.
	store.EXPECT().Save(gomock.Any()).DoAndReturn(func(*domain.GroupRecord) error {
		clock.Advance(200 * time.Millisecond)
		return nil
	}).Times(1)

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).Times(1)

	var mu sync.Mutex
	opts := domain.Options{PersistBudget: 100 * time.Millisecond}
	s := scheduler.New(store, openGate(), logger, clock, &mu, opts, seededRand())

	groups := []*domain.Group{
		trackedGroup(t, clock, "a.js"),
		trackedGroup(t, clock, "b.js"),
		trackedGroup(t, clock, "c.js"),
	}

	mu.Lock()
	persisted, deferred := s.Flush(groups)
	mu.Unlock()

	assert.Equal(t, 1, persisted)
	assert.Equal(t, 2, deferred)
}

func TestScheduler_RetentionProbability(t *testing.T) {
	// A group hot for 10s of recorded lifetime that has only run 5s this
	// session should be kept roughly half the time.
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	var saves atomic.Int32
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Save(gomock.Any()).DoAndReturn(func(*domain.GroupRecord) error {
		saves.Add(1)
		return nil
	}).AnyTimes()

	rng := seededRand()
	logger := quietLogger(ctrl)
	var mu sync.Mutex

	const rounds = 400
	start := clock.Now()
	rec := &domain.GroupRecord{
		Version:    domain.RecordVersion,
		LifetimeMS: 10_000,
		Name:       "a.js",
		Members:    []domain.MemberRecord{{Key: "a.js", Source: []byte("a")}},
	}
	clock.Advance(5 * time.Second)

	for range rounds {
		g := domain.RestoreGroup(rec, start)
		g.MarkObserved("a.js")
		g.SetCompiled(&fakeUnit{}, clock.Now())

		s := scheduler.New(store, openGate(), logger, clock, &mu, domain.Options{}, rng)
		mu.Lock()
		s.Flush([]*domain.Group{g})
		mu.Unlock()
	}

	kept := int(saves.Load())
	assert.Greater(t, kept, rounds*35/100)
	assert.Less(t, kept, rounds*65/100)
}

func TestScheduler_RetentionAlwaysKeepsUntimedGroups(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Save(gomock.Any()).Return(nil).Times(1)

	var mu sync.Mutex
	s := scheduler.New(store, openGate(), quietLogger(ctrl), clock, &mu, domain.Options{}, seededRand())

	// Recorded lifetime but timing never started this run: always kept.
	rec := &domain.GroupRecord{
		Version:    domain.RecordVersion,
		LifetimeMS: 1_000_000,
		Name:       "a.js",
		Members:    []domain.MemberRecord{{Key: "a.js", Source: []byte("a")}},
	}
	g := domain.RestoreGroup(rec, clock.Now())
	g.MarkObserved("a.js")

	mu.Lock()
	persisted, _ := s.Flush([]*domain.Group{g})
	mu.Unlock()
	assert.Equal(t, 1, persisted)
}

func TestScheduler_FlushRestructuresFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()

	// 101 dead members crosses the member threshold; only the observed one survives.
	members := []domain.MemberRecord{{Key: "keep.js", Source: []byte("k")}}
	for i := range 101 {
		members = append(members, domain.MemberRecord{Key: fmt.Sprintf("dead-%d.js", i), Source: []byte("x")})
	}

	var saved *domain.GroupRecord
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Save(gomock.Any()).DoAndReturn(func(rec *domain.GroupRecord) error {
		saved = rec
		return nil
	}).Times(1)

	var mu sync.Mutex
	s := scheduler.New(store, openGate(), quietLogger(ctrl), clock, &mu, domain.Options{}, seededRand())

	g := domain.RestoreGroup(&domain.GroupRecord{
		Version: domain.RecordVersion,
		Name:    "keep.js",
		Members: members,
	}, clock.Now())
	g.MarkObserved("keep.js")

	mu.Lock()
	persisted, _ := s.Flush([]*domain.Group{g})
	mu.Unlock()

	require.Equal(t, 1, persisted)
	require.NotNil(t, saved)
	require.Len(t, saved.Members, 1)
	assert.Equal(t, "keep.js", saved.Members[0].Key)
}

func TestScheduler_NoPersistDisablesEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	store := mocks.NewMockRecordStore(ctrl)

	var mu sync.Mutex
	s := scheduler.New(store, openGate(), quietLogger(ctrl), clock, &mu, domain.Options{NoPersist: true}, seededRand())

	g := trackedGroup(t, clock, "a.js")
	mu.Lock()
	s.Register(g)
	assert.False(t, s.Persist(g))
	persisted, deferred := s.Flush([]*domain.Group{g})
	mu.Unlock()

	clock.Advance(2 * scheduler.TimerCeil)
	assert.Equal(t, 0, persisted)
	assert.Equal(t, 0, deferred)
}

func TestScheduler_TimerRetriesAfterPersistFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	var saves atomic.Int32
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Save(gomock.Any()).DoAndReturn(func(*domain.GroupRecord) error {
		if saves.Add(1) == 1 {
			return assert.AnError
		}
		return nil
	}).AnyTimes()

	var mu sync.Mutex
	s := scheduler.New(store, openGate(), quietLogger(ctrl), clock, &mu, domain.Options{}, seededRand())

	g := trackedGroup(t, clock, "a.js")
	g.SetCompiled(&fakeUnit{artifact: []byte("art")}, clock.Now())

	mu.Lock()
	s.Register(g)
	mu.Unlock()

	clock.Advance(scheduler.TimerFloor)
	require.Eventually(t, func() bool { return saves.Load() == 1 }, time.Second, time.Millisecond)

	mu.Lock()
	assert.NotEqual(t, domain.StatePersisted, g.State())
	mu.Unlock()

	// The timer stays armed, so the write is retried at the next interval.
	clock.Advance(scheduler.TimerCeil)
	require.Eventually(t, func() bool { return saves.Load() == 2 }, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, domain.StatePersisted, g.State())
	mu.Unlock()
}

func TestScheduler_PersistFailureIsDeferred(t *testing.T) {
	ctrl := gomock.NewController(t)
	clock := clockwork.NewFakeClock()
	store := mocks.NewMockRecordStore(ctrl)
	store.EXPECT().Save(gomock.Any()).Return(assert.AnError).Times(1)

	var mu sync.Mutex
	s := scheduler.New(store, openGate(), quietLogger(ctrl), clock, &mu, domain.Options{}, seededRand())

	g := trackedGroup(t, clock, "a.js")
	mu.Lock()
	ok := s.Persist(g)
	mu.Unlock()

	assert.False(t, ok)
	assert.NotEqual(t, domain.StatePersisted, g.State())
}
