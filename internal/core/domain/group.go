// Package domain contains the core entities of the script cache engine.
package domain

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"go.trai.ch/zerr"
)

// GroupState is the lifecycle state of a Group.
type GroupState string

const (
	// StateFresh indicates a newly created group with nothing on disk.
	StateFresh GroupState = "Fresh"
	// StateRestoredClosed indicates a group fully restored from disk. Its
	// member set is exact and no new members may be appended.
	StateRestoredClosed GroupState = "RestoredClosed"
	// StateTracking indicates an open group accumulating members.
	StateTracking GroupState = "Tracking"
	// StateCompiled indicates an engine unit exists for the current combined source.
	StateCompiled GroupState = "Compiled"
	// StatePersisted indicates the group was written to disk this run.
	StatePersisted GroupState = "Persisted"
)

// Group is the unit of caching: one bundle of co-loaded source members, the
// combined source derived from them, the engine artifact for that source, and
// the resolution results observed while the members were loading.
//
// A group is not safe for concurrent use. All mutation happens on the
// runtime's single logical thread of control.
type Group struct {
	name      string
	createdAt time.Time
	// lifetimeMS is the accumulated milliseconds the group's artifact has been
	// hot across all runs. Reset to 0 whenever members or combined source change.
	lifetimeMS int32

	state    GroupState
	restored bool

	memberOrder []string
	members     map[string][]byte
	observed    map[string]struct{}

	combined []byte
	artifact []byte
	unit     CompiledUnit

	// hotSince is when the current compiled unit went hot this run; zero if
	// timing never started.
	hotSince time.Time
	// startedAt is when the group came to life this run (creation or restore).
	startedAt time.Time

	resolvedOrder []string
	resolved      map[string]string
}

// NewGroup creates a fresh group with the given logical name.
func NewGroup(name string, now time.Time) *Group {
	return &Group{
		name:      name,
		createdAt: now,
		state:     StateFresh,
		members:   make(map[string][]byte),
		observed:  make(map[string]struct{}),
		resolved:  make(map[string]string),
		startedAt: now,
	}
}

// RestoreGroup rebuilds a group from a decoded record. The group starts
// closed: its file-by-file association with a specific member set must stay
// exact, so new members may not be appended until a restructure reopens it.
func RestoreGroup(rec *GroupRecord, now time.Time) *Group {
	g := &Group{
		name:       rec.Name,
		createdAt:  rec.CreatedTime(),
		lifetimeMS: rec.LifetimeMS,
		state:      StateRestoredClosed,
		restored:   true,
		members:    make(map[string][]byte, len(rec.Members)),
		observed:   make(map[string]struct{}),
		combined:   rec.CombinedSource,
		artifact:   rec.Artifact,
		resolved:   make(map[string]string, len(rec.Resolved)),
		startedAt:  now,
	}
	for _, m := range rec.Members {
		if _, ok := g.members[m.Key]; !ok {
			g.memberOrder = append(g.memberOrder, m.Key)
		}
		g.members[m.Key] = m.Source
	}
	for _, r := range rec.Resolved {
		if _, ok := g.resolved[r.Key]; !ok {
			g.resolvedOrder = append(g.resolvedOrder, r.Key)
		}
		g.resolved[r.Key] = r.Value
	}
	return g
}

// Name returns the group's logical identifier.
func (g *Group) Name() string { return g.name }

// State returns the group's lifecycle state.
func (g *Group) State() GroupState { return g.state }

// RestoredFromDisk reports whether this run's state came from a cache hit.
func (g *Group) RestoredFromDisk() bool { return g.restored }

// CreatedAt returns when the group was first created, surviving restores.
func (g *Group) CreatedAt() time.Time { return g.createdAt }

// LifetimeMS returns the accumulated hot milliseconds recorded so far.
func (g *Group) LifetimeMS() int32 { return g.lifetimeMS }

// Open reports whether new members may still be appended.
func (g *Group) Open() bool { return g.state != StateRestoredClosed }

// Len returns the member count.
func (g *Group) Len() int { return len(g.memberOrder) }

// Has reports whether the member belongs to the group.
func (g *Group) Has(id string) bool {
	_, ok := g.members[id]
	return ok
}

// Source returns the cached source bytes for a member.
func (g *Group) Source(id string) ([]byte, bool) {
	src, ok := g.members[id]
	return src, ok
}

// MemberIDs returns the member identifiers in insertion order.
func (g *Group) MemberIDs() []string {
	ids := make([]string, len(g.memberOrder))
	copy(ids, g.memberOrder)
	return ids
}

// Track appends a member to an open group, or refreshes it if already
// present. Tracking into a closed group fails with ErrGroupClosed; the
// grouping policy reacts by chaining a new group.
func (g *Group) Track(id string, src []byte) error {
	if g.state == StateRestoredClosed {
		return ErrGroupClosed
	}

	g.observed[id] = struct{}{}

	if old, ok := g.members[id]; ok {
		if bytes.Equal(old, src) {
			return nil
		}
		g.members[id] = src
		g.invalidate()
		return nil
	}

	g.memberOrder = append(g.memberOrder, id)
	g.members[id] = src
	g.invalidate()
	if g.state == StateFresh {
		g.state = StateTracking
	}
	return nil
}

// Refresh replaces the cached source of an existing member, bypassing the
// closed check. Used when a freshness comparison found the cached bytes
// stale. Membership identity is unchanged, so a closed group stays closed.
func (g *Group) Refresh(id string, src []byte) error {
	old, ok := g.members[id]
	if !ok {
		return zerr.With(ErrUnknownMember, "member", id)
	}
	g.observed[id] = struct{}{}
	if bytes.Equal(old, src) {
		return nil
	}
	g.members[id] = src
	g.invalidate()
	return nil
}

// MarkObserved records that the member was actually touched this run.
// It reports whether the member belongs to the group.
func (g *Group) MarkObserved(id string) bool {
	if !g.Has(id) {
		return false
	}
	g.observed[id] = struct{}{}
	return true
}

// invalidate drops every derived value tied to the current member set. The
// recorded hotness no longer applies to the new compiled shape, so it is
// reset together with the combined source and the artifact.
func (g *Group) invalidate() {
	g.combined = nil
	g.artifact = nil
	g.unit = nil
	g.lifetimeMS = 0
	g.hotSince = time.Time{}
	if g.state == StateCompiled || g.state == StatePersisted {
		g.state = StateTracking
	}
}

// CombinedSource returns the single compiled unit's source text: each member
// wrapped in a per-member invocation wrapper, concatenated in insertion
// order. The value is derived and cached; it is always regenerable from the
// member set alone.
func (g *Group) CombinedSource() []byte {
	if g.combined != nil {
		return g.combined
	}
	var buf bytes.Buffer
	for _, id := range g.memberOrder {
		fmt.Fprintf(&buf, "__voo_register(%s, function(exports, require, module, __filename, __dirname) {\n", strconv.Quote(id))
		buf.Write(g.members[id])
		buf.WriteString("\n});\n")
	}
	g.combined = buf.Bytes()
	return g.combined
}

// Artifact returns the currently held acceleration data, if any.
func (g *Group) Artifact() []byte { return g.artifact }

// Unit returns the compiled unit for the current combined source, if any.
func (g *Group) Unit() CompiledUnit { return g.unit }

// SetCompiled attaches the engine's compiled unit and starts hot timing.
func (g *Group) SetCompiled(unit CompiledUnit, now time.Time) {
	g.unit = unit
	g.state = StateCompiled
	g.hotSince = now
}

// ResetLifetime zeroes the recorded hotness. Called when the engine rejects
// the stored artifact: the group is treated as if it had never been optimized.
func (g *Group) ResetLifetime() {
	g.lifetimeMS = 0
}

// TimingStarted reports whether hot timing ever started this run.
func (g *Group) TimingStarted() bool { return !g.hotSince.IsZero() }

// ElapsedThisRun returns how long the group has been alive this session.
func (g *Group) ElapsedThisRun(now time.Time) time.Duration {
	return now.Sub(g.startedAt)
}

// Restructure sheds members that a previous run cached but this run never
// touched. A minor difference is intentionally left alone: the removal only
// commits when the dead weight exceeds RestructureByteThreshold bytes or
// RestructureMemberThreshold members, so a good artifact is not invalidated
// for negligible savings. On commit the group reopens for tracking.
func (g *Group) Restructure() (removed, freedBytes int, changed bool) {
	var dead []string
	for _, id := range g.memberOrder {
		if _, ok := g.observed[id]; !ok {
			dead = append(dead, id)
			freedBytes += len(g.members[id])
		}
	}
	removed = len(dead)
	if freedBytes <= RestructureByteThreshold && removed <= RestructureMemberThreshold {
		return removed, freedBytes, false
	}

	keep := g.memberOrder[:0]
	for _, id := range g.memberOrder {
		if _, ok := g.observed[id]; ok {
			keep = append(keep, id)
		}
	}
	g.memberOrder = keep
	for _, id := range dead {
		delete(g.members, id)
	}
	g.invalidate()
	g.state = StateTracking
	return removed, freedBytes, true
}

// RecordResolution captures a symbol-resolution result observed while a
// trust-covered member was loading.
func (g *Group) RecordResolution(key, value string) {
	if _, ok := g.resolved[key]; !ok {
		g.resolvedOrder = append(g.resolvedOrder, key)
	}
	g.resolved[key] = value
}

// Resolutions returns the captured resolution results in insertion order.
func (g *Group) Resolutions() []ResolveRecord {
	out := make([]ResolveRecord, 0, len(g.resolvedOrder))
	for _, k := range g.resolvedOrder {
		out = append(out, ResolveRecord{Key: k, Value: g.resolved[k]})
	}
	return out
}

// Snapshot reduces the group to its on-disk record. Hot time elapsed since
// the last snapshot is folded into the cumulative lifetime. When a compiled
// unit exists, a fresh artifact is extracted from it; on extraction failure
// the previously held artifact is kept and the error reported alongside the
// usable record.
func (g *Group) Snapshot(now time.Time, token Token) (*GroupRecord, error) {
	if g.TimingStarted() {
		g.lifetimeMS += int32(now.Sub(g.hotSince).Milliseconds())
		g.hotSince = now
	}

	var extractErr error
	if g.unit != nil {
		fresh, err := g.unit.Artifact()
		if err != nil {
			extractErr = zerr.With(zerr.Wrap(err, ErrArtifactExtractFailed.Error()), "group", g.name)
		} else {
			g.artifact = fresh
		}
	}

	rec := &GroupRecord{
		Version:        RecordVersion,
		CreatedAt:      UnixSeconds(g.createdAt),
		LifetimeMS:     g.lifetimeMS,
		Name:           g.name,
		IntegrityToken: token,
		Members:        make([]MemberRecord, 0, len(g.memberOrder)),
		CombinedSource: g.CombinedSource(),
		Artifact:       g.artifact,
		Resolved:       g.Resolutions(),
	}
	for _, id := range g.memberOrder {
		rec.Members = append(rec.Members, MemberRecord{Key: id, Source: g.members[id]})
	}
	return rec, extractErr
}

// MarkPersisted records that the group's current shape reached disk.
func (g *Group) MarkPersisted() {
	if g.state == StateCompiled || g.state == StateTracking {
		g.state = StatePersisted
	}
}
