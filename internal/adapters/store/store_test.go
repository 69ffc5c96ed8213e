package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/voo/internal/adapters/fs"
	"go.trai.ch/voo/internal/adapters/store"
	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func testRecord(name string) *domain.GroupRecord {
	return &domain.GroupRecord{
		Version:    domain.RecordVersion,
		CreatedAt:  domain.UnixSeconds(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		LifetimeMS: 1234,
		Name:       name,
		Members: []domain.MemberRecord{
			{Key: name, Source: []byte("module.exports = 1;")},
		},
		CombinedSource: []byte("combined"),
		Artifact:       []byte{1, 2, 3},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, fs.NewHasher())

	require.NoError(t, s.Save(testRecord("/src/a.js")))

	rec, err := s.Load("/src/a.js")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "/src/a.js", rec.Name)
	assert.Equal(t, int32(1234), rec.LifetimeMS)

	// No temp file may survive a successful save.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "~")
}

func TestStore_LoadMissing(t *testing.T) {
	s := store.New(t.TempDir(), fs.NewHasher())

	rec, err := s.Load("/never/saved.js")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_SaveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	hasher := fs.NewHasher()
	s := store.New(dir, hasher)
	rec := testRecord("/src/a.js")

	require.NoError(t, s.Save(rec))
	first, err := os.ReadFile(filepath.Join(dir, hasher.DigestString(rec.Name)))
	require.NoError(t, err)

	require.NoError(t, s.Save(rec))
	second, err := os.ReadFile(filepath.Join(dir, hasher.DigestString(rec.Name)))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStore_DigestCollision(t *testing.T) {
	ctrl := gomock.NewController(t)
	hasher := mocks.NewMockHasher(ctrl)
	// Two distinct names collapsing onto one digest.
	hasher.EXPECT().DigestString(gomock.Any()).Return("0000000000000").AnyTimes()

	s := store.New(t.TempDir(), hasher)
	require.NoError(t, s.Save(testRecord("/src/a.js")))

	// Loading a different name from the same slot must never silently adopt
	// the other group's data.
	rec, err := s.Load("/src/b.js")
	require.ErrorIs(t, err, domain.ErrNameCollision)
	assert.Nil(t, rec)

	// The rightful owner still loads.
	rec, err = s.Load("/src/a.js")
	require.NoError(t, err)
	assert.Equal(t, "/src/a.js", rec.Name)
}

func TestStore_TruncatedRecord(t *testing.T) {
	dir := t.TempDir()
	hasher := fs.NewHasher()
	s := store.New(dir, hasher)
	require.NoError(t, s.Save(testRecord("/src/a.js")))

	path := filepath.Join(dir, hasher.DigestString("/src/a.js"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o644))

	_, err = s.Load("/src/a.js")
	require.ErrorIs(t, err, domain.ErrTruncatedRecord)
}

func TestStore_ListSkipsTemps(t *testing.T) {
	dir := t.TempDir()
	s := store.New(dir, fs.NewHasher())
	require.NoError(t, s.Save(testRecord("/src/a.js")))
	require.NoError(t, s.Save(testRecord("/src/b.js")))

	// Simulate a leftover temp from a crashed writer.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "deadbeef00000~999"), []byte("partial"), 0o644))

	digests, err := s.List()
	require.NoError(t, err)
	assert.Len(t, digests, 2)

	removed, err := s.PruneTemps()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestStore_Clear(t *testing.T) {
	s := store.New(t.TempDir(), fs.NewHasher())
	require.NoError(t, s.Save(testRecord("/src/a.js")))
	require.NoError(t, s.Save(testRecord("/src/b.js")))

	removed, err := s.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	digests, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, digests)
}

func TestStore_RemoveMissingIsNoop(t *testing.T) {
	s := store.New(t.TempDir(), fs.NewHasher())
	require.NoError(t, s.Remove("/not/there.js"))
}
