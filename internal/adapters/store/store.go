// Package store implements the file-backed record store, one record per
// group under the cache directory, filename = weak digest of the group name.
package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/voo/internal/adapters/codec"
	"go.trai.ch/voo/internal/core/domain"
	"go.trai.ch/voo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RecordStore = (*Store)(nil)

// tempSeparator splits a canonical record filename from the writer's
// process instance id in a temporary file name.
const tempSeparator = "~"

// Store implements ports.RecordStore on a flat directory of record files.
type Store struct {
	dir        string
	hasher     ports.Hasher
	instanceID string
}

// New creates a Store rooted at dir.
func New(dir string, hasher ports.Hasher) *Store {
	return &Store{
		dir:        dir,
		hasher:     hasher,
		instanceID: strconv.Itoa(os.Getpid()),
	}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Load retrieves the record for a logical group name.
// Returns nil, nil if no record exists. The decoded name is re-checked
// against the requested one: digests are weak, and a mismatch means the
// record belongs to a different group entirely.
func (s *Store) Load(name string) (*domain.GroupRecord, error) {
	rec, err := s.LoadDigest(s.hasher.DigestString(name))
	if err != nil || rec == nil {
		return rec, err
	}
	if rec.Name != name {
		return nil, zerr.With(zerr.With(domain.ErrNameCollision, "expected", name), "found", rec.Name)
	}
	return rec, nil
}

// LoadDigest retrieves a record by its digest filename, skipping the name
// re-check. Inspection tooling only.
func (s *Store) LoadDigest(digest string) (*domain.GroupRecord, error) {
	path := filepath.Join(s.dir, digest)
	//nolint:gosec // Path is constructed from the cache dir and a hex digest
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRecordReadFailed.Error()), "path", path)
	}
	return codec.Decode(data)
}

// Save writes the record through a temporary file that atomically replaces
// the canonical path, so a concurrent reader never observes a partial
// record. A stale temp left by a previous failed write is removed first,
// best effort.
func (s *Store) Save(rec *domain.GroupRecord) error {
	if err := os.MkdirAll(s.dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheDirCreateFailed.Error()), "dir", s.dir)
	}

	digest := s.hasher.DigestString(rec.Name)
	canonical := filepath.Join(s.dir, digest)
	temp := canonical + tempSeparator + s.instanceID
	_ = os.Remove(temp)

	data := codec.Encode(rec)
	//nolint:gosec // Path is constructed from the cache dir and a hex digest
	if err := os.WriteFile(temp, data, domain.FilePerm); err != nil {
		_ = os.Remove(temp)
		return zerr.With(zerr.Wrap(err, domain.ErrRecordWriteFailed.Error()), "path", temp)
	}
	if err := os.Rename(temp, canonical); err != nil {
		_ = os.Remove(temp)
		return zerr.With(zerr.Wrap(err, domain.ErrRecordWriteFailed.Error()), "path", canonical)
	}
	return nil
}

// Remove deletes the record for a logical group name, if present.
func (s *Store) Remove(name string) error {
	path := filepath.Join(s.dir, s.hasher.DigestString(name))
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrRecordWriteFailed.Error()), "path", path)
	}
	return nil
}

// List returns the digests of all records currently in the store. Leftover
// temporary files are not records and are skipped.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRecordReadFailed.Error()), "dir", s.dir)
	}

	var digests []string
	for _, e := range entries {
		if e.IsDir() || strings.Contains(e.Name(), tempSeparator) {
			continue
		}
		digests = append(digests, e.Name())
	}
	return digests, nil
}

// PruneTemps removes leftover temporary files from failed writes.
func (s *Store) PruneTemps() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, zerr.With(zerr.Wrap(err, domain.ErrRecordReadFailed.Error()), "dir", s.dir)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), tempSeparator) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Clear removes every record in the store.
func (s *Store) Clear() (int, error) {
	digests, err := s.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, digest := range digests {
		if err := os.Remove(filepath.Join(s.dir, digest)); err != nil {
			return removed, zerr.With(zerr.Wrap(err, domain.ErrRecordWriteFailed.Error()), "digest", digest)
		}
		removed++
	}
	return removed, nil
}
