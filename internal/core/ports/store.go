// Package ports defines the core interfaces for the application.
package ports

import "go.trai.ch/voo/internal/core/domain"

// RecordStore defines the interface for reading and writing group records.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type RecordStore interface {
	// Load retrieves the record for a logical group name.
	// Returns nil, nil if no record exists at the expected path.
	// A record whose decoded name differs from the requested name fails with
	// domain.ErrNameCollision.
	Load(name string) (*domain.GroupRecord, error)

	// LoadDigest retrieves a record by its digest filename without the name
	// re-check. Used by inspection tooling, not by the cache lookup path.
	LoadDigest(digest string) (*domain.GroupRecord, error)

	// Save writes the record. The write is all-or-nothing: bytes go to a
	// temporary path that atomically replaces the canonical path, so a reader
	// never observes a partially written record.
	Save(rec *domain.GroupRecord) error

	// Remove deletes the record for a logical group name, if present.
	Remove(name string) error

	// List returns the digests of all records currently in the store.
	List() ([]string, error)

	// PruneTemps removes leftover temporary files from failed writes.
	// It returns how many were removed.
	PruneTemps() (int, error)

	// Clear removes every record. It returns how many were removed.
	Clear() (int, error)
}
