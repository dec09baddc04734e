// Package store defines the persistence interfaces of the sync engine and
// provides Postgres-backed and in-memory implementations.
//
// Mappings and conflicts are the only record of divergence history, so the
// Postgres implementations are the durable default; the in-memory
// implementations back unit tests and single-process dev mode.
package store

import (
	"context"

	"github.com/launchpress/contentsync/internal/domain"
)

// MaxLogEntries bounds the audit log. Appends beyond the bound discard the
// oldest entries first.
const MaxLogEntries = 1000

// MappingStore persists identity correspondences keyed by (type, remote_id).
type MappingStore interface {
	// Find returns the mapping for (typ, remoteID), or
	// domain.ErrMappingNotFound.
	Find(ctx context.Context, typ domain.ItemType, remoteID string) (*domain.Mapping, error)

	// Upsert inserts or replaces the mapping for its (type, remote_id) key.
	Upsert(ctx context.Context, m *domain.Mapping) error

	// List returns all mappings, ordered by type then remote id.
	List(ctx context.Context) ([]*domain.Mapping, error)
}

// ConflictStore persists detected divergences.
type ConflictStore interface {
	// Create stores a new unresolved conflict.
	Create(ctx context.Context, c *domain.Conflict) error

	// Get returns the conflict by id, or domain.ErrConflictNotFound.
	Get(ctx context.Context, id string) (*domain.Conflict, error)

	// FindOpen returns the unresolved conflict for (typ, itemID), or
	// domain.ErrConflictNotFound. At most one exists at a time.
	FindOpen(ctx context.Context, typ domain.ItemType, itemID string) (*domain.Conflict, error)

	// List returns conflicts newest-first. A nil filter returns all;
	// otherwise only conflicts whose Resolved flag matches.
	List(ctx context.Context, resolved *bool) ([]*domain.Conflict, error)

	// MarkResolved transitions a conflict to resolved exactly once.
	// Returns domain.ErrAlreadyResolved if it was already resolved and
	// domain.ErrConflictNotFound if the id is unknown.
	MarkResolved(ctx context.Context, id string, resolution domain.Resolution) error
}

// LogFilter narrows an audit log query. Zero values mean "no filter";
// Limit <= 0 means MaxLogEntries.
type LogFilter struct {
	Type   domain.ItemType
	Status domain.LogStatus
	Limit  int
}

// AuditLog is the bounded, append-only record of every sync action.
type AuditLog interface {
	// Append stores an entry, discarding the oldest entries beyond
	// MaxLogEntries.
	Append(ctx context.Context, e *domain.LogEntry) error

	// Query returns entries newest-first, filtered by f.
	Query(ctx context.Context, f LogFilter) ([]*domain.LogEntry, error)
}
