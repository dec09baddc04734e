package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/launchpress/contentsync/internal/domain"
)

// MemoryMappingStore is an in-memory MappingStore for tests and dev mode.
type MemoryMappingStore struct {
	mu       sync.RWMutex
	mappings map[mappingKey]*domain.Mapping
}

type mappingKey struct {
	typ      domain.ItemType
	remoteID string
}

// NewMemoryMappingStore creates an empty in-memory mapping store.
func NewMemoryMappingStore() *MemoryMappingStore {
	return &MemoryMappingStore{mappings: make(map[mappingKey]*domain.Mapping)}
}

func (s *MemoryMappingStore) Find(_ context.Context, typ domain.ItemType, remoteID string) (*domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[mappingKey{typ, remoteID}]
	if !ok {
		return nil, domain.ErrMappingNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryMappingStore) Upsert(_ context.Context, m *domain.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	s.mappings[mappingKey{m.Type, m.RemoteID}] = &cp
	return nil
}

func (s *MemoryMappingStore) List(_ context.Context) ([]*domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Mapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].RemoteID < out[j].RemoteID
	})
	return out, nil
}

// MemoryConflictStore is an in-memory ConflictStore for tests and dev mode.
type MemoryConflictStore struct {
	mu        sync.RWMutex
	conflicts map[string]*domain.Conflict
	order     []string
}

// NewMemoryConflictStore creates an empty in-memory conflict store.
func NewMemoryConflictStore() *MemoryConflictStore {
	return &MemoryConflictStore{conflicts: make(map[string]*domain.Conflict)}
}

func (s *MemoryConflictStore) Create(_ context.Context, c *domain.Conflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	cp := cloneConflict(c)
	s.conflicts[c.ID] = cp
	s.order = append(s.order, c.ID)
	return nil
}

func (s *MemoryConflictStore) Get(_ context.Context, id string) (*domain.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conflicts[id]
	if !ok {
		return nil, domain.ErrConflictNotFound
	}
	return cloneConflict(c), nil
}

func (s *MemoryConflictStore) FindOpen(_ context.Context, typ domain.ItemType, itemID string) (*domain.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.conflicts[s.order[i]]
		if !c.Resolved && c.Type == typ && c.ItemID == itemID {
			return cloneConflict(c), nil
		}
	}
	return nil, domain.ErrConflictNotFound
}

func (s *MemoryConflictStore) List(_ context.Context, resolved *bool) ([]*domain.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Conflict, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.conflicts[s.order[i]]
		if resolved != nil && c.Resolved != *resolved {
			continue
		}
		out = append(out, cloneConflict(c))
	}
	return out, nil
}

func (s *MemoryConflictStore) MarkResolved(_ context.Context, id string, resolution domain.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conflicts[id]
	if !ok {
		return domain.ErrConflictNotFound
	}
	if c.Resolved {
		return domain.ErrAlreadyResolved
	}
	c.Resolved = true
	c.Resolution = resolution
	return nil
}

func cloneConflict(c *domain.Conflict) *domain.Conflict {
	cp := *c
	cp.LocalData = cloneItem(c.LocalData)
	cp.RemoteData = cloneItem(c.RemoteData)
	return &cp
}

func cloneItem(it domain.Item) domain.Item {
	if it == nil {
		return nil
	}
	cp := make(domain.Item, len(it))
	for k, v := range it {
		cp[k] = v
	}
	return cp
}

// MemoryAuditLog is a bounded in-memory AuditLog. Entries beyond
// MaxLogEntries are discarded oldest-first, ring-buffer style.
type MemoryAuditLog struct {
	mu      sync.RWMutex
	entries []*domain.LogEntry
}

// NewMemoryAuditLog creates an empty in-memory audit log.
func NewMemoryAuditLog() *MemoryAuditLog {
	return &MemoryAuditLog{}
}

func (l *MemoryAuditLog) Append(_ context.Context, e *domain.LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp := *e
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now().UTC()
	}
	l.entries = append(l.entries, &cp)
	if n := len(l.entries); n > MaxLogEntries {
		// Reallocate instead of reslicing so dropped entries can be freed.
		kept := make([]*domain.LogEntry, MaxLogEntries)
		copy(kept, l.entries[n-MaxLogEntries:])
		l.entries = kept
	}
	return nil
}

func (l *MemoryAuditLog) Query(_ context.Context, f LogFilter) ([]*domain.LogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	limit := f.Limit
	if limit <= 0 || limit > MaxLogEntries {
		limit = MaxLogEntries
	}

	out := make([]*domain.LogEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := l.entries[i]
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
