package localrepo

import (
	"context"
	"sync"

	"github.com/launchpress/contentsync/internal/domain"
)

// Memory is an in-memory Repository for tests and dev mode.
type Memory struct {
	mu    sync.RWMutex
	items map[itemKey]domain.Item
}

type itemKey struct {
	typ     domain.ItemType
	localID string
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{items: make(map[itemKey]domain.Item)}
}

func (r *Memory) GetItem(_ context.Context, typ domain.ItemType, localID string) (domain.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemKey{typ, localID}]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	cp := make(domain.Item, len(item))
	for k, v := range item {
		cp[k] = v
	}
	return cp, nil
}

func (r *Memory) PutItem(_ context.Context, typ domain.ItemType, localID string, data domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := make(domain.Item, len(data))
	for k, v := range data {
		cp[k] = v
	}
	r.items[itemKey{typ, localID}] = cp
	return nil
}
