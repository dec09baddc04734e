// Package remote defines the capability interface the sync engine needs
// from a remote CMS, and a WordPress REST implementation of it.
package remote

import (
	"context"

	"github.com/launchpress/contentsync/internal/domain"
)

// Adapter is the read/write capability interface over the remote CMS.
//
// Implementations are assumed to fail transiently and give no ordering
// guarantee between calls; every method honors context cancellation.
type Adapter interface {
	// ListItems pages through a remote collection. Page numbering starts
	// at 1. An empty slice signals the end of the collection.
	ListItems(ctx context.Context, typ domain.ItemType, page, pageSize int) ([]domain.Item, error)

	// GetItem fetches a single remote item, or domain.ErrItemNotFound.
	GetItem(ctx context.Context, typ domain.ItemType, id string) (domain.Item, error)

	// CreateItem creates a remote item and returns the remote's view of it.
	CreateItem(ctx context.Context, typ domain.ItemType, item domain.Item) (domain.Item, error)

	// UpdateItem overwrites a remote item and returns the remote's view.
	UpdateItem(ctx context.Context, typ domain.ItemType, id string, item domain.Item) (domain.Item, error)
}
