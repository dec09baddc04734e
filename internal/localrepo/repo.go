// Package localrepo abstracts the application's own copy of site content.
// The sync engine reads and writes local snapshots through this interface
// and stays independent of where the dashboard actually keeps them.
package localrepo

import (
	"context"

	"github.com/launchpress/contentsync/internal/domain"
)

// Repository is the local-side contract consumed by the engine.
type Repository interface {
	// GetItem returns the local snapshot for (typ, localID), or
	// domain.ErrItemNotFound.
	GetItem(ctx context.Context, typ domain.ItemType, localID string) (domain.Item, error)

	// PutItem stores the local snapshot for (typ, localID), creating or
	// replacing it.
	PutItem(ctx context.Context, typ domain.ItemType, localID string, data domain.Item) error
}
