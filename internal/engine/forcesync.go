package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/launchpress/contentsync/internal/domain"
	"github.com/launchpress/contentsync/internal/syncx"
)

// ForceSyncItem synchronizes one item outside the scheduled cycle. itemID
// is the remote identity. The outcome is always recorded in the audit log,
// success or not.
func (o *Orchestrator) ForceSyncItem(ctx context.Context, typ domain.ItemType, itemID string, dir domain.Direction) error {
	if _, ok := o.types[typ]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownType, typ)
	}

	var err error
	switch dir {
	case domain.DirectionRemoteToLocal:
		err = o.forcePull(ctx, typ, itemID)
	case domain.DirectionLocalToRemote:
		err = o.forcePush(ctx, typ, itemID)
	case domain.DirectionBidirectional:
		err = o.forceCompare(ctx, typ, itemID)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownDirection, dir)
	}

	status := domain.LogSuccess
	details := map[string]any{"item_id": itemID}
	if err != nil {
		status = domain.LogFailed
		details["error"] = err.Error()
	}
	o.appendLog(ctx, &domain.LogEntry{
		Type:      typ,
		Action:    "force_sync",
		Direction: dir,
		Status:    status,
		Details:   details,
	})

	return err
}

// forcePull copies the remote item over the local copy.
func (o *Orchestrator) forcePull(ctx context.Context, typ domain.ItemType, remoteID string) error {
	item, err := o.adapter.GetItem(ctx, typ, remoteID)
	if err != nil {
		return fmt.Errorf("fetch remote %s/%s: %w", typ, remoteID, err)
	}
	sum, err := syncx.Checksum(item)
	if err != nil {
		return err
	}

	mapping, err := o.mappings.Find(ctx, typ, remoteID)
	if errors.Is(err, domain.ErrMappingNotFound) {
		return o.adoptItem(ctx, typ, remoteID, item, sum)
	}
	if err != nil {
		return err
	}
	return o.pullItem(ctx, typ, mapping, item, sum)
}

// forcePush copies the local item over the remote copy. Items never pushed
// before are created remotely and gain a mapping.
func (o *Orchestrator) forcePush(ctx context.Context, typ domain.ItemType, remoteID string) error {
	mapping, err := o.mappings.Find(ctx, typ, remoteID)
	if errors.Is(err, domain.ErrMappingNotFound) {
		// No correspondence yet: treat the id as a local identity and
		// create the remote side.
		local, lerr := o.local.GetItem(ctx, typ, remoteID)
		if lerr != nil {
			return fmt.Errorf("get local %s/%s: %w", typ, remoteID, lerr)
		}
		created, cerr := o.adapter.CreateItem(ctx, typ, local)
		if cerr != nil {
			return fmt.Errorf("create remote %s: %w", typ, cerr)
		}
		newRemoteID, ok := syncx.ItemID(created)
		if !ok {
			newRemoteID = uuid.New().String()
		}
		sum, serr := syncx.Checksum(created)
		if serr != nil {
			return serr
		}
		return o.mappings.Upsert(ctx, &domain.Mapping{
			LocalID:    remoteID,
			RemoteID:   newRemoteID,
			Type:       typ,
			LastSynced: time.Now().UTC(),
			Checksum:   sum,
		})
	}
	if err != nil {
		return err
	}

	local, err := o.local.GetItem(ctx, typ, mapping.LocalID)
	if err != nil {
		return fmt.Errorf("get local %s/%s: %w", typ, mapping.LocalID, err)
	}
	sum, err := syncx.Checksum(local)
	if err != nil {
		return err
	}
	return o.pushItem(ctx, typ, mapping, local, sum)
}

// forceCompare runs the regular three-way comparison for a single item.
func (o *Orchestrator) forceCompare(ctx context.Context, typ domain.ItemType, remoteID string) error {
	item, err := o.adapter.GetItem(ctx, typ, remoteID)
	if err != nil {
		return fmt.Errorf("fetch remote %s/%s: %w", typ, remoteID, err)
	}
	if _, err := o.reconcileItem(ctx, typ, item); err != nil {
		return err
	}
	return nil
}
