package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/launchpress/contentsync/internal/domain"
	"github.com/launchpress/contentsync/internal/syncx"
)

// reconcileType pages through the remote collection and reconciles every
// item against the mapping table. Returns the synced and conflict tallies.
func (o *Orchestrator) reconcileType(ctx context.Context, typ domain.ItemType) (synced, conflicts int, err error) {
	for page := 1; ; page++ {
		items, err := o.adapter.ListItems(ctx, typ, page, o.cfg.PageSize)
		if err != nil {
			return synced, conflicts, fmt.Errorf("list %s page %d: %w", typ, page, err)
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return synced, conflicts, err
			}

			conflicted, err := o.reconcileItem(ctx, typ, item)
			if err != nil {
				return synced, conflicts, err
			}
			if conflicted {
				conflicts++
			} else {
				synced++
			}
		}

		// Progress is an estimate: the remote does not report totals, so
		// each processed page advances the bar without ever completing it.
		o.setStatus(typ, func(s *domain.Status) {
			if s.Progress < 90 {
				s.Progress += (95 - s.Progress) / 2
			}
		})

		if len(items) < o.cfg.PageSize {
			break
		}
	}

	return synced, conflicts, nil
}

// reconcileItem applies the three-way comparison rule to one remote item.
// Returns true when a conflict was recorded.
//
// base = mapping checksum at last sync, L = digest(local), R = digest(remote):
//   - no mapping        -> adopt the remote item (new mapping + local copy)
//   - L == R            -> in sync, refresh mapping
//   - L == base         -> only remote changed, auto-pull
//   - R == base         -> only local changed, auto-push (bidirectional only)
//   - all three differ  -> conflict (bidirectional) or remote wins (pull-only)
func (o *Orchestrator) reconcileItem(ctx context.Context, typ domain.ItemType, item domain.Item) (bool, error) {
	remoteID, ok := syncx.ItemID(item)
	if !ok {
		return false, fmt.Errorf("remote %s item without id", typ)
	}

	remoteSum, err := syncx.Checksum(item)
	if err != nil {
		return false, fmt.Errorf("checksum remote %s/%s: %w", typ, remoteID, err)
	}

	mapping, err := o.mappings.Find(ctx, typ, remoteID)
	if errors.Is(err, domain.ErrMappingNotFound) {
		// First observation of this remote item: adopt it locally.
		return false, o.adoptItem(ctx, typ, remoteID, item, remoteSum)
	}
	if err != nil {
		return false, fmt.Errorf("find mapping %s/%s: %w", typ, remoteID, err)
	}

	local, err := o.local.GetItem(ctx, typ, mapping.LocalID)
	if errors.Is(err, domain.ErrItemNotFound) {
		// The local copy vanished; restore it from the remote snapshot.
		return false, o.pullItem(ctx, typ, mapping, item, remoteSum)
	}
	if err != nil {
		return false, fmt.Errorf("get local %s/%s: %w", typ, mapping.LocalID, err)
	}

	localSum, err := syncx.Checksum(local)
	if err != nil {
		return false, fmt.Errorf("checksum local %s/%s: %w", typ, mapping.LocalID, err)
	}

	if localSum == remoteSum {
		return false, o.refreshMapping(ctx, mapping, remoteSum)
	}

	if domain.PolicyFor(typ) == domain.PolicyPullOnly {
		// Remote is authoritative for pull-only domains.
		return false, o.pullItem(ctx, typ, mapping, item, remoteSum)
	}

	switch mapping.Checksum {
	case localSum:
		// Only the remote side changed since last sync.
		return false, o.pullItem(ctx, typ, mapping, item, remoteSum)
	case remoteSum:
		// Only the local side changed since last sync.
		return false, o.pushItem(ctx, typ, mapping, local, localSum)
	default:
		// Both sides diverged from the last-synced snapshot.
		return true, o.recordConflict(ctx, typ, remoteID, local, item)
	}
}

// adoptItem creates a fresh local identity and mapping for a remote item
// observed for the first time.
func (o *Orchestrator) adoptItem(ctx context.Context, typ domain.ItemType, remoteID string, item domain.Item, remoteSum string) error {
	localID := uuid.New().String()
	if err := o.local.PutItem(ctx, typ, localID, item); err != nil {
		return fmt.Errorf("store new local %s/%s: %w", typ, localID, err)
	}
	m := &domain.Mapping{
		LocalID:    localID,
		RemoteID:   remoteID,
		Type:       typ,
		LastSynced: time.Now().UTC(),
		Checksum:   remoteSum,
	}
	if err := o.mappings.Upsert(ctx, m); err != nil {
		return fmt.Errorf("create mapping %s/%s: %w", typ, remoteID, err)
	}
	log.Debug().Str("type", string(typ)).Str("remote_id", remoteID).
		Str("local_id", localID).Msg("adopted new remote item")
	return nil
}

// pullItem overwrites the local copy with the remote snapshot and refreshes
// the mapping to the applied digest.
func (o *Orchestrator) pullItem(ctx context.Context, typ domain.ItemType, m *domain.Mapping, item domain.Item, remoteSum string) error {
	if err := o.local.PutItem(ctx, typ, m.LocalID, item); err != nil {
		return fmt.Errorf("pull %s/%s: %w", typ, m.RemoteID, err)
	}
	return o.refreshMapping(ctx, m, remoteSum)
}

// pushItem writes the local snapshot to the remote and refreshes the
// mapping to the pushed digest.
func (o *Orchestrator) pushItem(ctx context.Context, typ domain.ItemType, m *domain.Mapping, local domain.Item, localSum string) error {
	if _, err := o.adapter.UpdateItem(ctx, typ, m.RemoteID, local); err != nil {
		return fmt.Errorf("push %s/%s: %w", typ, m.RemoteID, err)
	}
	return o.refreshMapping(ctx, m, localSum)
}

func (o *Orchestrator) refreshMapping(ctx context.Context, m *domain.Mapping, checksum string) error {
	m.Checksum = checksum
	m.LastSynced = time.Now().UTC()
	if err := o.mappings.Upsert(ctx, m); err != nil {
		return fmt.Errorf("refresh mapping %s/%s: %w", m.Type, m.RemoteID, err)
	}
	return nil
}

// recordConflict persists a divergence without touching the mapping, so the
// comparison base survives until the conflict is resolved. At most one open
// conflict exists per item; re-detecting the same divergence is a no-op.
func (o *Orchestrator) recordConflict(ctx context.Context, typ domain.ItemType, remoteID string, local, remoteItem domain.Item) error {
	if existing, err := o.confls.FindOpen(ctx, typ, remoteID); err == nil {
		log.Debug().Str("type", string(typ)).Str("item_id", remoteID).
			Str("conflict_id", existing.ID).Msg("divergence already recorded")
		return nil
	} else if !errors.Is(err, domain.ErrConflictNotFound) {
		return fmt.Errorf("find open conflict %s/%s: %w", typ, remoteID, err)
	}

	c := &domain.Conflict{
		ID:         uuid.New().String(),
		Type:       typ,
		ItemID:     remoteID,
		LocalData:  local,
		RemoteData: remoteItem,
		Timestamp:  time.Now().UTC(),
	}
	if err := o.confls.Create(ctx, c); err != nil {
		return fmt.Errorf("record conflict %s/%s: %w", typ, remoteID, err)
	}

	o.appendLog(ctx, &domain.LogEntry{
		Type:      typ,
		Action:    "conflict_detected",
		Direction: domain.DirectionBidirectional,
		Status:    domain.LogConflict,
		Details: map[string]any{
			"item_id":     remoteID,
			"conflict_id": c.ID,
		},
	})

	log.Warn().Str("type", string(typ)).Str("item_id", remoteID).
		Str("conflict_id", c.ID).Msg("divergent concurrent edit detected")
	return nil
}
