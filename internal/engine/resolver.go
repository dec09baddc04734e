package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/launchpress/contentsync/internal/domain"
	"github.com/launchpress/contentsync/internal/localrepo"
	"github.com/launchpress/contentsync/internal/remote"
	"github.com/launchpress/contentsync/internal/store"
	"github.com/launchpress/contentsync/internal/syncx"
)

// MergeFunc combines the two sides of a conflict into the snapshot applied
// by the merge strategy. The default is syncx.ShallowMerge: remote fields
// win on key collision ("remote-wins-with-timestamp"), not a semantic
// three-way merge.
type MergeFunc func(local, remote domain.Item) domain.Item

// Resolver applies a chosen strategy to a stored conflict.
type Resolver struct {
	adapter  remote.Adapter
	local    localrepo.Repository
	mappings store.MappingStore
	confls   store.ConflictStore
	audit    store.AuditLog
	merge    MergeFunc
}

// NewResolver creates a Resolver. A nil merge function selects the default
// shallow merge.
func NewResolver(adapter remote.Adapter, local localrepo.Repository,
	mappings store.MappingStore, confls store.ConflictStore, audit store.AuditLog,
	merge MergeFunc) *Resolver {

	if merge == nil {
		merge = func(local, remote domain.Item) domain.Item {
			return syncx.ShallowMerge(local, remote)
		}
	}
	return &Resolver{
		adapter:  adapter,
		local:    local,
		mappings: mappings,
		confls:   confls,
		audit:    audit,
		merge:    merge,
	}
}

// Conflicts lists stored conflicts newest-first. A nil filter returns all;
// otherwise only conflicts matching the resolution state.
func (r *Resolver) Conflicts(ctx context.Context, resolved *bool) ([]*domain.Conflict, error) {
	return r.confls.List(ctx, resolved)
}

// Resolve applies a resolution strategy to an open conflict. On success the
// conflict transitions to resolved exactly once and the mapping checksum is
// refreshed to the applied snapshot. On failure the conflict stays open and
// is retryable.
func (r *Resolver) Resolve(ctx context.Context, conflictID string, resolution domain.Resolution) error {
	c, err := r.confls.Get(ctx, conflictID)
	if err != nil {
		return err
	}
	if c.Resolved {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyResolved, conflictID)
	}

	var applied domain.Item
	switch resolution {
	case domain.ResolutionLocal:
		applied, err = r.applyLocal(ctx, c)
	case domain.ResolutionRemote:
		applied, err = r.applyRemote(ctx, c)
	case domain.ResolutionMerge:
		applied, err = r.applyMerge(ctx, c)
	default:
		return fmt.Errorf("unknown resolution %q", resolution)
	}

	if err != nil {
		r.log(ctx, c, resolution, domain.LogFailed, err)
		return err
	}

	if err := r.confls.MarkResolved(ctx, conflictID, resolution); err != nil {
		return err
	}
	if err := r.refreshMapping(ctx, c, applied); err != nil {
		// The conflict is resolved; a stale mapping just means the next
		// reconciliation recomputes from scratch.
		log.Warn().Err(err).Str("conflict_id", c.ID).Msg("failed to refresh mapping after resolution")
	}

	r.log(ctx, c, resolution, domain.LogSuccess, nil)
	log.Info().Str("conflict_id", c.ID).Str("type", string(c.Type)).
		Str("resolution", string(resolution)).Msg("conflict resolved")
	return nil
}

// applyLocal pushes the local snapshot to the remote side.
func (r *Resolver) applyLocal(ctx context.Context, c *domain.Conflict) (domain.Item, error) {
	if _, err := r.adapter.UpdateItem(ctx, c.Type, c.ItemID, c.LocalData); err != nil {
		return nil, fmt.Errorf("remote write for conflict %s: %w", c.ID, err)
	}
	return c.LocalData, nil
}

// applyRemote overwrites the local copy with the remote snapshot.
func (r *Resolver) applyRemote(ctx context.Context, c *domain.Conflict) (domain.Item, error) {
	localID, err := r.localIDFor(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := r.local.PutItem(ctx, c.Type, localID, c.RemoteData); err != nil {
		return nil, fmt.Errorf("local write for conflict %s: %w", c.ID, err)
	}
	return c.RemoteData, nil
}

// applyMerge shallow-merges remote over local, stamps the modification
// time, then writes the merged snapshot to both sides.
func (r *Resolver) applyMerge(ctx context.Context, c *domain.Conflict) (domain.Item, error) {
	merged := r.merge(c.LocalData, c.RemoteData)
	merged["modified"] = time.Now().UTC().Format(time.RFC3339)

	if _, err := r.adapter.UpdateItem(ctx, c.Type, c.ItemID, merged); err != nil {
		return nil, fmt.Errorf("remote write for conflict %s: %w", c.ID, err)
	}
	localID, err := r.localIDFor(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := r.local.PutItem(ctx, c.Type, localID, merged); err != nil {
		return nil, fmt.Errorf("local write for conflict %s: %w", c.ID, err)
	}
	return merged, nil
}

func (r *Resolver) localIDFor(ctx context.Context, c *domain.Conflict) (string, error) {
	m, err := r.mappings.Find(ctx, c.Type, c.ItemID)
	if err != nil {
		return "", fmt.Errorf("mapping for conflict %s: %w", c.ID, err)
	}
	return m.LocalID, nil
}

func (r *Resolver) refreshMapping(ctx context.Context, c *domain.Conflict, applied domain.Item) error {
	m, err := r.mappings.Find(ctx, c.Type, c.ItemID)
	if err != nil {
		return err
	}
	sum, err := syncx.Checksum(applied)
	if err != nil {
		return err
	}
	m.Checksum = sum
	m.LastSynced = time.Now().UTC()
	return r.mappings.Upsert(ctx, m)
}

func (r *Resolver) log(ctx context.Context, c *domain.Conflict, resolution domain.Resolution, status domain.LogStatus, cause error) {
	details := map[string]any{
		"conflict_id": c.ID,
		"item_id":     c.ItemID,
		"resolution":  string(resolution),
	}
	if cause != nil {
		details["error"] = cause.Error()
	}
	entry := &domain.LogEntry{
		Type:      c.Type,
		Action:    "resolve_conflict",
		Direction: resolutionDirection(resolution),
		Status:    status,
		Details:   details,
	}
	if err := r.audit.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("conflict_id", c.ID).Msg("failed to append audit entry")
	}
}

func resolutionDirection(res domain.Resolution) domain.Direction {
	switch res {
	case domain.ResolutionLocal:
		return domain.DirectionLocalToRemote
	case domain.ResolutionRemote:
		return domain.DirectionRemoteToLocal
	default:
		return domain.DirectionBidirectional
	}
}
