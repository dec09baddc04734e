// Package engine implements the bidirectional sync engine: the
// orchestrator, per-domain reconciliation, conflict resolution and the
// recurring scheduler.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/launchpress/contentsync/internal/domain"
	"github.com/launchpress/contentsync/internal/localrepo"
	"github.com/launchpress/contentsync/internal/remote"
	"github.com/launchpress/contentsync/internal/store"
)

// Config is the static configuration of the orchestrator.
type Config struct {
	// EnabledTypes are the domains this engine synchronizes. Defaults to
	// domain.AllTypes.
	EnabledTypes []domain.ItemType

	// Interval between scheduled full syncs. Defaults to 15 minutes.
	Interval time.Duration

	// PageSize for paging remote collections. Defaults to 100.
	PageSize int
}

func (c Config) withDefaults() Config {
	if len(c.EnabledTypes) == 0 {
		c.EnabledTypes = domain.AllTypes
	}
	if c.Interval <= 0 {
		c.Interval = 15 * time.Minute
	}
	if c.PageSize <= 0 {
		c.PageSize = 100
	}
	return c
}

// typeState holds per-domain runtime state. Its mutex serializes syncs so a
// type never has two reconciliations in flight.
type typeState struct {
	mu      sync.Mutex
	status  domain.Status
	backoff *retryState
}

// Orchestrator coordinates per-type reconciliation, forced item syncs and
// the recurring scheduler. It owns per-type status and serializes state
// mutations per (type, remote_id) by syncing one domain at a time per type.
type Orchestrator struct {
	cfg      Config
	adapter  remote.Adapter
	local    localrepo.Repository
	mappings store.MappingStore
	confls   store.ConflictStore
	audit    store.AuditLog

	statusMu sync.RWMutex
	types    map[domain.ItemType]*typeState

	sched scheduler
}

// New creates an Orchestrator over the given collaborators.
func New(cfg Config, adapter remote.Adapter, local localrepo.Repository,
	mappings store.MappingStore, confls store.ConflictStore, audit store.AuditLog) *Orchestrator {

	cfg = cfg.withDefaults()
	types := make(map[domain.ItemType]*typeState, len(cfg.EnabledTypes))
	for _, t := range cfg.EnabledTypes {
		types[t] = &typeState{
			status:  domain.Status{Type: t, State: domain.StateIdle},
			backoff: newRetryState(),
		}
	}

	return &Orchestrator{
		cfg:      cfg,
		adapter:  adapter,
		local:    local,
		mappings: mappings,
		confls:   confls,
		audit:    audit,
		types:    types,
	}
}

// Resolver returns a ConflictResolver sharing this orchestrator's
// collaborators and default merge strategy.
func (o *Orchestrator) Resolver() *Resolver {
	return NewResolver(o.adapter, o.local, o.mappings, o.confls, o.audit, nil)
}

// SyncByType reconciles one domain. Fails fast with domain.ErrUnknownType
// for types not enabled at construction and domain.ErrSyncInProgress when a
// reconciliation for the same type is already running.
func (o *Orchestrator) SyncByType(ctx context.Context, typ domain.ItemType) (*domain.TypeResult, error) {
	ts, ok := o.types[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownType, typ)
	}

	if !ts.mu.TryLock() {
		return nil, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, typ)
	}
	defer ts.mu.Unlock()

	o.setStatus(typ, func(s *domain.Status) {
		s.State = domain.StateSyncing
		s.Progress = 0
		s.Error = ""
	})

	log.Info().Str("type", string(typ)).Msg("starting sync")

	synced, conflicts, err := o.reconcileType(ctx, typ)

	now := time.Now().UTC()
	result := &domain.TypeResult{Synced: synced, Conflicts: conflicts}

	if err != nil {
		result.Error = err.Error()
		ts.backoff.recordFailure(now)
		o.setStatus(typ, func(s *domain.Status) {
			s.State = domain.StateFailed
			s.Error = err.Error()
		})
		o.appendLog(ctx, &domain.LogEntry{
			Type:      typ,
			Action:    "sync",
			Direction: directionFor(typ),
			Status:    domain.LogFailed,
			Details: map[string]any{
				"synced":    synced,
				"conflicts": conflicts,
				"error":     err.Error(),
			},
		})
		log.Error().Err(err).Str("type", string(typ)).Msg("sync failed")
		return result, nil
	}

	result.Success = true
	ts.backoff.recordSuccess()

	o.setStatus(typ, func(s *domain.Status) {
		s.State = domain.StateCompleted
		s.Progress = 100
		s.ItemsSynced = synced
		s.LastSync = &now
		if next := o.sched.nextRun(now, o.cfg.Interval); next != nil {
			s.NextSync = next
		}
	})

	logStatus := domain.LogSuccess
	if conflicts > 0 {
		logStatus = domain.LogConflict
	}
	o.appendLog(ctx, &domain.LogEntry{
		Type:      typ,
		Action:    "sync",
		Direction: directionFor(typ),
		Status:    logStatus,
		Details: map[string]any{
			"synced":    synced,
			"conflicts": conflicts,
		},
	})

	log.Info().Str("type", string(typ)).Int("synced", synced).
		Int("conflicts", conflicts).Msg("sync completed")
	return result, nil
}

// PerformFullSync runs SyncByType for every enabled type sequentially. One
// domain's failure never aborts the others; each failure is isolated into
// its own result entry.
func (o *Orchestrator) PerformFullSync(ctx context.Context) *domain.FullSyncResult {
	return o.fullSync(ctx, false)
}

// fullSync executes one full pass. When honorBackoff is set (scheduled
// ticks), types that failed recently are skipped until their backoff
// deadline passes.
func (o *Orchestrator) fullSync(ctx context.Context, honorBackoff bool) *domain.FullSyncResult {
	out := &domain.FullSyncResult{
		Success: true,
		Results: make(map[domain.ItemType]*domain.TypeResult, len(o.cfg.EnabledTypes)),
	}

	for _, typ := range o.cfg.EnabledTypes {
		if honorBackoff {
			if until, waiting := o.types[typ].backoff.deadline(); waiting {
				log.Debug().Str("type", string(typ)).Time("until", until).
					Msg("skipping type in backoff window")
				out.Results[typ] = &domain.TypeResult{
					Success: false,
					Error:   fmt.Sprintf("backing off until %s", until.Format(time.RFC3339)),
				}
				out.Success = false
				continue
			}
		}

		res, err := o.SyncByType(ctx, typ)
		if err != nil {
			res = &domain.TypeResult{Success: false, Error: err.Error()}
		}
		if !res.Success {
			out.Success = false
		}
		out.Results[typ] = res
	}

	return out
}

// Statuses returns a defensive copy of every per-type status.
func (o *Orchestrator) Statuses() map[domain.ItemType]domain.Status {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()

	out := make(map[domain.ItemType]domain.Status, len(o.types))
	for t, ts := range o.types {
		out[t] = ts.status
	}
	return out
}

// ExportedConfig is the diagnostics/backup view of the engine.
type ExportedConfig struct {
	EnabledTypes    []domain.ItemType                 `json:"enabledTypes"`
	IntervalMinutes int                               `json:"intervalMinutes"`
	PageSize        int                               `json:"pageSize"`
	Policies        map[domain.ItemType]domain.Policy `json:"policies"`
	Mappings        []*domain.Mapping                 `json:"mappings"`
}

// ExportConfig returns the static configuration plus all current mappings.
func (o *Orchestrator) ExportConfig(ctx context.Context) (*ExportedConfig, error) {
	mappings, err := o.mappings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("export mappings: %w", err)
	}

	policies := make(map[domain.ItemType]domain.Policy, len(o.cfg.EnabledTypes))
	for _, t := range o.cfg.EnabledTypes {
		policies[t] = domain.PolicyFor(t)
	}

	return &ExportedConfig{
		EnabledTypes:    o.cfg.EnabledTypes,
		IntervalMinutes: int(o.cfg.Interval.Minutes()),
		PageSize:        o.cfg.PageSize,
		Policies:        policies,
		Mappings:        mappings,
	}, nil
}

func (o *Orchestrator) setStatus(typ domain.ItemType, fn func(*domain.Status)) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	fn(&o.types[typ].status)
}

// appendLog records an audit entry. Audit failures are logged but never
// fail the sync that produced them.
func (o *Orchestrator) appendLog(ctx context.Context, e *domain.LogEntry) {
	if err := o.audit.Append(ctx, e); err != nil {
		log.Error().Err(err).Str("action", e.Action).Msg("failed to append audit entry")
	}
}

// directionFor maps a domain's policy onto the audit-log direction.
func directionFor(typ domain.ItemType) domain.Direction {
	if domain.PolicyFor(typ) == domain.PolicyBidirectional {
		return domain.DirectionBidirectional
	}
	return domain.DirectionRemoteToLocal
}
