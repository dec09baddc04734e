// Package domain holds the shared types of the content synchronization
// engine: item types, mappings, conflicts, statuses and audit entries.
package domain

import (
	"time"
)

// ItemType identifies one of the synchronized content domains.
type ItemType string

const (
	TypePosts    ItemType = "posts"
	TypePages    ItemType = "pages"
	TypeUsers    ItemType = "users"
	TypeSettings ItemType = "settings"
	TypePlugins  ItemType = "plugins"
	TypeThemes   ItemType = "themes"
	TypeMedia    ItemType = "media"
	TypeComments ItemType = "comments"
)

// AllTypes lists every domain the engine knows about, in sync order.
var AllTypes = []ItemType{
	TypePosts, TypePages, TypeUsers, TypeSettings,
	TypePlugins, TypeThemes, TypeMedia, TypeComments,
}

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	for _, k := range AllTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Direction selects which way a forced item sync moves data.
type Direction string

const (
	DirectionLocalToRemote Direction = "local_to_remote"
	DirectionRemoteToLocal Direction = "remote_to_local"
	DirectionBidirectional Direction = "bidirectional"
)

// Resolution names a conflict resolution strategy.
type Resolution string

const (
	ResolutionLocal  Resolution = "local"
	ResolutionRemote Resolution = "remote"
	ResolutionMerge  Resolution = "merge"
)

// Policy declares how a domain type is reconciled.
// Bidirectional types run full three-way divergence detection; pull-only
// types treat the remote as authoritative and never record conflicts.
type Policy string

const (
	PolicyBidirectional Policy = "bidirectional"
	PolicyPullOnly      Policy = "pull_only"
)

// PolicyFor returns the reconciliation policy of a domain type.
// Only posts and pages carry locally-authored edits worth protecting;
// everything else mirrors the remote.
func PolicyFor(t ItemType) Policy {
	switch t {
	case TypePosts, TypePages:
		return PolicyBidirectional
	default:
		return PolicyPullOnly
	}
}

// Item is a snapshot of one content item as exchanged with the remote CMS
// or the local repository. Always carries an "id" field.
type Item map[string]any

// Mapping records the identity correspondence between a local item and its
// remote counterpart for one domain type. Unique per (type, remote_id).
type Mapping struct {
	LocalID    string    `json:"localId"`
	RemoteID   string    `json:"remoteId"`
	Type       ItemType  `json:"type"`
	LastSynced time.Time `json:"lastSynced"`
	// Checksum is the digest of the canonicalized remote payload at the
	// last successful reconciliation (the three-way comparison base).
	Checksum string `json:"checksum"`
}

// Conflict is a detected content divergence between the local and remote
// copies of a mapped item. Once resolved it is immutable history.
type Conflict struct {
	ID         string     `json:"id"`
	Type       ItemType   `json:"type"`
	ItemID     string     `json:"itemId"`
	LocalData  Item       `json:"localData"`
	RemoteData Item       `json:"remoteData"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	Resolution Resolution `json:"resolution,omitempty"`
}

// SyncState is the lifecycle state of one domain's sync.
type SyncState string

const (
	StateIdle      SyncState = "idle"
	StateSyncing   SyncState = "syncing"
	StateCompleted SyncState = "completed"
	StateFailed    SyncState = "failed"
)

// Status is the per-type sync status surfaced to callers.
type Status struct {
	Type        ItemType   `json:"type"`
	State       SyncState  `json:"state"`
	LastSync    *time.Time `json:"lastSync,omitempty"`
	NextSync    *time.Time `json:"nextSync,omitempty"`
	Progress    int        `json:"progress"`
	ItemsSynced int        `json:"itemsSynced"`
	Error       string     `json:"error,omitempty"`
}

// LogStatus classifies the outcome recorded by an audit entry.
type LogStatus string

const (
	LogSuccess  LogStatus = "success"
	LogFailed   LogStatus = "failed"
	LogConflict LogStatus = "conflict"
)

// LogEntry is one immutable audit record of a sync action.
type LogEntry struct {
	ID        string         `json:"id"`
	Type      ItemType       `json:"type"`
	Action    string         `json:"action"`
	Direction Direction      `json:"direction"`
	Status    LogStatus      `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// TypeResult is the outcome of syncing one domain type.
type TypeResult struct {
	Success   bool   `json:"success"`
	Synced    int    `json:"synced"`
	Conflicts int    `json:"conflicts"`
	Error     string `json:"error,omitempty"`
}

// FullSyncResult aggregates the per-type outcomes of one full sync pass.
type FullSyncResult struct {
	Success bool                     `json:"success"`
	Results map[ItemType]*TypeResult `json:"results"`
}
