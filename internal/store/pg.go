package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchpress/contentsync/internal/domain"
)

// PGMappingStore is the Postgres-backed MappingStore.
type PGMappingStore struct {
	db *pgxpool.Pool
}

// NewPGMappingStore creates a mapping store over the given pool.
func NewPGMappingStore(db *pgxpool.Pool) *PGMappingStore {
	return &PGMappingStore{db: db}
}

func (s *PGMappingStore) Find(ctx context.Context, typ domain.ItemType, remoteID string) (*domain.Mapping, error) {
	m := &domain.Mapping{Type: typ, RemoteID: remoteID}
	err := s.db.QueryRow(ctx, `
		SELECT local_id, last_synced, checksum
		FROM sync_mapping
		WHERE item_type = $1 AND remote_id = $2
	`, typ, remoteID).Scan(&m.LocalID, &m.LastSynced, &m.Checksum)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find mapping: %w", err)
	}
	return m, nil
}

func (s *PGMappingStore) Upsert(ctx context.Context, m *domain.Mapping) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sync_mapping (item_type, remote_id, local_id, last_synced, checksum)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_type, remote_id) DO UPDATE SET
			local_id    = EXCLUDED.local_id,
			last_synced = EXCLUDED.last_synced,
			checksum    = EXCLUDED.checksum
	`, m.Type, m.RemoteID, m.LocalID, m.LastSynced, m.Checksum)
	if err != nil {
		return fmt.Errorf("upsert mapping: %w", err)
	}
	return nil
}

func (s *PGMappingStore) List(ctx context.Context) ([]*domain.Mapping, error) {
	rows, err := s.db.Query(ctx, `
		SELECT item_type, remote_id, local_id, last_synced, checksum
		FROM sync_mapping
		ORDER BY item_type, remote_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var out []*domain.Mapping
	for rows.Next() {
		m := &domain.Mapping{}
		if err := rows.Scan(&m.Type, &m.RemoteID, &m.LocalID, &m.LastSynced, &m.Checksum); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PGConflictStore is the Postgres-backed ConflictStore.
type PGConflictStore struct {
	db *pgxpool.Pool
}

// NewPGConflictStore creates a conflict store over the given pool.
func NewPGConflictStore(db *pgxpool.Pool) *PGConflictStore {
	return &PGConflictStore{db: db}
}

func (s *PGConflictStore) Create(ctx context.Context, c *domain.Conflict) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}

	localJSON, err := json.Marshal(c.LocalData)
	if err != nil {
		return fmt.Errorf("marshal local snapshot: %w", err)
	}
	remoteJSON, err := json.Marshal(c.RemoteData)
	if err != nil {
		return fmt.Errorf("marshal remote snapshot: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO sync_conflict (id, item_type, item_id, local_data, remote_data, detected_at, resolved)
		VALUES ($1, $2, $3, $4, $5, $6, false)
	`, c.ID, c.Type, c.ItemID, localJSON, remoteJSON, c.Timestamp)
	if err != nil {
		return fmt.Errorf("create conflict: %w", err)
	}
	return nil
}

func (s *PGConflictStore) Get(ctx context.Context, id string) (*domain.Conflict, error) {
	c := &domain.Conflict{ID: id}
	var localJSON, remoteJSON []byte
	var resolution *string

	err := s.db.QueryRow(ctx, `
		SELECT item_type, item_id, local_data, remote_data, detected_at, resolved, resolution
		FROM sync_conflict
		WHERE id = $1
	`, id).Scan(&c.Type, &c.ItemID, &localJSON, &remoteJSON, &c.Timestamp, &c.Resolved, &resolution)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrConflictNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conflict: %w", err)
	}

	if err := json.Unmarshal(localJSON, &c.LocalData); err != nil {
		return nil, fmt.Errorf("unmarshal local snapshot: %w", err)
	}
	if err := json.Unmarshal(remoteJSON, &c.RemoteData); err != nil {
		return nil, fmt.Errorf("unmarshal remote snapshot: %w", err)
	}
	if resolution != nil {
		c.Resolution = domain.Resolution(*resolution)
	}
	return c, nil
}

func (s *PGConflictStore) FindOpen(ctx context.Context, typ domain.ItemType, itemID string) (*domain.Conflict, error) {
	c := &domain.Conflict{Type: typ, ItemID: itemID}
	var localJSON, remoteJSON []byte

	err := s.db.QueryRow(ctx, `
		SELECT id, local_data, remote_data, detected_at
		FROM sync_conflict
		WHERE item_type = $1 AND item_id = $2 AND resolved = false
		ORDER BY detected_at DESC
		LIMIT 1
	`, typ, itemID).Scan(&c.ID, &localJSON, &remoteJSON, &c.Timestamp)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrConflictNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find open conflict: %w", err)
	}

	if err := json.Unmarshal(localJSON, &c.LocalData); err != nil {
		return nil, fmt.Errorf("unmarshal local snapshot: %w", err)
	}
	if err := json.Unmarshal(remoteJSON, &c.RemoteData); err != nil {
		return nil, fmt.Errorf("unmarshal remote snapshot: %w", err)
	}
	return c, nil
}

func (s *PGConflictStore) List(ctx context.Context, resolved *bool) ([]*domain.Conflict, error) {
	q := `
		SELECT id, item_type, item_id, local_data, remote_data, detected_at, resolved, resolution
		FROM sync_conflict`
	args := []any{}
	if resolved != nil {
		q += ` WHERE resolved = $1`
		args = append(args, *resolved)
	}
	q += ` ORDER BY detected_at DESC, id`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Conflict
	for rows.Next() {
		c := &domain.Conflict{}
		var localJSON, remoteJSON []byte
		var resolution *string
		if err := rows.Scan(&c.ID, &c.Type, &c.ItemID, &localJSON, &remoteJSON,
			&c.Timestamp, &c.Resolved, &resolution); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		if err := json.Unmarshal(localJSON, &c.LocalData); err != nil {
			return nil, fmt.Errorf("unmarshal local snapshot: %w", err)
		}
		if err := json.Unmarshal(remoteJSON, &c.RemoteData); err != nil {
			return nil, fmt.Errorf("unmarshal remote snapshot: %w", err)
		}
		if resolution != nil {
			c.Resolution = domain.Resolution(*resolution)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGConflictStore) MarkResolved(ctx context.Context, id string, resolution domain.Resolution) error {
	// Single-transition guard: the WHERE clause refuses already-resolved
	// rows so a resolved conflict is immutable history.
	tag, err := s.db.Exec(ctx, `
		UPDATE sync_conflict
		SET resolved = true, resolution = $2
		WHERE id = $1 AND resolved = false
	`, id, resolution)
	if err != nil {
		return fmt.Errorf("mark conflict resolved: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sync_conflict WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check conflict: %w", err)
	}
	if !exists {
		return domain.ErrConflictNotFound
	}
	return domain.ErrAlreadyResolved
}

// PGAuditLog is the Postgres-backed AuditLog. Append trims the table to the
// newest MaxLogEntries rows in the same transaction.
type PGAuditLog struct {
	db *pgxpool.Pool
}

// NewPGAuditLog creates an audit log over the given pool.
func NewPGAuditLog(db *pgxpool.Pool) *PGAuditLog {
	return &PGAuditLog{db: db}
}

func (l *PGAuditLog) Append(ctx context.Context, e *domain.LogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	detailsJSON, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal log details: %w", err)
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin log append: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO sync_log (id, item_type, action, direction, status, logged_at, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Type, e.Action, e.Direction, e.Status, e.Timestamp, detailsJSON); err != nil {
		return fmt.Errorf("append log: %w", err)
	}

	// Keep only the newest MaxLogEntries rows.
	if _, err := tx.Exec(ctx, `
		DELETE FROM sync_log
		WHERE seq < (
			SELECT COALESCE(MIN(seq), 0)
			FROM (SELECT seq FROM sync_log ORDER BY seq DESC LIMIT $1) keep
		)
	`, MaxLogEntries); err != nil {
		return fmt.Errorf("trim log: %w", err)
	}

	return tx.Commit(ctx)
}

func (l *PGAuditLog) Query(ctx context.Context, f LogFilter) ([]*domain.LogEntry, error) {
	limit := f.Limit
	if limit <= 0 || limit > MaxLogEntries {
		limit = MaxLogEntries
	}

	q := `
		SELECT id, item_type, action, direction, status, logged_at, details
		FROM sync_log
		WHERE 1=1`
	args := []any{}
	if f.Type != "" {
		args = append(args, f.Type)
		q += fmt.Sprintf(" AND item_type = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d", len(args))

	rows, err := l.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	var out []*domain.LogEntry
	for rows.Next() {
		e := &domain.LogEntry{}
		var detailsJSON []byte
		if err := rows.Scan(&e.ID, &e.Type, &e.Action, &e.Direction, &e.Status,
			&e.Timestamp, &detailsJSON); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal log details: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
