package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// schema is the engine's durable state: identity mappings, conflict records,
// the bounded audit log and the local content copy.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sync_mapping (
		item_type   TEXT        NOT NULL,
		remote_id   TEXT        NOT NULL,
		local_id    TEXT        NOT NULL,
		last_synced TIMESTAMPTZ NOT NULL,
		checksum    TEXT        NOT NULL,
		PRIMARY KEY (item_type, remote_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS sync_mapping_local_idx
		ON sync_mapping (item_type, local_id)`,
	`CREATE TABLE IF NOT EXISTS sync_conflict (
		id          UUID        PRIMARY KEY,
		item_type   TEXT        NOT NULL,
		item_id     TEXT        NOT NULL,
		local_data  JSONB       NOT NULL,
		remote_data JSONB       NOT NULL,
		detected_at TIMESTAMPTZ NOT NULL,
		resolved    BOOLEAN     NOT NULL DEFAULT false,
		resolution  TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS sync_conflict_open_idx
		ON sync_conflict (resolved, detected_at DESC)`,
	`CREATE TABLE IF NOT EXISTS sync_log (
		seq       BIGSERIAL   PRIMARY KEY,
		id        UUID        NOT NULL,
		item_type TEXT        NOT NULL,
		action    TEXT        NOT NULL,
		direction TEXT        NOT NULL,
		status    TEXT        NOT NULL,
		logged_at TIMESTAMPTZ NOT NULL,
		details   JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS local_content (
		item_type  TEXT        NOT NULL,
		local_id   TEXT        NOT NULL,
		payload    JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (item_type, local_id)
	)`,
}

// Migrate applies the engine schema. Statements are idempotent so Migrate
// is safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("schema migration applied")
	return nil
}
