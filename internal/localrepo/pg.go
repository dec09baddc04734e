package localrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchpress/contentsync/internal/domain"
)

// PG stores local content snapshots as JSONB rows keyed by
// (item_type, local_id).
type PG struct {
	db *pgxpool.Pool
}

// NewPG creates a Postgres-backed local repository.
func NewPG(db *pgxpool.Pool) *PG {
	return &PG{db: db}
}

func (r *PG) GetItem(ctx context.Context, typ domain.ItemType, localID string) (domain.Item, error) {
	var payload []byte
	err := r.db.QueryRow(ctx, `
		SELECT payload FROM local_content
		WHERE item_type = $1 AND local_id = $2
	`, typ, localID).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get local item: %w", err)
	}

	var item domain.Item
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil, fmt.Errorf("unmarshal local item: %w", err)
	}
	return item, nil
}

func (r *PG) PutItem(ctx context.Context, typ domain.ItemType, localID string, data domain.Item) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal local item: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO local_content (item_type, local_id, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_type, local_id) DO UPDATE SET
			payload    = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`, typ, localID, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put local item: %w", err)
	}
	return nil
}
