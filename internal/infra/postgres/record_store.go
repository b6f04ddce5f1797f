package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// RecordStore implements app.RecordStore on Postgres: one jsonb row per
// collection. Each write replaces the collection's document in a single
// statement, so concurrent writers cannot interleave partial state.
type RecordStore struct {
	pool *pgxpool.Pool
}

func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

func (s *RecordStore) ReadAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM collections WHERE name=$1`, collection).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("load collection %s: %w", collection, err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		// Corrupt documents read as empty per the store contract.
		return []json.RawMessage{}, nil
	}
	return records, nil
}

func (s *RecordStore) WriteAll(ctx context.Context, collection string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", collection, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO collections (name, data) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, data)
	if err != nil {
		return fmt.Errorf("store collection %s: %w", collection, err)
	}
	return nil
}
