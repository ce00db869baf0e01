package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps each collection as one jsonb array row in the collections table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore instantiates the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	const query = `SELECT records FROM collections WHERE name=$1`
	var data []byte
	if err := s.pool.QueryRow(ctx, query, collection).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}
	records, err := decodeArray(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return records, nil
}

func (s *PostgresStore) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	payload, err := encodeArray(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	const query = `
        INSERT INTO collections (name, records, version, updated_at)
        VALUES ($1, $2::jsonb, 1, NOW())
        ON CONFLICT (name) DO UPDATE
            SET records = EXCLUDED.records, version = collections.version + 1, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, collection, string(payload)); err != nil {
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}

// Version returns how many times collection has been saved.
func (s *PostgresStore) Version(ctx context.Context, collection string) (int64, error) {
	const query = `SELECT version FROM collections WHERE name=$1`
	var version int64
	if err := s.pool.QueryRow(ctx, query, collection).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}
