package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	getItemSQL = `SELECT value FROM storefront_items WHERE key = $1`
	setItemSQL = `INSERT INTO storefront_items (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of Storage using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{
		db: dbp,
	}
}

func (p *PgStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(ctx, getItemSQL, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item %q: %w", key, err)
	}
	return value, nil
}

func (p *PgStore) SetItem(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := p.db.Exec(ctx, setItemSQL, key, value); err != nil {
		return fmt.Errorf("failed to set item %q: %w", key, err)
	}
	return nil
}
