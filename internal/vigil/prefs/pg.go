package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements Store on a PostgreSQL user_preferences table, so
// preferences survive process restarts.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new Store backed by a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) Get(ctx context.Context, key Key) (string, error) {
	const query = `SELECT value FROM user_preferences WHERE namespace = $1 AND user_id = $2`

	var value string
	err := p.db.QueryRow(ctx, query, string(key.Namespace), key.UserID).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return value, nil
}

func (p *PgStore) Set(ctx context.Context, key Key, value string) error {
	const query = `INSERT INTO user_preferences (namespace, user_id, value, updated_at)
	               VALUES ($1, $2, $3, now())
	               ON CONFLICT (namespace, user_id)
	               DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := p.db.Exec(ctx, query, string(key.Namespace), key.UserID, value); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (p *PgStore) Delete(ctx context.Context, key Key) error {
	const query = `DELETE FROM user_preferences WHERE namespace = $1 AND user_id = $2`

	if _, err := p.db.Exec(ctx, query, string(key.Namespace), key.UserID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
