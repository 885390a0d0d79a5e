package postgres

import (
	"context"
	"database/sql"

	"conferencecentral/internal/domain"
)

type cacheRepository struct {
	DB *sql.DB
}

// NewCache returns a Cache stored in the cache_entries table, shared by every
// process using the same database.
func NewCache(db *sql.DB) domain.Cache {
	return &cacheRepository{DB: db}
}

func (r *cacheRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO cache_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`
	_, err := r.DB.ExecContext(ctx, query, key, value)
	return err
}

func (r *cacheRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM cache_entries WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *cacheRepository) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = $1`, key)
	return err
}
