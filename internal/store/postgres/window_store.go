package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictify/predictifyd/internal/domain"
)

// WindowStore implements domain.WindowConfigStore using PostgreSQL. The
// window_config table holds a single row.
type WindowStore struct {
	pool *pgxpool.Pool
}

// NewWindowStore creates a new WindowStore backed by the given connection pool.
func NewWindowStore(pool *pgxpool.Pool) *WindowStore {
	return &WindowStore{pool: pool}
}

// GetGlobal returns the stored global config, or the built-in default when no
// row exists yet.
func (s *WindowStore) GetGlobal(ctx context.Context) (domain.WindowConfig, error) {
	const query = `SELECT hours, updated_at FROM window_config WHERE id`

	var cfg domain.WindowConfig
	err := s.pool.QueryRow(ctx, query).Scan(&cfg.Hours, &cfg.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.WindowConfig{Hours: domain.DefaultWindowHours}, nil
		}
		return domain.WindowConfig{}, fmt.Errorf("postgres: get window config: %w", err)
	}
	return cfg, nil
}

// SetGlobal upserts the single config row.
func (s *WindowStore) SetGlobal(ctx context.Context, cfg domain.WindowConfig) error {
	const query = `
		INSERT INTO window_config (id, hours, updated_at)
		VALUES (TRUE, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			hours = EXCLUDED.hours,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, query, cfg.Hours, cfg.UpdatedAt); err != nil {
		return fmt.Errorf("postgres: set window config: %w", err)
	}
	return nil
}
