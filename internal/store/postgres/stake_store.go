package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictify/predictifyd/internal/domain"
)

// StakeStore implements domain.StakeStore using PostgreSQL. Record writes the
// entry, the per-outcome running total, and the market's total-staked counter
// in one transaction so the aggregates never drift from the ledger.
type StakeStore struct {
	pool *pgxpool.Pool
}

// NewStakeStore creates a new StakeStore backed by the given connection pool.
func NewStakeStore(pool *pgxpool.Pool) *StakeStore {
	return &StakeStore{pool: pool}
}

// Record inserts a stake entry and updates the aggregates atomically. A
// second entry for the same participant fails with ErrAlreadyStaked.
func (s *StakeStore) Record(ctx context.Context, e domain.StakeEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin stake tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertStake = `
		INSERT INTO stakes (market_id, participant, outcome, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.Exec(ctx, insertStake,
		e.MarketID, e.Participant, e.Outcome, e.Amount, e.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyStaked
		}
		return fmt.Errorf("postgres: insert stake %s/%s: %w", e.MarketID, e.Participant, err)
	}

	const upsertTotal = `
		INSERT INTO outcome_totals (market_id, outcome, total)
		VALUES ($1, $2, $3)
		ON CONFLICT (market_id, outcome) DO UPDATE SET
			total = outcome_totals.total + EXCLUDED.total`
	if _, err := tx.Exec(ctx, upsertTotal, e.MarketID, e.Outcome, e.Amount); err != nil {
		return fmt.Errorf("postgres: bump outcome total %s/%s: %w", e.MarketID, e.Outcome, err)
	}

	const bumpMarket = `
		UPDATE markets SET total_staked = total_staked + $2, updated_at = NOW()
		WHERE id = $1`
	if _, err := tx.Exec(ctx, bumpMarket, e.MarketID, e.Amount); err != nil {
		return fmt.Errorf("postgres: bump market total %s: %w", e.MarketID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit stake tx: %w", err)
	}
	return nil
}

// Get retrieves a participant's stake entry for a market.
func (s *StakeStore) Get(ctx context.Context, marketID, participant string) (domain.StakeEntry, error) {
	const query = `
		SELECT market_id, participant, outcome, amount, claimed, payout, claimed_at, created_at
		FROM stakes WHERE market_id = $1 AND participant = $2`

	var e domain.StakeEntry
	err := s.pool.QueryRow(ctx, query, marketID, participant).Scan(
		&e.MarketID, &e.Participant, &e.Outcome, &e.Amount,
		&e.Claimed, &e.Payout, &e.ClaimedAt, &e.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.StakeEntry{}, domain.ErrNotFound
		}
		return domain.StakeEntry{}, fmt.Errorf("postgres: get stake %s/%s: %w", marketID, participant, err)
	}
	return e, nil
}

// OutcomeTotal returns the running total staked on one outcome.
func (s *StakeStore) OutcomeTotal(ctx context.Context, marketID, outcome string) (int64, error) {
	const query = `SELECT total FROM outcome_totals WHERE market_id = $1 AND outcome = $2`

	var total int64
	err := s.pool.QueryRow(ctx, query, marketID, outcome).Scan(&total)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: outcome total %s/%s: %w", marketID, outcome, err)
	}
	return total, nil
}

// ListByMarket returns every stake entry for a market.
func (s *StakeStore) ListByMarket(ctx context.Context, marketID string) ([]domain.StakeEntry, error) {
	const query = `
		SELECT market_id, participant, outcome, amount, claimed, payout, claimed_at, created_at
		FROM stakes WHERE market_id = $1 ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stakes %s: %w", marketID, err)
	}
	defer rows.Close()

	var entries []domain.StakeEntry
	for rows.Next() {
		var e domain.StakeEntry
		if err := rows.Scan(
			&e.MarketID, &e.Participant, &e.Outcome, &e.Amount,
			&e.Claimed, &e.Payout, &e.ClaimedAt, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan stake: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list stakes rows: %w", err)
	}
	return entries, nil
}

// MarkClaimed sets the claimed flag and payout. The WHERE clause carries the
// not-claimed check so a double claim loses the race in the database, not in
// application code.
func (s *StakeStore) MarkClaimed(ctx context.Context, marketID, participant string, payout int64) error {
	const query = `
		UPDATE stakes SET claimed = TRUE, payout = $3, claimed_at = NOW()
		WHERE market_id = $1 AND participant = $2 AND NOT claimed`

	tag, err := s.pool.Exec(ctx, query, marketID, participant, payout)
	if err != nil {
		return fmt.Errorf("postgres: mark claimed %s/%s: %w", marketID, participant, err)
	}
	if tag.RowsAffected() == 0 {
		// Either no such entry or it was already claimed.
		var claimed bool
		err := s.pool.QueryRow(ctx,
			`SELECT claimed FROM stakes WHERE market_id = $1 AND participant = $2`,
			marketID, participant,
		).Scan(&claimed)
		if err == pgx.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("postgres: check claimed %s/%s: %w", marketID, participant, err)
		}
		return domain.ErrAlreadyClaimed
	}
	return nil
}
