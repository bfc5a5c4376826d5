package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predictify/predictifyd/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, question, outcomes, end_time,
	oracle_provider, oracle_feed_id, oracle_threshold, oracle_cmp,
	state, total_staked, window_hours,
	proposed_outcome, proposed_at, window_closes_at,
	finalized, dispute_count, proposal_source, overridden,
	winning_outcome, created_at, updated_at`

// Create inserts a new market row.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	outcomes, err := json.Marshal(m.Outcomes)
	if err != nil {
		return fmt.Errorf("postgres: marshal outcomes: %w", err)
	}

	const query = `
		INSERT INTO markets (
			id, question, outcomes, end_time,
			oracle_provider, oracle_feed_id, oracle_threshold, oracle_cmp,
			state, total_staked, window_hours, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13
		)`
	_, err = s.pool.Exec(ctx, query,
		m.ID, m.Question, outcomes, m.EndTime,
		string(m.Oracle.Provider), m.Oracle.FeedID, m.Oracle.Threshold, m.Oracle.Comparison,
		string(m.State), m.TotalStaked, m.WindowHours, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

// Get retrieves a market by its primary key.
func (s *MarketStore) Get(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// Update replaces the mutable fields of a market row.
func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			state            = $2,
			total_staked     = $3,
			window_hours     = $4,
			proposed_outcome = NULLIF($5, ''),
			proposed_at      = $6,
			window_closes_at = $7,
			finalized        = $8,
			dispute_count    = $9,
			proposal_source  = NULLIF($10, ''),
			overridden       = $11,
			winning_outcome  = NULLIF($12, ''),
			updated_at       = $13
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		m.ID, string(m.State), m.TotalStaked, m.WindowHours,
		m.Resolution.ProposedOutcome, nullTime(m.Resolution.ProposedAt), nullTime(m.Resolution.WindowClosesAt),
		m.Resolution.Finalized, m.Resolution.DisputeCount, m.Resolution.Source, m.Resolution.Overridden,
		m.WinningOutcome, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListNeedingFinalization returns markets whose dispute window closed at or
// before now and that are neither finalized nor disputed.
func (s *MarketStore) ListNeedingFinalization(ctx context.Context, now time.Time, limit int) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets
		WHERE proposed_at IS NOT NULL
		  AND NOT finalized
		  AND state <> 'disputed'
		  AND window_closes_at <= $1
		ORDER BY window_closes_at ASC`
	args := []any{now}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list needing finalization: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list needing finalization rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m               domain.Market
		outcomes        []byte
		provider, state string
		proposedOutcome *string
		proposedAt      *time.Time
		windowClosesAt  *time.Time
		source          *string
		winningOutcome  *string
	)
	err := row.Scan(
		&m.ID, &m.Question, &outcomes, &m.EndTime,
		&provider, &m.Oracle.FeedID, &m.Oracle.Threshold, &m.Oracle.Comparison,
		&state, &m.TotalStaked, &m.WindowHours,
		&proposedOutcome, &proposedAt, &windowClosesAt,
		&m.Resolution.Finalized, &m.Resolution.DisputeCount, &source, &m.Resolution.Overridden,
		&winningOutcome, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	if err := json.Unmarshal(outcomes, &m.Outcomes); err != nil {
		return domain.Market{}, fmt.Errorf("unmarshal outcomes: %w", err)
	}
	m.Oracle.Provider = domain.OracleProvider(provider)
	m.State = domain.MarketState(state)
	if proposedOutcome != nil {
		m.Resolution.ProposedOutcome = *proposedOutcome
	}
	if proposedAt != nil {
		m.Resolution.ProposedAt = *proposedAt
	}
	if windowClosesAt != nil {
		m.Resolution.WindowClosesAt = *windowClosesAt
	}
	if source != nil {
		m.Resolution.Source = *source
	}
	if winningOutcome != nil {
		m.WinningOutcome = *winningOutcome
	}
	return m, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
