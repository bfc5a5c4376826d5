package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists market records. Update is intended for the resolution
// engine and stake ledger only; external callers go through the services.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	Get(ctx context.Context, id string) (Market, error)
	Update(ctx context.Context, m Market) error
	// ListNeedingFinalization returns markets with a proposal whose dispute
	// window has closed, that are neither finalized nor disputed.
	ListNeedingFinalization(ctx context.Context, now time.Time, limit int) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// StakeStore persists stake entries and the running per-outcome totals.
// Record must apply the entry, the per-outcome accumulator, and the market's
// total-staked counter as one atomic write.
type StakeStore interface {
	Record(ctx context.Context, e StakeEntry) error
	Get(ctx context.Context, marketID, participant string) (StakeEntry, error)
	OutcomeTotal(ctx context.Context, marketID, outcome string) (int64, error)
	ListByMarket(ctx context.Context, marketID string) ([]StakeEntry, error)
	// MarkClaimed sets the claimed flag and payout for an entry. It fails
	// with ErrAlreadyClaimed if the flag is already set, atomically with the
	// check.
	MarkClaimed(ctx context.Context, marketID, participant string, payout int64) error
}

// WindowConfigStore persists the global dispute-window configuration.
// GetGlobal returns the built-in default when nothing has been stored yet.
type WindowConfigStore interface {
	GetGlobal(ctx context.Context) (WindowConfig, error)
	SetGlobal(ctx context.Context, cfg WindowConfig) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log. Admin overrides and lifecycle
// transitions are recorded here so the forced path is distinguishable from
// the normal one.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// Authorizer answers whether a caller holds administrative authority. The
// authentication mechanics behind it are the hosting platform's concern.
type Authorizer interface {
	IsAdmin(caller string) bool
}

// LockManager provides per-market mutual exclusion so the check-and-write
// pairs in finalize and claim stay atomic with respect to concurrent callers.
type LockManager interface {
	// Acquire obtains the lock for key and returns an unlock function, or
	// ErrLockHeld if another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
