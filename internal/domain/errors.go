package domain

import "errors"

// Every precondition violation maps to exactly one of these sentinel values.
// Callers translate them to API status codes; nothing in the core retries or
// swallows them.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidDuration    = errors.New("invalid window duration")
	ErrMarketNotEnded     = errors.New("market has not ended")
	ErrMarketClosed       = errors.New("market is closed for staking")
	ErrWindowStillOpen    = errors.New("dispute window still open")
	ErrWindowClosed       = errors.New("dispute window closed")
	ErrUnresolvedDisputes = errors.New("unresolved disputes")
	ErrAlreadyFinalized   = errors.New("resolution already finalized")
	ErrNotFinalized       = errors.New("resolution not finalized")
	ErrAlreadyClaimed     = errors.New("winnings already claimed")
	ErrAlreadyStaked      = errors.New("participant already staked")
	ErrNoProposal         = errors.New("no resolution proposed")
	ErrAlreadyProposed    = errors.New("resolution already proposed")
	ErrOutcomeMismatch    = errors.New("outcome not in market outcome set")
	ErrLockHeld           = errors.New("lock already held")
)
