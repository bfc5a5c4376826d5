package domain

import "time"

// StakeEntry is one participant's stake in one market. A participant holds at
// most one entry per market; there is no stake-switching or topping up.
// Amount is a non-negative integer in the token's smallest unit.
type StakeEntry struct {
	MarketID    string     `json:"market_id"`
	Participant string     `json:"participant"`
	Outcome     string     `json:"outcome"`
	Amount      int64      `json:"amount"`
	Claimed     bool       `json:"claimed"`
	Payout      int64      `json:"payout"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
