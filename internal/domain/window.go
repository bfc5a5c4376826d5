package domain

import "time"

// Dispute window duration bounds, in hours.
const (
	MinWindowHours     = 1
	MaxWindowHours     = 168 // one week
	DefaultWindowHours = 48
)

// WindowConfig is the dispute-window duration configuration. The global
// config applies to every market without a per-market override
// (Market.WindowHours == 0).
type WindowConfig struct {
	Hours     int       `json:"hours"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateGlobalWindow checks a global window duration. Zero is not a valid
// global value; there is nothing further to inherit from.
func ValidateGlobalWindow(hours int) error {
	if hours < MinWindowHours || hours > MaxWindowHours {
		return ErrInvalidDuration
	}
	return nil
}

// ValidateMarketWindow checks a per-market window override. Zero means
// "inherit the global config" and is accepted.
func ValidateMarketWindow(hours int) error {
	if hours == 0 {
		return nil
	}
	return ValidateGlobalWindow(hours)
}
