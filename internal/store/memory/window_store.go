package memory

import (
	"context"
	"sync"

	"github.com/predictify/predictifyd/internal/domain"
)

// WindowStore is an in-memory domain.WindowConfigStore.
type WindowStore struct {
	mu  sync.RWMutex
	cfg *domain.WindowConfig
}

// NewWindowStore creates a WindowStore holding no explicit config; GetGlobal
// serves the built-in default until SetGlobal is called.
func NewWindowStore() *WindowStore {
	return &WindowStore{}
}

// GetGlobal returns the stored global config, or the default when none is set.
func (s *WindowStore) GetGlobal(ctx context.Context) (domain.WindowConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return domain.WindowConfig{Hours: domain.DefaultWindowHours}, nil
	}
	return *s.cfg, nil
}

// SetGlobal replaces the global config.
func (s *WindowStore) SetGlobal(ctx context.Context, cfg domain.WindowConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cfg
	s.cfg = &c
	return nil
}
