package memory

import (
	"context"
	"sync"
	"time"

	"github.com/predictify/predictifyd/internal/domain"
)

// AuditStore is an in-memory domain.AuditStore.
type AuditStore struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
	next    int64
}

// NewAuditStore creates an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{next: 1}
}

// Log appends an entry.
func (s *AuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, domain.AuditEntry{
		ID:        s.next,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	s.next++
	return nil
}

// List returns entries newest first.
func (s *AuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditEntry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i])
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}
