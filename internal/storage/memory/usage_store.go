package memory

import (
	"context"
	"sync"
	"time"

	"github.com/prospecta/leadengine/internal/provider"
)

// UsageStore implements provider.UsageLedger in memory. Records are
// append-only.
type UsageStore struct {
	mu      sync.RWMutex
	records []provider.UsageRecord
}

// NewUsageStore constructs a UsageStore.
func NewUsageStore() *UsageStore {
	return &UsageStore{}
}

// Append adds a usage record.
func (s *UsageStore) Append(_ context.Context, rec provider.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// CountSince counts records for (provider, operation) at or after since.
func (s *UsageStore) CountSince(_ context.Context, providerID, operation string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.records {
		if rec.ProviderID == providerID && rec.Operation == operation && !rec.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

// CountFailuresSince counts failed records for (provider, operation) at or
// after since.
func (s *UsageStore) CountFailuresSince(_ context.Context, providerID, operation string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.records {
		if rec.ProviderID == providerID && rec.Operation == operation && !rec.Success && !rec.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

// Records returns a copy of every stored record, oldest first.
func (s *UsageStore) Records() []provider.UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]provider.UsageRecord, len(s.records))
	copy(out, s.records)
	return out
}
