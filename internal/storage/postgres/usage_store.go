package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/prospecta/leadengine/internal/provider"
)

// UsageStore persists usage records in Postgres. Rows are append-only.
type UsageStore struct {
	pool execQuerier
}

// NewUsageStore constructs a UsageStore over an existing pool.
func NewUsageStore(pool execQuerier) (*UsageStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &UsageStore{pool: pool}, nil
}

// Append inserts a usage record.
func (s *UsageStore) Append(ctx context.Context, rec provider.UsageRecord) error {
	query := `
INSERT INTO usage_records (provider_id, user_id, operation, tokens_used, cost, duration_ms, success, error_message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.pool.Exec(ctx, query,
		rec.ProviderID, rec.UserID, rec.Operation, rec.TokensUsed, rec.Cost,
		rec.Duration.Milliseconds(), rec.Success, rec.ErrorMessage, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert usage record: %w", err)
	}
	return nil
}

// CountSince counts records for (provider, operation) at or after since.
func (s *UsageStore) CountSince(ctx context.Context, providerID, operation string, since time.Time) (int, error) {
	query := `
SELECT COUNT(*) FROM usage_records
WHERE provider_id = $1 AND operation = $2 AND created_at >= $3`
	var n int
	if err := s.pool.QueryRow(ctx, query, providerID, operation, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count usage records: %w", err)
	}
	return n, nil
}

// CountFailuresSince counts failed records for (provider, operation) at or
// after since.
func (s *UsageStore) CountFailuresSince(ctx context.Context, providerID, operation string, since time.Time) (int, error) {
	query := `
SELECT COUNT(*) FROM usage_records
WHERE provider_id = $1 AND operation = $2 AND success = FALSE AND created_at >= $3`
	var n int
	if err := s.pool.QueryRow(ctx, query, providerID, operation, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count usage failures: %w", err)
	}
	return n, nil
}
