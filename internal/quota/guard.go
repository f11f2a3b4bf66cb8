// Package quota evaluates a provider's usage ledger against its configured
// limits to decide whether it may serve another request.
package quota

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/prospecta/leadengine/internal/provider"
)

// inFlightWindow bounds the trailing interval the concurrency check scans.
const inFlightWindow = 5 * time.Minute

// Guard decides provider eligibility from ledger counts. Reads are
// point-in-time snapshots, a soft throttle rather than mutual exclusion.
type Guard struct {
	ledger provider.UsageLedger
	clock  provider.Clock
	logger *zap.Logger
}

// New constructs a Guard.
func New(ledger provider.UsageLedger, clock provider.Clock, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{ledger: ledger, clock: clock, logger: logger}
}

// CheckLimits reports whether the provider may serve the operation right
// now. Malformed limits fail closed: the provider is treated as ineligible
// and the reason is logged, never silently ignored.
func (g *Guard) CheckLimits(ctx context.Context, p provider.Provider, operation string) bool {
	limits, err := provider.ParseLimits(p.ID, p.Limits)
	if err != nil {
		g.logger.Warn("provider limits unparseable, failing closed",
			zap.String("provider_id", p.ID),
			zap.String("operation", operation),
			zap.Error(err),
		)
		QuotaRejections.Inc()
		return false
	}

	now := g.clock.Now()

	if limits.MonthlyQuota != nil {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		used, err := g.ledger.CountSince(ctx, p.ID, operation, monthStart)
		if err != nil {
			g.logger.Error("monthly usage count failed, failing closed",
				zap.String("provider_id", p.ID),
				zap.String("operation", operation),
				zap.Error(err),
			)
			return false
		}
		if used >= *limits.MonthlyQuota {
			g.logger.Debug("monthly quota reached",
				zap.String("provider_id", p.ID),
				zap.String("operation", operation),
				zap.Int("used", used),
				zap.Int("quota", *limits.MonthlyQuota),
			)
			QuotaRejections.Inc()
			return false
		}
	}

	if limits.ConcurrentRequests != nil {
		// The ledger has no notion of "currently executing": recent failures
		// stand in for in-flight work, which conflates a provider that just
		// errored with one that is busy. Kept as-is so throttle behavior
		// matches the rest of the platform.
		failed, err := g.ledger.CountFailuresSince(ctx, p.ID, operation, now.Add(-inFlightWindow))
		if err != nil {
			g.logger.Error("failure count failed, failing closed",
				zap.String("provider_id", p.ID),
				zap.String("operation", operation),
				zap.Error(err),
			)
			return false
		}
		if failed >= *limits.ConcurrentRequests {
			QuotaRejections.Inc()
			return false
		}
	}

	return true
}
