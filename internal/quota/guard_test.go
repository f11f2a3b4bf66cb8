package quota

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prospecta/leadengine/internal/provider"
	"github.com/prospecta/leadengine/internal/storage/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type erroringLedger struct{}

func (erroringLedger) Append(context.Context, provider.UsageRecord) error { return nil }

func (erroringLedger) CountSince(context.Context, string, string, time.Time) (int, error) {
	return 0, errors.New("ledger down")
}

func (erroringLedger) CountFailuresSince(context.Context, string, string, time.Time) (int, error) {
	return 0, errors.New("ledger down")
}

func limitedProvider(limits string) provider.Provider {
	return provider.Provider{
		ID:           "prov-1",
		Name:         "primary",
		Type:         provider.TypeAIEngine,
		IsActive:     true,
		Capabilities: []string{provider.OpAIDiscovery},
		Limits:       json.RawMessage(limits),
	}
}

func appendRecords(t *testing.T, ledger *memory.UsageStore, n int, ts time.Time, success bool) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, ledger.Append(context.Background(), provider.UsageRecord{
			ProviderID: "prov-1",
			Operation:  provider.OpAIDiscovery,
			Success:    success,
			Timestamp:  ts,
		}))
	}
}

func TestGuard_CheckLimits_NoLimitsAllows(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)}
	g := New(memory.NewUsageStore(), clock, zap.NewNop())

	require.True(t, g.CheckLimits(context.Background(), limitedProvider(""), provider.OpAIDiscovery))
}

func TestGuard_CheckLimits_MonthlyQuotaExhausted(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)}
	ledger := memory.NewUsageStore()
	g := New(ledger, clock, zap.NewNop())
	p := limitedProvider(`{"monthly_quota": 5}`)

	appendRecords(t, ledger, 4, clock.now.Add(-time.Hour), true)
	require.True(t, g.CheckLimits(context.Background(), p, provider.OpAIDiscovery))

	appendRecords(t, ledger, 1, clock.now.Add(-time.Minute), true)
	require.False(t, g.CheckLimits(context.Background(), p, provider.OpAIDiscovery))
}

func TestGuard_CheckLimits_QuotaResetsAtMonthStart(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 1, 0, 0, 1, 0, time.UTC)}
	ledger := memory.NewUsageStore()
	g := New(ledger, clock, zap.NewNop())
	p := limitedProvider(`{"monthly_quota": 5}`)

	// February usage does not count against the March quota.
	appendRecords(t, ledger, 10, time.Date(2025, time.February, 28, 23, 59, 0, 0, time.UTC), true)
	require.True(t, g.CheckLimits(context.Background(), p, provider.OpAIDiscovery))
}

func TestGuard_CheckLimits_FailedAttemptsCountAgainstQuota(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)}
	ledger := memory.NewUsageStore()
	g := New(ledger, clock, zap.NewNop())
	p := limitedProvider(`{"monthly_quota": 3}`)

	appendRecords(t, ledger, 3, clock.now.Add(-time.Hour), false)
	require.False(t, g.CheckLimits(context.Background(), p, provider.OpAIDiscovery))
}

func TestGuard_CheckLimits_ConcurrencyProxyBlocksOnRecentFailures(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)}
	ledger := memory.NewUsageStore()
	g := New(ledger, clock, zap.NewNop())
	p := limitedProvider(`{"concurrent_requests": 2}`)

	appendRecords(t, ledger, 2, clock.now.Add(-time.Minute), false)
	require.False(t, g.CheckLimits(context.Background(), p, provider.OpAIDiscovery))
}

func TestGuard_CheckLimits_StaleFailuresIgnored(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)}
	ledger := memory.NewUsageStore()
	g := New(ledger, clock, zap.NewNop())
	p := limitedProvider(`{"concurrent_requests": 2}`)

	// Failures older than the trailing window no longer throttle.
	appendRecords(t, ledger, 5, clock.now.Add(-10*time.Minute), false)
	require.True(t, g.CheckLimits(context.Background(), p, provider.OpAIDiscovery))
}

func TestGuard_CheckLimits_MalformedLimitsFailClosed(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)}
	g := New(memory.NewUsageStore(), clock, zap.NewNop())

	require.False(t, g.CheckLimits(context.Background(), limitedProvider(`{"monthly_quota": "many"}`), provider.OpAIDiscovery))
	require.False(t, g.CheckLimits(context.Background(), limitedProvider(`{"monthly_quota": -1}`), provider.OpAIDiscovery))
	require.False(t, g.CheckLimits(context.Background(), limitedProvider(`not json`), provider.OpAIDiscovery))
}

func TestGuard_CheckLimits_LedgerErrorFailsClosed(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)}
	g := New(erroringLedger{}, clock, zap.NewNop())

	require.False(t, g.CheckLimits(context.Background(), limitedProvider(`{"monthly_quota": 5}`), provider.OpAIDiscovery))
	require.False(t, g.CheckLimits(context.Background(), limitedProvider(`{"concurrent_requests": 5}`), provider.OpAIDiscovery))
}
