// Package failover walks the selector's ordered provider list, invoking
// each adapter until one succeeds or all fail.
package failover

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prospecta/leadengine/internal/provider"
	"github.com/prospecta/leadengine/internal/selector"
)

// AdapterFactory builds the invoker for a candidate. The variant is fixed by
// the provider's type at construction time.
type AdapterFactory interface {
	Adapter(p provider.Provider, m provider.OperationMapping) (provider.Invoker, error)
}

// CandidateLister is the selector surface the executor depends on.
type CandidateLister interface {
	Eligible(ctx context.Context, operation string) ([]selector.Candidate, error)
}

// Result is returned on a successful invocation, tagged with the provider
// that served it.
type Result struct {
	Output       map[string]any `json:"output"`
	ProviderUsed string         `json:"provider_used"`
	ProviderName string         `json:"provider_name"`
	Priority     int            `json:"priority"`
}

// Executor attempts eligible providers in ascending priority order, exactly
// once each per call. Same-provider retry belongs to the scraping engine,
// not here.
type Executor struct {
	candidates CandidateLister
	guard      selector.LimitChecker
	ledger     provider.UsageLedger
	adapters   AdapterFactory
	clock      provider.Clock
	logger     *zap.Logger
}

// New constructs an Executor.
func New(
	candidates CandidateLister,
	guard selector.LimitChecker,
	ledger provider.UsageLedger,
	adapters AdapterFactory,
	clock provider.Clock,
	logger *zap.Logger,
) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		candidates: candidates,
		guard:      guard,
		ledger:     ledger,
		adapters:   adapters,
		clock:      clock,
		logger:     logger,
	}
}

// Execute routes the payload to the first provider that can serve the
// operation. Every attempt, pass or fail, is appended to the usage ledger.
// With no eligible under-quota provider it returns ErrNoProviderAvailable;
// when every candidate fails it returns an ExhaustedError chaining the last
// cause.
func (e *Executor) Execute(ctx context.Context, operation string, payload map[string]any) (Result, error) {
	candidates, err := e.candidates.Eligible(ctx, operation)
	if err != nil {
		return Result{}, fmt.Errorf("resolve candidates for %s: %w", operation, err)
	}

	var (
		lastErr  error
		attempts int
	)
	for _, cand := range candidates {
		if e.guard != nil && !e.guard.CheckLimits(ctx, cand.Provider, operation) {
			continue
		}
		attempts++
		Attempts.Inc()

		output, invokeErr := e.attempt(ctx, operation, cand, payload)
		if invokeErr != nil {
			lastErr = invokeErr
			e.logger.Warn("provider attempt failed, failing over",
				zap.String("operation", operation),
				zap.String("provider_id", cand.Provider.ID),
				zap.Error(invokeErr),
			)
			continue
		}

		e.logger.Info("operation served",
			zap.String("operation", operation),
			zap.String("provider_id", cand.Provider.ID),
			zap.Int("priority", cand.Provider.Priority),
		)
		return Result{
			Output:       output,
			ProviderUsed: cand.Provider.ID,
			ProviderName: cand.Provider.Name,
			Priority:     cand.Provider.Priority,
		}, nil
	}

	if attempts == 0 {
		return Result{}, fmt.Errorf("%s: %w", operation, provider.ErrNoProviderAvailable)
	}
	Exhausted.Inc()
	return Result{}, &provider.ExhaustedError{Operation: operation, Attempts: attempts, LastErr: lastErr}
}

func (e *Executor) attempt(
	ctx context.Context,
	operation string,
	cand selector.Candidate,
	payload map[string]any,
) (map[string]any, error) {
	rec := provider.UsageRecord{
		ProviderID: cand.Provider.ID,
		Operation:  operation,
		Timestamp:  e.clock.Now(),
	}

	adapter, err := e.adapters.Adapter(cand.Provider, cand.Mapping)
	if err != nil {
		rec.ErrorMessage = err.Error()
		e.appendRecord(ctx, rec)
		return nil, &provider.InvocationError{ProviderID: cand.Provider.ID, Operation: operation, Err: err}
	}

	start := e.clock.Now()
	output, err := adapter.Invoke(ctx, payload)
	rec.Duration = e.clock.Now().Sub(start)

	if err != nil {
		rec.ErrorMessage = err.Error()
		e.appendRecord(ctx, rec)
		return nil, &provider.InvocationError{ProviderID: cand.Provider.ID, Operation: operation, Err: err}
	}

	rec.Success = true
	rec.TokensUsed = tokensFromOutput(output)
	if limits, limErr := provider.ParseLimits(cand.Provider.ID, cand.Provider.Limits); limErr == nil && limits.CostPerRequest != nil {
		rec.Cost = *limits.CostPerRequest
	}
	e.appendRecord(ctx, rec)
	return output, nil
}

// appendRecord keeps the ledger best-effort: a failed append must not turn a
// served operation into a caller-visible failure.
func (e *Executor) appendRecord(ctx context.Context, rec provider.UsageRecord) {
	if err := e.ledger.Append(ctx, rec); err != nil {
		e.logger.Error("usage record append failed",
			zap.String("provider_id", rec.ProviderID),
			zap.String("operation", rec.Operation),
			zap.Error(err),
		)
	}
}

func tokensFromOutput(output map[string]any) int {
	switch v := output["tokens_used"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
