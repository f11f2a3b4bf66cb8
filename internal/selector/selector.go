// Package selector produces the priority-ordered list of providers able to
// serve an operation.
package selector

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/prospecta/leadengine/internal/provider"
)

// Candidate pairs an eligible provider with the mapping that enabled it.
type Candidate struct {
	Provider provider.Provider
	Mapping  provider.OperationMapping
}

// LimitChecker is the quota guard surface the selector depends on.
type LimitChecker interface {
	CheckLimits(ctx context.Context, p provider.Provider, operation string) bool
}

// Selector filters and orders providers for an operation.
type Selector struct {
	providers provider.Store
	mappings  provider.MappingStore
	guard     LimitChecker
	logger    *zap.Logger
}

// New constructs a Selector.
func New(providers provider.Store, mappings provider.MappingStore, guard LimitChecker, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{providers: providers, mappings: mappings, guard: guard, logger: logger}
}

// Eligible returns every active provider whose capability set includes the
// operation and whose mapping is enabled, ordered by (provider priority asc,
// mapping priority asc). Quota is not consulted here.
func (s *Selector) Eligible(ctx context.Context, operation string) ([]Candidate, error) {
	mappings, err := s.mappings.ListMappingsForOperation(ctx, operation)
	if err != nil {
		return nil, fmt.Errorf("list mappings for %s: %w", operation, err)
	}

	candidates := make([]Candidate, 0, len(mappings))
	for _, m := range mappings {
		if !m.IsEnabled {
			continue
		}
		p, err := s.providers.GetProvider(ctx, m.ProviderID)
		if err != nil {
			s.logger.Warn("mapping references unknown provider",
				zap.String("provider_id", m.ProviderID),
				zap.String("operation", operation),
				zap.Error(err),
			)
			continue
		}
		if !p.IsActive || !p.HasCapability(operation) {
			continue
		}
		candidates = append(candidates, Candidate{Provider: p, Mapping: m})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Provider.Priority != candidates[j].Provider.Priority {
			return candidates[i].Provider.Priority < candidates[j].Provider.Priority
		}
		return candidates[i].Mapping.Priority < candidates[j].Mapping.Priority
	})
	return candidates, nil
}

// Select returns the first eligible candidate that also passes the quota
// guard, or nil when none qualify. A nil result is a normal outcome the
// caller must branch on, not an error.
func (s *Selector) Select(ctx context.Context, operation, userID string) (*Candidate, error) {
	candidates, err := s.Eligible(ctx, operation)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if s.guard == nil || s.guard.CheckLimits(ctx, candidates[i].Provider, operation) {
			s.logger.Debug("provider selected",
				zap.String("operation", operation),
				zap.String("provider_id", candidates[i].Provider.ID),
				zap.String("user_id", userID),
			)
			return &candidates[i], nil
		}
	}
	return nil, nil
}
