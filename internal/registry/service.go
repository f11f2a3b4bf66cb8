// Package registry implements the admin surface over providers and their
// operation mappings.
package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/prospecta/leadengine/internal/provider"
	"github.com/prospecta/leadengine/internal/secrets"
)

// Service performs provider/mapping CRUD and priority synchronization.
type Service struct {
	providers provider.Store
	mappings  provider.MappingStore
	cipher    secrets.Cipher
	ids       provider.IDGenerator
	clock     provider.Clock
	logger    *zap.Logger
}

// New constructs a Service.
func New(
	providers provider.Store,
	mappings provider.MappingStore,
	cipher secrets.Cipher,
	ids provider.IDGenerator,
	clock provider.Clock,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		providers: providers,
		mappings:  mappings,
		cipher:    cipher,
		ids:       ids,
		clock:     clock,
		logger:    logger,
	}
}

// CreateProviderInput carries the admin request to register a provider.
type CreateProviderInput struct {
	Name         string          `json:"name"`
	Type         provider.Type   `json:"type"`
	IsActive     bool            `json:"is_active"`
	Priority     int             `json:"priority"`
	Capabilities []string        `json:"capabilities,omitempty"`
	Config       json.RawMessage `json:"config,omitempty"`
	Limits       json.RawMessage `json:"limits,omitempty"`
}

// SyncReport summarizes a bulk priority synchronization run.
type SyncReport struct {
	UpdatedByProvider map[string]int `json:"updated_by_provider"`
	TotalUpdated      int            `json:"total_updated"`
}

// CreateProvider validates and stores a provider, encrypts its credential,
// and derives one enabled mapping per declared capability at the provider's
// priority.
func (s *Service) CreateProvider(ctx context.Context, in CreateProviderInput) (provider.Provider, error) {
	if in.Name == "" {
		return provider.Provider{}, fmt.Errorf("provider name is required")
	}
	if !provider.ValidType(in.Type) {
		return provider.Provider{}, fmt.Errorf("unknown provider type %q", in.Type)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return provider.Provider{}, fmt.Errorf("generate provider id: %w", err)
	}

	// Parse once up front so malformed blobs are rejected at registration,
	// not discovered mid-routing.
	settings, err := provider.ParseSettings(id, in.Config)
	if err != nil {
		return provider.Provider{}, err
	}
	if _, err := provider.ParseLimits(id, in.Limits); err != nil {
		return provider.Provider{}, err
	}

	config := in.Config
	if settings.APIKey != "" {
		settings.APIKey, err = s.cipher.Encrypt(settings.APIKey)
		if err != nil {
			return provider.Provider{}, fmt.Errorf("encrypt credential: %w", err)
		}
		config, err = json.Marshal(settings)
		if err != nil {
			return provider.Provider{}, fmt.Errorf("marshal config: %w", err)
		}
	}

	capabilities := in.Capabilities
	if len(capabilities) == 0 {
		capabilities = provider.DefaultCapabilities(in.Type)
	}

	now := s.clock.Now()
	p := provider.Provider{
		ID:           id,
		Name:         in.Name,
		Type:         in.Type,
		IsActive:     in.IsActive,
		Priority:     in.Priority,
		Capabilities: capabilities,
		Config:       config,
		Limits:       in.Limits,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.providers.CreateProvider(ctx, p); err != nil {
		return provider.Provider{}, fmt.Errorf("create provider: %w", err)
	}

	for _, op := range capabilities {
		m := provider.OperationMapping{
			Operation:  op,
			ProviderID: p.ID,
			IsEnabled:  true,
			Priority:   p.Priority,
		}
		if err := s.mappings.UpsertMapping(ctx, m); err != nil {
			return provider.Provider{}, fmt.Errorf("derive mapping for %s: %w", op, err)
		}
	}

	s.logger.Info("provider registered",
		zap.String("provider_id", p.ID),
		zap.String("name", p.Name),
		zap.String("type", string(p.Type)),
		zap.Int("mappings", len(capabilities)),
	)
	return p, nil
}

// UpdateProviderInput carries mutable provider fields.
type UpdateProviderInput struct {
	Name         *string          `json:"name,omitempty"`
	IsActive     *bool            `json:"is_active,omitempty"`
	Priority     *int             `json:"priority,omitempty"`
	Capabilities []string         `json:"capabilities,omitempty"`
	Config       *json.RawMessage `json:"config,omitempty"`
	Limits       *json.RawMessage `json:"limits,omitempty"`
}

// UpdateProvider applies the patch. A priority change triggers mapping
// priority synchronization, since the duplication is not maintained
// automatically.
func (s *Service) UpdateProvider(ctx context.Context, id string, in UpdateProviderInput) (provider.Provider, error) {
	p, err := s.providers.GetProvider(ctx, id)
	if err != nil {
		return provider.Provider{}, fmt.Errorf("get provider %s: %w", id, err)
	}

	priorityChanged := false
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.Priority != nil && *in.Priority != p.Priority {
		p.Priority = *in.Priority
		priorityChanged = true
	}
	if len(in.Capabilities) > 0 {
		p.Capabilities = in.Capabilities
	}
	if in.Config != nil {
		settings, err := provider.ParseSettings(id, *in.Config)
		if err != nil {
			return provider.Provider{}, err
		}
		raw := *in.Config
		if settings.APIKey != "" {
			settings.APIKey, err = s.cipher.Encrypt(settings.APIKey)
			if err != nil {
				return provider.Provider{}, fmt.Errorf("encrypt credential: %w", err)
			}
			raw, err = json.Marshal(settings)
			if err != nil {
				return provider.Provider{}, fmt.Errorf("marshal config: %w", err)
			}
		}
		p.Config = raw
	}
	if in.Limits != nil {
		if _, err := provider.ParseLimits(id, *in.Limits); err != nil {
			return provider.Provider{}, err
		}
		p.Limits = *in.Limits
	}

	p.UpdatedAt = s.clock.Now()
	if err := s.providers.UpdateProvider(ctx, p); err != nil {
		return provider.Provider{}, fmt.Errorf("update provider %s: %w", id, err)
	}

	if priorityChanged {
		if _, err := s.SyncMappingPriority(ctx, id); err != nil {
			return provider.Provider{}, err
		}
	}
	return p, nil
}

// DeleteProvider removes the provider and its mappings.
func (s *Service) DeleteProvider(ctx context.Context, id string) error {
	if err := s.mappings.DeleteMappingsForProvider(ctx, id); err != nil {
		return fmt.Errorf("delete mappings for %s: %w", id, err)
	}
	if err := s.providers.DeleteProvider(ctx, id); err != nil {
		return fmt.Errorf("delete provider %s: %w", id, err)
	}
	s.logger.Info("provider deleted", zap.String("provider_id", id))
	return nil
}

// GetProvider fetches a provider by ID.
func (s *Service) GetProvider(ctx context.Context, id string) (provider.Provider, error) {
	return s.providers.GetProvider(ctx, id)
}

// ListProviders returns every registered provider.
func (s *Service) ListProviders(ctx context.Context) ([]provider.Provider, error) {
	return s.providers.ListProviders(ctx)
}

// SyncMappingPriority rewrites every mapping of the provider to the
// provider's current priority and returns how many rows changed. Running it
// twice in a row is a no-op.
func (s *Service) SyncMappingPriority(ctx context.Context, providerID string) (int, error) {
	p, err := s.providers.GetProvider(ctx, providerID)
	if err != nil {
		return 0, fmt.Errorf("get provider %s: %w", providerID, err)
	}
	mappings, err := s.mappings.ListMappingsForProvider(ctx, providerID)
	if err != nil {
		return 0, fmt.Errorf("list mappings for %s: %w", providerID, err)
	}

	updated := 0
	for _, m := range mappings {
		if m.Priority == p.Priority {
			continue
		}
		m.Priority = p.Priority
		if err := s.mappings.UpsertMapping(ctx, m); err != nil {
			return updated, fmt.Errorf("sync mapping %s/%s: %w", m.Operation, providerID, err)
		}
		updated++
	}

	if updated > 0 {
		s.logger.Info("mapping priorities synced",
			zap.String("provider_id", providerID),
			zap.Int("updated", updated),
		)
	}
	return updated, nil
}

// BulkSyncAllMappingPriorities runs SyncMappingPriority for every provider
// and reports per-provider update counts.
func (s *Service) BulkSyncAllMappingPriorities(ctx context.Context) (SyncReport, error) {
	providers, err := s.providers.ListProviders(ctx)
	if err != nil {
		return SyncReport{}, fmt.Errorf("list providers: %w", err)
	}

	report := SyncReport{UpdatedByProvider: make(map[string]int, len(providers))}
	for _, p := range providers {
		n, err := s.SyncMappingPriority(ctx, p.ID)
		if err != nil {
			return report, err
		}
		report.UpdatedByProvider[p.ID] = n
		report.TotalUpdated += n
	}
	return report, nil
}
