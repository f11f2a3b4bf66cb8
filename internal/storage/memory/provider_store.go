// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/prospecta/leadengine/internal/provider"
)

// ProviderStore implements provider.Store in memory.
type ProviderStore struct {
	mu        sync.RWMutex
	providers map[string]provider.Provider
}

// NewProviderStore constructs a ProviderStore.
func NewProviderStore() *ProviderStore {
	return &ProviderStore{providers: make(map[string]provider.Provider)}
}

// CreateProvider stores a new provider row.
func (s *ProviderStore) CreateProvider(_ context.Context, p provider.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.providers[p.ID]; exists {
		return fmt.Errorf("provider %s already exists", p.ID)
	}
	s.providers[p.ID] = p
	return nil
}

// GetProvider fetches a provider by ID.
func (s *ProviderStore) GetProvider(_ context.Context, id string) (provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[id]
	if !ok {
		return provider.Provider{}, fmt.Errorf("provider %s: %w", id, provider.ErrNotFound)
	}
	return p, nil
}

// UpdateProvider replaces a provider row.
func (s *ProviderStore) UpdateProvider(_ context.Context, p provider.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[p.ID]; !ok {
		return fmt.Errorf("provider %s: %w", p.ID, provider.ErrNotFound)
	}
	s.providers[p.ID] = p
	return nil
}

// DeleteProvider removes a provider row.
func (s *ProviderStore) DeleteProvider(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[id]; !ok {
		return fmt.Errorf("provider %s: %w", id, provider.ErrNotFound)
	}
	delete(s.providers, id)
	return nil
}

// ListProviders returns every provider row ordered by (priority, name).
func (s *ProviderStore) ListProviders(_ context.Context) ([]provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]provider.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// MappingStore implements provider.MappingStore in memory.
type MappingStore struct {
	mu       sync.RWMutex
	mappings map[string]provider.OperationMapping
}

// NewMappingStore constructs a MappingStore.
func NewMappingStore() *MappingStore {
	return &MappingStore{mappings: make(map[string]provider.OperationMapping)}
}

func mappingKey(operation, providerID string) string {
	return operation + "/" + providerID
}

// UpsertMapping inserts or replaces a mapping row.
func (s *MappingStore) UpsertMapping(_ context.Context, m provider.OperationMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[mappingKey(m.Operation, m.ProviderID)] = m
	return nil
}

// DeleteMappingsForProvider removes every mapping owned by a provider.
func (s *MappingStore) DeleteMappingsForProvider(_ context.Context, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, m := range s.mappings {
		if m.ProviderID == providerID {
			delete(s.mappings, key)
		}
	}
	return nil
}

// ListMappingsForOperation returns every mapping for an operation.
func (s *MappingStore) ListMappingsForOperation(_ context.Context, operation string) ([]provider.OperationMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []provider.OperationMapping
	for _, m := range s.mappings {
		if m.Operation == operation {
			out = append(out, m)
		}
	}
	return out, nil
}

// ListMappingsForProvider returns every mapping owned by a provider.
func (s *MappingStore) ListMappingsForProvider(_ context.Context, providerID string) ([]provider.OperationMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []provider.OperationMapping
	for _, m := range s.mappings {
		if m.ProviderID == providerID {
			out = append(out, m)
		}
	}
	return out, nil
}
