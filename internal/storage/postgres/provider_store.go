package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prospecta/leadengine/internal/provider"
)

// ProviderStore persists provider rows in Postgres.
type ProviderStore struct {
	pool execQuerier
}

// NewProviderStore constructs a ProviderStore over an existing pool.
func NewProviderStore(pool execQuerier) (*ProviderStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ProviderStore{pool: pool}, nil
}

// CreateProvider inserts a provider row.
func (s *ProviderStore) CreateProvider(ctx context.Context, p provider.Provider) error {
	query := `
INSERT INTO providers (id, name, type, is_active, priority, capabilities, config, limits, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Name, string(p.Type), p.IsActive, p.Priority,
		p.Capabilities, []byte(p.Config), []byte(p.Limits), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

// GetProvider fetches a provider by ID.
func (s *ProviderStore) GetProvider(ctx context.Context, id string) (provider.Provider, error) {
	query := `
SELECT id, name, type, is_active, priority, capabilities, config, limits, created_at, updated_at
FROM providers WHERE id = $1`
	var (
		p       provider.Provider
		ptype   string
		rawCfg  []byte
		rawLims []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &ptype, &p.IsActive, &p.Priority,
		&p.Capabilities, &rawCfg, &rawLims, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return provider.Provider{}, fmt.Errorf("provider %s: %w", id, provider.ErrNotFound)
	}
	if err != nil {
		return provider.Provider{}, fmt.Errorf("select provider: %w", err)
	}
	p.Type = provider.Type(ptype)
	p.Config = rawCfg
	p.Limits = rawLims
	return p, nil
}

// UpdateProvider replaces the mutable columns of a provider row.
func (s *ProviderStore) UpdateProvider(ctx context.Context, p provider.Provider) error {
	query := `
UPDATE providers
SET name=$2, type=$3, is_active=$4, priority=$5, capabilities=$6, config=$7, limits=$8, updated_at=$9
WHERE id=$1`
	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.Name, string(p.Type), p.IsActive, p.Priority,
		p.Capabilities, []byte(p.Config), []byte(p.Limits), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("provider %s: %w", p.ID, provider.ErrNotFound)
	}
	return nil
}

// DeleteProvider removes a provider row.
func (s *ProviderStore) DeleteProvider(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete provider: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("provider %s: %w", id, provider.ErrNotFound)
	}
	return nil
}

// ListProviders returns every provider row.
func (s *ProviderStore) ListProviders(ctx context.Context) ([]provider.Provider, error) {
	query := `
SELECT id, name, type, is_active, priority, capabilities, config, limits, created_at, updated_at
FROM providers ORDER BY priority, name`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []provider.Provider
	for rows.Next() {
		var (
			p       provider.Provider
			ptype   string
			rawCfg  []byte
			rawLims []byte
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &ptype, &p.IsActive, &p.Priority,
			&p.Capabilities, &rawCfg, &rawLims, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		p.Type = provider.Type(ptype)
		p.Config = rawCfg
		p.Limits = rawLims
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}
	return out, nil
}

// MappingStore persists operation mappings in Postgres.
type MappingStore struct {
	pool execQuerier
}

// NewMappingStore constructs a MappingStore over an existing pool.
func NewMappingStore(pool execQuerier) (*MappingStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &MappingStore{pool: pool}, nil
}

// UpsertMapping inserts or replaces a mapping row.
func (s *MappingStore) UpsertMapping(ctx context.Context, m provider.OperationMapping) error {
	query := `
INSERT INTO operation_mappings (operation, provider_id, is_enabled, priority, config)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (operation, provider_id)
DO UPDATE SET is_enabled = EXCLUDED.is_enabled, priority = EXCLUDED.priority, config = EXCLUDED.config`
	_, err := s.pool.Exec(ctx, query, m.Operation, m.ProviderID, m.IsEnabled, m.Priority, []byte(m.Config))
	if err != nil {
		return fmt.Errorf("upsert mapping: %w", err)
	}
	return nil
}

// DeleteMappingsForProvider removes every mapping owned by a provider.
func (s *MappingStore) DeleteMappingsForProvider(ctx context.Context, providerID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM operation_mappings WHERE provider_id = $1`, providerID); err != nil {
		return fmt.Errorf("delete mappings: %w", err)
	}
	return nil
}

// ListMappingsForOperation returns every mapping for an operation.
func (s *MappingStore) ListMappingsForOperation(ctx context.Context, operation string) ([]provider.OperationMapping, error) {
	query := `
SELECT operation, provider_id, is_enabled, priority, config
FROM operation_mappings WHERE operation = $1 ORDER BY priority`
	return s.listMappings(ctx, query, operation)
}

// ListMappingsForProvider returns every mapping owned by a provider.
func (s *MappingStore) ListMappingsForProvider(ctx context.Context, providerID string) ([]provider.OperationMapping, error) {
	query := `
SELECT operation, provider_id, is_enabled, priority, config
FROM operation_mappings WHERE provider_id = $1 ORDER BY operation`
	return s.listMappings(ctx, query, providerID)
}

func (s *MappingStore) listMappings(ctx context.Context, query string, arg any) ([]provider.OperationMapping, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var out []provider.OperationMapping
	for rows.Next() {
		var (
			m      provider.OperationMapping
			rawCfg []byte
		)
		if err := rows.Scan(&m.Operation, &m.ProviderID, &m.IsEnabled, &m.Priority, &rawCfg); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		m.Config = rawCfg
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return out, nil
}
