package provider

import (
	"context"
	"time"
)

// Store persists provider registry rows.
type Store interface {
	CreateProvider(ctx context.Context, p Provider) error
	GetProvider(ctx context.Context, id string) (Provider, error)
	UpdateProvider(ctx context.Context, p Provider) error
	DeleteProvider(ctx context.Context, id string) error
	ListProviders(ctx context.Context) ([]Provider, error)
}

// MappingStore persists operation-to-provider mappings.
type MappingStore interface {
	UpsertMapping(ctx context.Context, m OperationMapping) error
	DeleteMappingsForProvider(ctx context.Context, providerID string) error
	ListMappingsForOperation(ctx context.Context, operation string) ([]OperationMapping, error)
	ListMappingsForProvider(ctx context.Context, providerID string) ([]OperationMapping, error)
}

// UsageLedger appends invocation attempts and answers the point-in-time
// counts the quota guard needs. Appends are safe for concurrent writers.
type UsageLedger interface {
	Append(ctx context.Context, rec UsageRecord) error
	CountSince(ctx context.Context, providerID, operation string, since time.Time) (int, error)
	CountFailuresSince(ctx context.Context, providerID, operation string, since time.Time) (int, error)
}

// Invoker executes one operation payload against a concrete provider. The
// variant is chosen once at adapter construction, not per call.
type Invoker interface {
	Invoke(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// Clock returns the current time (injected so month boundaries and windows
// are testable).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces provider and job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
