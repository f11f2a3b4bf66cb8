package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prospecta/leadengine/internal/provider"
)

func TestProviderStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewProviderStore()

	p := provider.Provider{ID: "p1", Name: "one", Type: provider.TypeAIEngine, Priority: 5}
	require.NoError(t, store.CreateProvider(ctx, p))
	require.Error(t, store.CreateProvider(ctx, p))

	got, err := store.GetProvider(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "one", got.Name)

	p.Name = "renamed"
	require.NoError(t, store.UpdateProvider(ctx, p))
	got, err = store.GetProvider(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)

	require.NoError(t, store.DeleteProvider(ctx, "p1"))
	_, err = store.GetProvider(ctx, "p1")
	require.ErrorIs(t, err, provider.ErrNotFound)
	require.ErrorIs(t, store.DeleteProvider(ctx, "p1"), provider.ErrNotFound)
}

func TestProviderStore_ListOrdersByPriority(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewProviderStore()
	require.NoError(t, store.CreateProvider(ctx, provider.Provider{ID: "b", Name: "b", Type: provider.TypeAIEngine, Priority: 20}))
	require.NoError(t, store.CreateProvider(ctx, provider.Provider{ID: "a", Name: "a", Type: provider.TypeAIEngine, Priority: 10}))

	out, err := store.ListProviders(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].ID)
	require.Equal(t, "b", out[1].ID)
}

func TestMappingStore_UpsertAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMappingStore()

	require.NoError(t, store.UpsertMapping(ctx, provider.OperationMapping{
		Operation: provider.OpAIDiscovery, ProviderID: "p1", IsEnabled: true, Priority: 2,
	}))
	require.NoError(t, store.UpsertMapping(ctx, provider.OperationMapping{
		Operation: provider.OpAIDiscovery, ProviderID: "p2", IsEnabled: true, Priority: 1,
	}))
	// Upsert replaces the existing row rather than duplicating it.
	require.NoError(t, store.UpsertMapping(ctx, provider.OperationMapping{
		Operation: provider.OpAIDiscovery, ProviderID: "p1", IsEnabled: false, Priority: 7,
	}))

	byOp, err := store.ListMappingsForOperation(ctx, provider.OpAIDiscovery)
	require.NoError(t, err)
	require.Len(t, byOp, 2)

	byProvider, err := store.ListMappingsForProvider(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, byProvider, 1)
	require.False(t, byProvider[0].IsEnabled)
	require.Equal(t, 7, byProvider[0].Priority)
}

func TestMappingStore_DeleteMappingsForProvider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMappingStore()
	require.NoError(t, store.UpsertMapping(ctx, provider.OperationMapping{
		Operation: provider.OpAIDiscovery, ProviderID: "p1", IsEnabled: true,
	}))
	require.NoError(t, store.UpsertMapping(ctx, provider.OperationMapping{
		Operation: provider.OpContentAnalysis, ProviderID: "p1", IsEnabled: true,
	}))

	require.NoError(t, store.DeleteMappingsForProvider(ctx, "p1"))
	out, err := store.ListMappingsForProvider(ctx, "p1")
	require.NoError(t, err)
	require.Empty(t, out)
}
