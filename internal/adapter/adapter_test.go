package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prospecta/leadengine/internal/provider"
	"github.com/prospecta/leadengine/internal/secrets"
)

func aiProvider(config string) provider.Provider {
	return provider.Provider{
		ID:           "ai-1",
		Name:         "engine",
		Type:         provider.TypeAIEngine,
		IsActive:     true,
		Capabilities: []string{provider.OpAIDiscovery},
		Config:       json.RawMessage(config),
	}
}

func TestFactory_Adapter_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	f := NewFactory(http.DefaultClient, secrets.Noop{}, nil, zap.NewNop())

	_, err := f.Adapter(aiProvider(`{"model": "large"}`), provider.OperationMapping{})
	var cfgErr *provider.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "config.endpoint", cfgErr.Field)
}

func TestFactory_Adapter_RejectsUnknownType(t *testing.T) {
	t.Parallel()

	f := NewFactory(http.DefaultClient, secrets.Noop{}, nil, zap.NewNop())

	p := aiProvider(`{"endpoint": "https://example.com"}`)
	p.Type = "ORACLE"
	_, err := f.Adapter(p, provider.OperationMapping{})
	require.Error(t, err)
}

func TestFactory_Adapter_MappingConfigOverridesProvider(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"source": "mapping"}`))
	}))
	defer srv.Close()

	f := NewFactory(srv.Client(), secrets.Noop{}, nil, zap.NewNop())
	p := aiProvider(`{"endpoint": "https://unreachable.invalid"}`)
	m := provider.OperationMapping{
		Operation:  provider.OpAIDiscovery,
		ProviderID: p.ID,
		IsEnabled:  true,
		Config:     json.RawMessage(`{"endpoint": "` + srv.URL + `"}`),
	}

	inv, err := f.Adapter(p, m)
	require.NoError(t, err)
	out, err := inv.Invoke(context.Background(), map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "mapping", out["source"])
}

func TestHTTPInvoker_SendsModelAndBearerToken(t *testing.T) {
	t.Parallel()

	cipher, err := secrets.NewAESCipher("test")
	require.NoError(t, err)
	encrypted, err := cipher.Encrypt("sk-token")
	require.NoError(t, err)

	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"answer": "ok", "tokens_used": 17}`))
	}))
	defer srv.Close()

	cfg, err := json.Marshal(map[string]any{
		"endpoint": srv.URL,
		"model":    "engine-large",
		"api_key":  encrypted,
	})
	require.NoError(t, err)

	f := NewFactory(srv.Client(), cipher, nil, zap.NewNop())
	inv, err := f.Adapter(aiProvider(string(cfg)), provider.OperationMapping{})
	require.NoError(t, err)

	out, err := inv.Invoke(context.Background(), map[string]any{"query": "find leads"})
	require.NoError(t, err)
	require.Equal(t, "ok", out["answer"])
	require.Equal(t, "Bearer sk-token", gotAuth)
	require.Equal(t, "engine-large", gotBody["model"])
	require.Equal(t, "find leads", gotBody["query"])
}

func TestHTTPInvoker_NonSuccessStatusIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFactory(srv.Client(), secrets.Noop{}, nil, zap.NewNop())
	inv, err := f.Adapter(aiProvider(`{"endpoint": "`+srv.URL+`"}`), provider.OperationMapping{})
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), map[string]any{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestFactory_Adapter_ScraperNeedsEngine(t *testing.T) {
	t.Parallel()

	f := NewFactory(http.DefaultClient, secrets.Noop{}, nil, zap.NewNop())
	p := provider.Provider{ID: "s1", Name: "scraper", Type: provider.TypeScraper}

	_, err := f.Adapter(p, provider.OperationMapping{})
	require.Error(t, err)
}

func TestStringSlice(t *testing.T) {
	t.Parallel()

	out, err := stringSlice([]string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, out)

	out, err = stringSlice([]any{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, out)

	_, err = stringSlice([]any{"a", 2})
	require.Error(t, err)
	_, err = stringSlice("not a list")
	require.Error(t, err)
}
