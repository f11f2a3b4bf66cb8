package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prospecta/leadengine/internal/adapter"
	"github.com/prospecta/leadengine/internal/failover"
	"github.com/prospecta/leadengine/internal/quota"
	"github.com/prospecta/leadengine/internal/registry"
	"github.com/prospecta/leadengine/internal/scrape"
	"github.com/prospecta/leadengine/internal/secrets"
	"github.com/prospecta/leadengine/internal/selector"
	"github.com/prospecta/leadengine/internal/storage/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type seqIDs struct {
	n int
}

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	clock := &fakeClock{now: time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)}
	ids := &seqIDs{}
	providers := memory.NewProviderStore()
	mappings := memory.NewMappingStore()
	ledger := memory.NewUsageStore()
	jobs := memory.NewJobStore()
	activity := memory.NewActivityLog()

	fetcher := scrape.NewFetcher(scrape.FetcherConfig{
		Timeout:     2 * time.Second,
		MaxAttempts: 1,
		BackoffBase: time.Millisecond,
	}, logger)
	engine := scrape.NewEngine(fetcher, jobs, activity, ids, clock, scrape.EngineConfig{
		ChunkSize:    5,
		ChunkDelay:   time.Millisecond,
		DomainLimit:  1000,
		DomainWindow: time.Minute,
	}, logger)

	guard := quota.New(ledger, clock, logger)
	sel := selector.New(providers, mappings, guard, logger)
	factory := adapter.NewFactory(http.DefaultClient, secrets.Noop{}, engine, logger)
	exec := failover.New(sel, guard, ledger, factory, clock, logger)
	reg := registry.New(providers, mappings, secrets.Noop{}, ids, clock, logger)

	srv := httptest.NewServer(NewServer(reg, sel, guard, exec, engine, jobs, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func createProvider(t *testing.T, base string, body map[string]any) string {
	t.Helper()
	resp, decoded := doJSON(t, http.MethodPost, base+"/api/providers", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := decoded["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, decoded := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decoded["status"])
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestServer_ProviderCRUD(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	id := createProvider(t, srv.URL, map[string]any{
		"name":      "primary engine",
		"type":      "AI_ENGINE",
		"is_active": true,
		"priority":  10,
	})

	resp, decoded := doJSON(t, http.MethodGet, srv.URL+"/api/providers/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "primary engine", decoded["name"])

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/api/providers/"+id, map[string]any{"name": "renamed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, decoded = doJSON(t, http.MethodGet, srv.URL+"/api/providers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decoded["providers"], 1)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/providers/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/providers/"+id, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CreateProvider_MalformedLimits(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/providers", map[string]any{
		"name":   "broken",
		"type":   "AI_ENGINE",
		"limits": map[string]any{"monthly_quota": -1},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestServer_SelectProvider(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	id := createProvider(t, srv.URL, map[string]any{
		"name":      "discoverer",
		"type":      "AI_ENGINE",
		"is_active": true,
		"priority":  1,
	})

	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/operations/AI_DISCOVERY/select", map[string]any{"user_id": "u1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	selected, ok := decoded["provider"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, id, selected["id"])

	// An operation nobody serves selects null rather than erroring.
	resp, decoded = doJSON(t, http.MethodPost, srv.URL+"/api/operations/SITE_ANALYSIS/select", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, decoded["provider"])
}

func TestServer_ExecuteOperation_FailoverAcrossProviders(t *testing.T) {
	t.Parallel()

	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer flaky.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"answer": "leads found", "tokens_used": 9}`))
	}))
	defer healthy.Close()

	srv := newTestServer(t)
	createProvider(t, srv.URL, map[string]any{
		"name":      "flaky",
		"type":      "AI_ENGINE",
		"is_active": true,
		"priority":  1,
		"config":    map[string]any{"endpoint": flaky.URL},
	})
	healthyID := createProvider(t, srv.URL, map[string]any{
		"name":      "healthy",
		"type":      "AI_ENGINE",
		"is_active": true,
		"priority":  2,
		"config":    map[string]any{"endpoint": healthy.URL},
	})

	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/operations/AI_DISCOVERY/execute",
		map[string]any{"payload": map[string]any{"query": "find widgets"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, healthyID, decoded["provider_used"])
	output, ok := decoded["output"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "leads found", output["answer"])
}

func TestServer_ExecuteOperation_NoProvider(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/operations/AI_DISCOVERY/execute",
		map[string]any{"payload": map[string]any{}})
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_ExecuteOperation_Exhausted(t *testing.T) {
	t.Parallel()

	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer flaky.Close()

	srv := newTestServer(t)
	createProvider(t, srv.URL, map[string]any{
		"name":      "flaky",
		"type":      "AI_ENGINE",
		"is_active": true,
		"priority":  1,
		"config":    map[string]any{"endpoint": flaky.URL},
	})

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/operations/AI_DISCOVERY/execute",
		map[string]any{"payload": map[string]any{}})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestServer_SyncMappings(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	id := createProvider(t, srv.URL, map[string]any{
		"name":      "shifting",
		"type":      "AI_ENGINE",
		"is_active": true,
		"priority":  1,
	})

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/providers/"+id, map[string]any{"priority": 9})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The update already synced, so an explicit sync has nothing to do.
	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/providers/"+id+"/sync-mappings", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 0, decoded["updated"])

	resp, decoded = doJSON(t, http.MethodPost, srv.URL+"/api/mappings/sync-all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 0, decoded["total_updated"])
}

func TestServer_CheckLimits(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	id := createProvider(t, srv.URL, map[string]any{
		"name":      "limited",
		"type":      "AI_ENGINE",
		"is_active": true,
		"limits":    map[string]any{"monthly_quota": 0},
	})

	resp, decoded := doJSON(t, http.MethodGet, srv.URL+"/api/providers/"+id+"/limits/AI_DISCOVERY", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, decoded["allowed"])
}

func TestServer_ScrapeEndpoints(t *testing.T) {
	t.Parallel()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Widget Co</title></head><body><main>`,
			`Widget Co builds industrial widgets for manufacturers worldwide and has`,
			` documented its full catalog, services, and support offerings on this page.`,
			`</main></body></html>`)
	}))
	defer site.Close()

	srv := newTestServer(t)

	resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/api/scrape", map[string]any{"url": site.URL})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, decoded["success"])

	resp, decoded = doJSON(t, http.MethodPost, srv.URL+"/api/scrape/batch",
		map[string]any{"urls": []string{site.URL + "/a", site.URL + "/b"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "completed", decoded["status"])
	jobID, _ := decoded["id"].(string)
	require.NotEmpty(t, jobID)

	resp, decoded = doJSON(t, http.MethodGet, srv.URL+"/api/scrape/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decoded["results"], 2)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/scrape/jobs/ghost", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/scrape", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
