package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"entstore/infrastructure/config"
	"entstore/infrastructure/di"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Environment: "development",
		LogLevel:    "info",
		Server: config.ServerConfig{
			Address:         ":0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Store: config.StoreConfig{
			DefaultNamespace: "default",
			LimiterCapacity:  8,
		},
		Embedding: config.EmbeddingConfig{
			Dimensions:  16,
			MaxRetries:  1,
			BaseBackoff: time.Millisecond,
			MaxBackoff:  time.Millisecond,
		},
	}
	require.NoError(t, cfg.Validate())

	logger := zap.NewNop()
	metrics := di.ProvideMetrics()
	stores := di.ProvideStoreRegistry(cfg, di.ProvideEmbedder(cfg, logger), di.ProvideRetention(cfg), metrics, logger)
	handler := di.ProvideRouter(cfg, stores, metrics, logger)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, apiResponse) {
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
	defer resp.Body.Close()

	var parsed apiResponse
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	}
	return resp, parsed
}

func TestEntityLifecycleOverHTTP(t *testing.T) {
	srv := testServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/entities/Post", map[string]interface{}{
		"id":     "p1",
		"fields": map[string]interface{}{"title": "hello world"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, body.Success)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, "p1", created["$id"])
	assert.Equal(t, "Post", created["$type"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/entities/Post/p1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPatch, srv.URL+"/api/v1/entities/Post/p1", map[string]interface{}{
		"title": "updated title",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &updated))
	assert.Equal(t, "updated title", updated["title"])

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/entities/Post/p1", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/entities/Post/p1", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestSearchAndRelationsOverHTTP(t *testing.T) {
	srv := testServer(t)

	for id, title := range map[string]string{
		"d1": "quantum computing basics",
		"d2": "gardening for beginners",
	} {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/entities/Doc", map[string]interface{}{
			"id":     id,
			"fields": map[string]interface{}{"title": title},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/entities/Doc/search?q=quantum", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hits []map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0]["$id"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/relations", map[string]interface{}{
		"from":     map[string]string{"type": "Doc", "id": "d1"},
		"relation": "references",
		"to":       map[string]string{"type": "Doc", "id": "d2"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/entities/Doc/d1/related/references", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refs []map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &refs))
	require.Len(t, refs, 1)
	assert.Equal(t, "d2", refs[0]["$id"])
	assert.Equal(t, "gardening for beginners", refs[0]["title"])
}

func TestNamespaceIsolationOverHTTP(t *testing.T) {
	srv := testServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/entities/Post?ns=tenant-a", map[string]interface{}{
		"id":     "p1",
		"fields": map[string]interface{}{"title": "isolated"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/v1/entities/Post/p1?ns=tenant-b", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/entities/Post/p1?ns=bad.ns", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "INVALID_NAMESPACE", body.Error.Code)
}

func TestEventsAndStatsOverHTTP(t *testing.T) {
	srv := testServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/entities/Post", map[string]interface{}{
		"id":     "p1",
		"fields": map[string]interface{}{"title": "x"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/events?event=Post.*", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var log []map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &log))
	require.Len(t, log, 1)
	assert.Equal(t, "Post.created", log[0]["event"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		Namespace string         `json:"namespace"`
		Entities  map[string]int `json:"entities"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, "default", stats.Namespace)
	assert.Equal(t, 1, stats.Entities["Post"])
}

func TestSchemaDiffOverHTTP(t *testing.T) {
	srv := testServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/schema/diff", map[string]interface{}{
		"from": []map[string]interface{}{
			{"name": "Post", "fields": []map[string]string{{"name": "title", "expr": "string"}}},
		},
		"to": []map[string]interface{}{
			{"name": "Post", "fields": []map[string]string{
				{"name": "title", "expr": "string"},
				{"name": "status", "expr": "string"},
			}},
			{"name": "Author", "fields": []map[string]string{{"name": "name", "expr": "string"}}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Summary string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &out))
	assert.Contains(t, out.Summary, "Author")
	assert.Contains(t, out.Summary, "status")
}
