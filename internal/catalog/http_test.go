package catalog_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ItemCatalog/internal/catalog"
	"ItemCatalog/pkg/kit"
)

func newCatalogTS(t *testing.T, limiter *kit.IPRateLimiter) *httptest.Server {
	t.Helper()

	path := filepath.Join(t.TempDir(), "items.json")
	store := catalog.NewFileStore(path)
	require.NoError(t, store.Seed(catalog.DefaultItems()))

	s := &catalog.Server{
		Store:        store,
		Stats:        catalog.NewStatsCache(store, catalog.NewFileDetector(path, nil), nil),
		Log:          zap.NewNop(),
		WriteLimiter: limiter,
	}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            zap.NewNop(),
		Service:        "catalog",
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: true,
		MetricsToken:   "metrics-token",
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(raw, &v), "body=%s", string(raw))
	return v
}

func TestCatalog_Stats(t *testing.T) {
	ts := newCatalogTS(t, nil)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/stats", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"total":5,"averagePrice":1179}`, string(raw))
}

func TestCatalog_SearchByCategory(t *testing.T) {
	ts := newCatalogTS(t, nil)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/items?q=electronics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decode[catalog.QueryResult](t, raw)
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, 1, res.TotalPages)
}

func TestCatalog_PaginatesUnfilteredList(t *testing.T) {
	ts := newCatalogTS(t, nil)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/items?limit=2&page=2", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decode[catalog.QueryResult](t, raw)
	assert.Equal(t, catalog.DefaultItems()[2:4], res.Items)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 2, res.Limit)
	assert.Equal(t, 3, res.TotalPages)
}

func TestCatalog_MalformedPagingFallsBackToDefaults(t *testing.T) {
	ts := newCatalogTS(t, nil)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/items?limit=abc&page=-1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decode[catalog.QueryResult](t, raw)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 10, res.Limit)
	assert.Len(t, res.Items, 5)
}

func TestCatalog_EmptySearchReturnsEmptyArray(t *testing.T) {
	ts := newCatalogTS(t, nil)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/items?q=nonexistentitemxyz123", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"items":[],"total":0,"page":1,"limit":10,"totalPages":0}`, string(raw))
}

func TestCatalog_GetItem(t *testing.T) {
	ts := newCatalogTS(t, nil)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/items/1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, catalog.DefaultItems()[0], decode[catalog.Item](t, raw))

	for _, id := range []string{"99999", "abc", "1.5"} {
		resp, raw = doJSON(t, http.MethodGet, ts.URL+"/items/"+id, nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "id=%s", id)

		er := decode[kit.ErrorResponse](t, raw)
		assert.Equal(t, "not found", er.Error)
		assert.NotEmpty(t, er.RequestID)
	}
}

func TestCatalog_CreateRejectsNonNumericPrice(t *testing.T) {
	ts := newCatalogTS(t, nil)

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/items", map[string]any{
		"name":     "Test",
		"category": "X",
		"price":    "abc",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "body=%s", string(raw))

	er := decode[kit.ErrorResponse](t, raw)
	assert.Equal(t, "validation failed", er.Error)
	assert.Equal(t, map[string]any{"price": "must be a number"}, er.Details)
}

func TestCatalog_CreateRejectsMissingFields(t *testing.T) {
	ts := newCatalogTS(t, nil)

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/items", map[string]any{"name": "  "}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	er := decode[kit.ErrorResponse](t, raw)
	assert.Equal(t, "validation failed", er.Error)
	assert.Equal(t, map[string]any{
		"name":     "required",
		"category": "required",
		"price":    "required",
	}, er.Details)
}

func TestCatalog_CreateRejectsBadJSON(t *testing.T) {
	ts := newCatalogTS(t, nil)

	for _, body := range []string{`{"name":`, `{"name":"a","category":"b","price":1,"color":"red"}`, `{"name":"a","category":"b","price":1}{}`} {
		resp, raw := doJSON(t, http.MethodPost, ts.URL+"/items", body, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body=%s", body)
		assert.Equal(t, "bad json", decode[kit.ErrorResponse](t, raw).Error)
	}
}

func TestCatalog_CreateThenStatsAndLookup(t *testing.T) {
	ts := newCatalogTS(t, nil)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/stats", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/items", map[string]any{
		"name":     "Desk Lamp",
		"category": "Lighting",
		"price":    5,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body=%s", string(raw))

	created := decode[catalog.Item](t, raw)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Desk Lamp", created.Name)

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/stats", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, catalog.Stats{Total: 6, AveragePrice: 983.33}, decode[catalog.Stats](t, raw))

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/items?q=lamp", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[catalog.QueryResult](t, raw)
	require.Len(t, res.Items, 1)
	assert.Equal(t, created, res.Items[0])
}

func TestCatalog_WriteRateLimit(t *testing.T) {
	ts := newCatalogTS(t, kit.NewIPRateLimiter(1, time.Minute))

	body := map[string]any{"name": "a", "category": "b", "price": 1}

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/items", body, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/items", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/items", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCatalog_HealthAndMetrics(t *testing.T) {
	ts := newCatalogTS(t, nil)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/metrics", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{
		"Authorization": "Bearer metrics-token",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "http_requests_total")
}
