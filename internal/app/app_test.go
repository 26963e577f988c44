package app

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-analytics/internal/config"
	"bank-analytics/internal/db"
	"bank-analytics/internal/domain"
)

const loanCSV = `date,branch,gold_loan_amt,home_loan_amt
2024-01-31,Mumbai,100,50
2024-01-31,Delhi,200,10
2024-02-29,Mumbai,150,50
2024-02-29,Delhi,180,20
`

func testConfig(dir string) *config.Config {
	return &config.Config{
		DataDir:            dir,
		LoaderCacheSize:    4,
		RateLimitRPS:       100,
		RateLimitBurst:     100,
		CORSAllowedOrigins: []string{"*"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	ds, ok := domain.LookupDataset(domain.DatasetLoan)
	require.True(t, ok)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, ds.File), []byte(loanCSV), 0o644))

	duck, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = duck.Close() })

	a, err := New(context.Background(), Deps{
		Cfg:       cfg,
		DuckDB:    duck,
		HistoryDB: db.OpenTestSQLite(t),
		Logger:    slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func get(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "192.0.2.1:1234"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_ServesQueriesOverLoadedData(t *testing.T) {
	a := newTestApp(t, testConfig(t.TempDir()))

	assert.Equal(t, []string{domain.DatasetLoan}, a.Catalog.Names())

	rec := get(t, a.Router, http.MethodPost, "/v1/query", `{"query":"total gold loan in Delhi"}`,
		map[string]string{"Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"value":380`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	recs, total, err := a.Analytics.History(context.Background(), domain.QueryHistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "total gold loan in Delhi", recs[0].Query)
}

func TestRouter_Endpoints(t *testing.T) {
	a := newTestApp(t, testConfig(t.TempDir()))

	rec := get(t, a.Router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, a.Router, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/ui", rec.Header().Get("Location"))

	rec = get(t, a.Router, http.MethodGet, "/ui", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bank Analytics")

	rec = get(t, a.Router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bank_analytics_dataset_rows{dataset="loan"} 4`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = get(t, a.Router, http.MethodGet, "/v1/history", "", map[string]string{"X-Request-ID": "abc-123"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	a := newTestApp(t, testConfig(t.TempDir()))

	rec := get(t, a.Router, http.MethodOptions, "/v1/query", "", map[string]string{
		"Origin":                        "https://dashboard.example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimitsQueries(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	a := newTestApp(t, cfg)

	body := `{"query":"total gold loan"}`
	hdr := map[string]string{"Content-Type": "application/json"}
	assert.Equal(t, http.StatusOK, get(t, a.Router, http.MethodPost, "/v1/plan", body, hdr).Code)

	rec := get(t, a.Router, http.MethodPost, "/v1/plan", body, hdr)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Catalog endpoints are not limited.
	assert.Equal(t, http.StatusOK, get(t, a.Router, http.MethodGet, "/v1/datasets", "", nil).Code)
}

func TestNew_BadVocabulary(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.VocabularyFile = filepath.Join(cfg.DataDir, "missing.yaml")

	duck, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = duck.Close() })

	_, err = New(context.Background(), Deps{Cfg: cfg, DuckDB: duck, Logger: slog.New(slog.DiscardHandler)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load vocabulary")
}

func TestNew_WithoutHistory(t *testing.T) {
	dir := t.TempDir()
	duck, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = duck.Close() })

	a, err := New(context.Background(), Deps{Cfg: testConfig(dir), DuckDB: duck, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Empty(t, a.Catalog.Names())
	rec := get(t, a.Router, http.MethodGet, "/v1/history", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":0`)
}

func TestNew_LogsPlanningModel(t *testing.T) {
	dir := t.TempDir()
	ds, ok := domain.LookupDataset(domain.DatasetLoan)
	require.True(t, ok)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ds.File), []byte(loanCSV), 0o644))

	duck, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = duck.Close() })

	cfg := testConfig(dir)
	cfg.LLM = config.LLMConfig{Enabled: true, Endpoint: "http://127.0.0.1:1", Model: "llama3"}

	var logs strings.Builder
	a, err := New(context.Background(), Deps{
		Cfg:    cfg,
		DuckDB: duck,
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Contains(t, logs.String(), `msg="llm planning enabled" model=llama3`)
}
