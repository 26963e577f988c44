package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DoJSON(t *testing.T) {
	var gotPath, gotQuery, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotType = r.URL.Path, r.URL.RawQuery, r.Header.Get("Content-Type")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["query"]})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	assert.Equal(t, srv.URL, c.BaseURL)

	var out struct {
		Echo string `json:"echo"`
	}
	err := c.doJSON(http.MethodPost, "/query", url.Values{"x": {"1"}}, map[string]string{"query": "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "/v1/query", gotPath)
	assert.Equal(t, "x=1", gotQuery)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "hi", out.Echo)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":400,"message":"query must not be empty"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).doJSON(http.MethodPost, "/query", nil, map[string]string{"query": ""}, &struct{}{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	assert.Equal(t, 400, apiErr.Code)
	assert.Equal(t, "query must not be empty (HTTP 400)", apiErr.Error())
}

func TestClient_APIErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).doJSON(http.MethodGet, "/datasets", nil, nil, &struct{}{})
	assert.EqualError(t, err, "server returned HTTP 502")
}
