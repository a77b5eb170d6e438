package joblinesdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteSendsPriceAndBearer(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Job{ID: "j1", Status: "quoted"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.BearerToken = "tok"
	j, err := c.Quote(context.Background(), "j1", 12500)
	require.NoError(t, err)
	assert.Equal(t, "quoted", j.Status)
	assert.Equal(t, "/v0/jobs/j1/quote", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, 12500.0, gotBody["price"])
}

func TestAPIErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"invalid_transition","message":"invalid transition"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Accept(context.Background(), "j1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "invalid_transition", apiErr.Code())
}
