package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomventa/sqlwarden/internal/config"
)

func newClient(url string) *Client {
	cfg := config.Default()
	cfg.OllamaURL = url + "/"
	cfg.Model = "sqlcoder"
	return New(cfg)
}

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sqlcoder", req.Model)
		assert.Equal(t, "list students", req.Prompt)
		assert.False(t, req.Stream)
		assert.Equal(t, temperature, req.Options["temperature"])

		json.NewEncoder(w).Encode(generateResponse{Response: "SELECT * FROM students", Done: true})
	}))
	defer srv.Close()

	out, err := newClient(srv.URL).Query(context.Background(), "list students")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM students", out)
}

func TestQuery_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'sqlcoder' not found"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Query(context.Background(), "x")
	assert.ErrorContains(t, err, "not found")
}

func TestQuery_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(srv.URL).Query(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	assert.NoError(t, newClient(srv.URL).Status(context.Background()))

	srv.Close()
	assert.Error(t, newClient(srv.URL).Status(context.Background()))
}
