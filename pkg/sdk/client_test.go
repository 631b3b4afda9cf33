package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmanager/internal/domain"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", time.Second)
}

func TestListServers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/minecraft/servers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"1","name":"lobby","status":"Online","port":25566,"ip":"1.2.3.4","softwareType":"PaperMC","serverVersion":"1.20.4"}]`))
	})
	c := newTestClient(t, mux)

	servers, err := c.ListServers(context.Background())
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "lobby", servers[0].Name)
	assert.Equal(t, domain.StatusOnline, servers[0].Status)
	assert.Equal(t, "1.20.4", servers[0].SoftwareVersion)
}

func TestPerformActionPostsServerIdentity(t *testing.T) {
	var got actionPayload
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/minecraft/stop", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":"Server lobby stopped.","server":{"name":"lobby","status":"Offline"}}`))
	})
	c := newTestClient(t, mux)

	srv := domain.ServerDescriptor{Name: "lobby", SoftwareType: "PaperMC", SoftwareVersion: "1.20.4"}
	msg, err := c.PerformAction(context.Background(), srv, domain.VerbStop)
	require.NoError(t, err)

	assert.Equal(t, "Server lobby stopped.", msg)
	assert.Equal(t, actionPayload{ServerName: "lobby", ServerVersion: "1.20.4", ServerType: "PaperMC"}, got)
}

func TestCreateServerForwardsBodyUnchanged(t *testing.T) {
	payload := `{"serverName":"hub","port":"30000","serverType":"Velocity","serverVersion":"3.3.0","velocityBuild":"400"}`
	var body []byte
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/minecraft/servers", func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"Server hub created."}`))
	})
	c := newTestClient(t, mux)

	msg, err := c.CreateServer(context.Background(), json.RawMessage(payload))
	require.NoError(t, err)
	assert.Equal(t, "Server hub created.", msg)
	assert.Equal(t, payload, string(body))
}

func TestErrorBodies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/minecraft/start", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Server not found"}`))
	})
	mux.HandleFunc("GET /api/minecraft/servers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down\n"))
	})
	c := newTestClient(t, mux)

	_, err := c.PerformAction(context.Background(), domain.ServerDescriptor{Name: "x"}, domain.VerbStart)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Server not found", apiErr.Message)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.ListServers(context.Background())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "Request failed with code 502: upstream down", err.Error())
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUnparsableSuccessBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/minecraft/servers", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	c := newTestClient(t, mux)

	_, err := c.ListServers(context.Background())
	require.Error(t, err)
	assert.Equal(t, "failed to parse response: <html>", err.Error())
}
