package periphery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoraddatz/komodo/internal/api"
)

func testServer(address string) *api.Server {
	return &api.Server{
		ResourceMeta: api.ResourceMeta{Name: "prod-1"},
		Config:       api.ServerConfig{Address: address},
	}
}

func TestClientSendsPasskeyHeader(t *testing.T) {
	var gotPasskey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPasskey = r.Header.Get(PasskeyHeader)
		json.NewEncoder(w).Encode(api.PeripheryVersion{Version: "0.3.0"})
	}))
	defer ts.Close()

	client := NewClient("hunter2", 0)
	version, err := client.For(testServer(ts.URL)).GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", gotPasskey)
	assert.Equal(t, "0.3.0", version.Version)
}

func TestClientErrorEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "docker daemon not running"})
	}))
	defer ts.Close()

	client := NewClient("", 0)
	_, err := client.For(testServer(ts.URL)).GetContainers(context.Background())
	require.Error(t, err)
	assert.Equal(t, api.ErrUpstreamAgent, api.KindOf(err))
	assert.Contains(t, err.Error(), "prod-1")
	assert.Contains(t, err.Error(), "docker daemon not running")
}

func TestClientUnreachableAgent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	address := ts.URL
	ts.Close()

	client := NewClient("", 0)
	_, err := client.For(testServer(address)).GetVersion(context.Background())
	require.Error(t, err)
	assert.Equal(t, api.ErrUpstreamAgent, api.KindOf(err))
	assert.Contains(t, err.Error(), "prod-1")
}

func TestClientPostsContainerName(t *testing.T) {
	var gotPath string
	var gotBody api.ContainerName
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(api.Log{Stage: "docker stop", Success: true})
	}))
	defer ts.Close()

	client := NewClient("", 0)
	log, err := client.For(testServer(ts.URL)).StopContainer(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "/container/stop", gotPath)
	assert.Equal(t, "web", gotBody.Name)
	assert.True(t, log.Success)
}

func TestClientContainerStatsPaths(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/container/stats/list":
			json.NewEncoder(w).Encode([]api.DockerContainerStats{{Name: "web"}, {Name: "worker"}})
		case "/container/stats/web":
			json.NewEncoder(w).Encode(api.DockerContainerStats{Name: "web", CPUPerc: "1.2%"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	client := NewClient("", 0)
	bound := client.For(testServer(ts.URL))

	all, err := bound.GetContainerStatsList(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := bound.GetContainerStats(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "1.2%", one.CPUPerc)
}

func TestClientTrimsTrailingSlash(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(api.PeripheryVersion{Version: "0.3.0"})
	}))
	defer ts.Close()

	client := NewClient("", 0)
	_, err := client.For(testServer(ts.URL + "/")).GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/version", gotPath)
}
