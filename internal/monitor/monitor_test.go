package monitor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/periphery"
	"github.com/marcoraddatz/komodo/internal/store"
	"github.com/marcoraddatz/komodo/internal/ws"
)

func newTestMonitor(t *testing.T) (*Monitor, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := ws.NewHub(
		func(r *http.Request) (api.RequestUser, error) { return api.RequestUser{}, nil },
		func(ctx context.Context, user api.RequestUser, kind api.ResourceKind, id string) bool { return true },
		logger,
	)
	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	return New(st, periphery.NewClient("", 0), hub, logger, cfg), st
}

func seedServer(t *testing.T, st store.Store, name string, config api.ServerConfig, status api.ServerStatus) string {
	t.Helper()
	rawConfig, err := json.Marshal(config)
	require.NoError(t, err)
	rawInfo, err := json.Marshal(api.ServerInfo{Status: status})
	require.NoError(t, err)
	rec := &store.Record{
		Kind:   api.KindServer,
		ID:     uuid.NewString(),
		Name:   name,
		Config: rawConfig,
		Info:   rawInfo,
	}
	require.NoError(t, st.CreateResource(context.Background(), rec))
	return rec.ID
}

func serverStatus(t *testing.T, st store.Store, id string) api.ServerStatus {
	t.Helper()
	rec, err := st.GetResource(context.Background(), api.KindServer, id)
	require.NoError(t, err)
	var info api.ServerInfo
	require.NoError(t, json.Unmarshal(rec.Info, &info))
	return info.Status
}

func TestProbeRecordsStatusFlips(t *testing.T) {
	m, st := newTestMonitor(t)
	ctx := context.Background()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.PeripheryVersion{Version: "0.3.0"})
	}))
	defer ts.Close()

	config := api.DefaultServerConfig()
	config.Address = ts.URL
	healthy := seedServer(t, st, "healthy", config, api.ServerNotOk)

	deadConfig := api.DefaultServerConfig()
	deadConfig.Address = "http://127.0.0.1:1"
	dead := seedServer(t, st, "dead", deadConfig, api.ServerOk)

	disabledConfig := api.DefaultServerConfig()
	disabledConfig.Enabled = false
	disabled := seedServer(t, st, "disabled", disabledConfig, api.ServerOk)

	noAddr := seedServer(t, st, "no-addr", api.DefaultServerConfig(), api.ServerOk)

	m.probeOnce(ctx)

	assert.Equal(t, api.ServerOk, serverStatus(t, st, healthy))
	assert.Equal(t, api.ServerNotOk, serverStatus(t, st, dead))
	assert.Equal(t, api.ServerDisabled, serverStatus(t, st, disabled))
	assert.Equal(t, api.ServerNotOk, serverStatus(t, st, noAddr))
}

func TestProbeSkipsUnchangedStatus(t *testing.T) {
	m, st := newTestMonitor(t)
	ctx := context.Background()

	config := api.DefaultServerConfig()
	config.Enabled = false
	id := seedServer(t, st, "stable", config, api.ServerDisabled)

	before, err := st.GetResource(ctx, api.KindServer, id)
	require.NoError(t, err)

	m.probeOnce(ctx)

	after, err := st.GetResource(ctx, api.KindServer, id)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("KOMODO_MONITOR_INTERVAL", "10s")
	t.Setenv("KOMODO_STATS_INTERVAL", "2m")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "10s", cfg.Interval.String())
	assert.Equal(t, "2m0s", cfg.StatsInterval.String())

	t.Setenv("KOMODO_MONITOR_INTERVAL", "nonsense")
	_, err = LoadConfigFromEnv()
	assert.Error(t, err)
}
