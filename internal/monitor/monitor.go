// Package monitor probes periphery agents in the background: health
// status, stats fan-out, and the daily image prune.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/periphery"
	"github.com/marcoraddatz/komodo/internal/store"
	"github.com/marcoraddatz/komodo/internal/ws"
)

// Config controls probe cadence.
type Config struct {
	Interval      time.Duration
	StatsInterval time.Duration
	PruneHourUTC  int
}

// LoadConfigFromEnv loads monitor config from environment variables.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Interval:      30 * time.Second,
		StatsInterval: time.Minute,
		PruneHourUTC:  3,
	}
	if value := strings.TrimSpace(os.Getenv("KOMODO_MONITOR_INTERVAL")); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid KOMODO_MONITOR_INTERVAL: %s", value)
		}
		if parsed > 0 {
			cfg.Interval = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("KOMODO_STATS_INTERVAL")); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid KOMODO_STATS_INTERVAL: %s", value)
		}
		if parsed > 0 {
			cfg.StatsInterval = parsed
		}
	}
	return cfg, nil
}

// Monitor owns the background probe loops.
type Monitor struct {
	Store     store.Store
	Periphery *periphery.Client
	Hub       *ws.Hub
	Logger    *slog.Logger
	Config    Config

	mu      sync.Mutex
	probing bool

	lastPruneDay string
}

func New(st store.Store, client *periphery.Client, hub *ws.Hub, logger *slog.Logger, cfg Config) *Monitor {
	return &Monitor{
		Store:     st,
		Periphery: client,
		Hub:       hub,
		Logger:    logger,
		Config:    cfg,
	}
}

// Run starts the probe, stats, and prune loops until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.probeOnce(ctx)

	probe := time.NewTicker(m.Config.Interval)
	defer probe.Stop()
	stats := time.NewTicker(m.Config.StatsInterval)
	defer stats.Stop()
	prune := time.NewTicker(time.Minute)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info("monitor stopped")
			return
		case <-probe.C:
			m.probeOnce(ctx)
		case <-stats.C:
			m.pollStats(ctx)
		case <-prune.C:
			m.maybePrune(ctx)
		}
	}
}

func (m *Monitor) servers(ctx context.Context) []*api.Server {
	recs, err := m.Store.ListResources(ctx, api.KindServer)
	if err != nil {
		m.Logger.Error("failed to list servers", "error", err)
		return nil
	}
	servers := make([]*api.Server, 0, len(recs))
	for _, rec := range recs {
		server := &api.Server{}
		server.ID = rec.ID
		server.Name = rec.Name
		if err := json.Unmarshal(rec.Config, &server.Config); err != nil {
			m.Logger.Error("corrupt server config", "server", rec.Name, "error", err)
			continue
		}
		if len(rec.Info) > 0 {
			if err := json.Unmarshal(rec.Info, &server.Info); err != nil {
				m.Logger.Error("corrupt server info", "server", rec.Name, "error", err)
				continue
			}
		}
		servers = append(servers, server)
	}
	return servers
}

// probeOnce checks every server's agent and records status flips.
func (m *Monitor) probeOnce(ctx context.Context) {
	m.mu.Lock()
	if m.probing {
		m.mu.Unlock()
		return
	}
	m.probing = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.probing = false
		m.mu.Unlock()
	}()

	for _, server := range m.servers(ctx) {
		status := m.probe(ctx, server)
		if status == server.Info.Status {
			continue
		}
		m.Logger.Info("server status changed", "server", server.Name, "from", server.Info.Status, "to", status)
		if err := m.setStatus(ctx, server.ID, status); err != nil {
			m.Logger.Error("failed to record server status", "server", server.Name, "error", err)
			continue
		}
		m.Hub.PublishJSON(api.KindServer, server.ID, "status", api.ServerInfo{Status: status})
	}
}

func (m *Monitor) probe(ctx context.Context, server *api.Server) api.ServerStatus {
	if !server.Config.Enabled {
		return api.ServerDisabled
	}
	if server.Config.Address == "" {
		return api.ServerNotOk
	}
	if _, err := m.Periphery.For(server).GetVersion(ctx); err != nil {
		return api.ServerNotOk
	}
	return api.ServerOk
}

func (m *Monitor) setStatus(ctx context.Context, serverID string, status api.ServerStatus) error {
	for attempt := 0; attempt < 3; attempt++ {
		rec, err := m.Store.GetResource(ctx, api.KindServer, serverID)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(api.ServerInfo{Status: status})
		if err != nil {
			return err
		}
		rec.Info = raw
		err = m.Store.UpdateResource(ctx, rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionMismatch) {
			return err
		}
	}
	return fmt.Errorf("gave up recording status for server %s", serverID)
}

// pollStats pushes a stats snapshot for every reachable server.
func (m *Monitor) pollStats(ctx context.Context) {
	for _, server := range m.servers(ctx) {
		if !server.Config.Enabled || server.Config.Address == "" {
			continue
		}
		stats, err := m.Periphery.For(server).GetAllSystemStats(ctx)
		if err != nil {
			m.Logger.Debug("stats poll failed", "server", server.Name, "error", err)
			continue
		}
		m.Hub.PublishJSON(api.KindServer, server.ID, "stats", stats)
		m.checkThresholds(server, stats)
	}
}

// checkThresholds logs threshold breaches per the server's alert config.
func (m *Monitor) checkThresholds(server *api.Server, stats *api.AllSystemStats) {
	cfg := server.Config
	if cfg.SendCPUAlerts && stats.CPU.CPUPerc >= cfg.CPUCritical {
		m.Logger.Error("cpu critical", "server", server.Name, "usage", stats.CPU.CPUPerc)
	} else if cfg.SendCPUAlerts && stats.CPU.CPUPerc >= cfg.CPUWarning {
		m.Logger.Warn("cpu warning", "server", server.Name, "usage", stats.CPU.CPUPerc)
	}

	if stats.Basic.MemTotalGB > 0 {
		memPct := stats.Basic.MemUsedGB / stats.Basic.MemTotalGB * 100
		if cfg.SendMemAlerts && memPct >= cfg.MemCritical {
			m.Logger.Error("memory critical", "server", server.Name, "used_pct", memPct)
		} else if cfg.SendMemAlerts && memPct >= cfg.MemWarning {
			m.Logger.Warn("memory warning", "server", server.Name, "used_pct", memPct)
		}
	}

	for _, disk := range stats.Disk.Disks {
		if disk.TotalGB <= 0 {
			continue
		}
		pct := disk.UsedGB / disk.TotalGB * 100
		if cfg.SendDiskAlerts && pct >= cfg.DiskCritical {
			m.Logger.Error("disk critical", "server", server.Name, "mount", disk.Mount, "used_pct", pct)
		} else if cfg.SendDiskAlerts && pct >= cfg.DiskWarning {
			m.Logger.Warn("disk warning", "server", server.Name, "mount", disk.Mount, "used_pct", pct)
		}
	}
}

// maybePrune runs the daily image prune once per UTC day, after the
// configured hour, on servers that opted in.
func (m *Monitor) maybePrune(ctx context.Context) {
	now := time.Now().UTC()
	day := now.Format("2006-01-02")
	if m.lastPruneDay == day || now.Hour() < m.Config.PruneHourUTC {
		return
	}
	m.lastPruneDay = day

	for _, server := range m.servers(ctx) {
		if !server.Config.Enabled || !server.Config.AutoPrune || server.Config.Address == "" {
			continue
		}
		log, err := m.Periphery.For(server).PruneImages(ctx)
		if err != nil {
			m.Logger.Error("auto prune failed", "server", server.Name, "error", err)
			continue
		}
		m.Logger.Info("auto prune completed", "server", server.Name, "success", log.Success)
		m.Hub.PublishJSON(api.KindServer, server.ID, "prune_images", log)
	}
}
