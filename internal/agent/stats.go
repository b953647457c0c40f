package agent

import (
	"context"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/shirou/gopsutil/v4/sensors"
)

const bytesPerGB = 1024 * 1024 * 1024

// Stats samples host metrics with gopsutil. Calls tolerate partial
// failure: an unreadable sensor family just comes back empty.
type Stats struct{}

func (s Stats) SystemInformation(ctx context.Context) (*api.SystemInformation, error) {
	info := &api.SystemInformation{}

	if hostInfo, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = hostInfo.Hostname
		info.OS = hostInfo.Platform + " " + hostInfo.PlatformVersion
		info.Kernel = hostInfo.KernelVersion
	}
	if cpuInfo, err := cpu.InfoWithContext(ctx); err == nil && len(cpuInfo) > 0 {
		info.CPUModel = cpuInfo[0].ModelName
	}
	if count, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CoreCount = count
	}
	if memory, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemTotalGB = float64(memory.Total) / bytesPerGB
	}
	return info, nil
}

func (s Stats) Basic(ctx context.Context) (*api.BasicSystemStats, error) {
	basic := &api.BasicSystemStats{}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		basic.CPUPerc = percents[0]
	}
	if memory, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		basic.MemUsedGB = float64(memory.Used) / bytesPerGB
		basic.MemTotalGB = float64(memory.Total) / bytesPerGB
	}
	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		basic.DiskUsedGB = float64(usage.Used) / bytesPerGB
		basic.DiskTotalGB = float64(usage.Total) / bytesPerGB
	}
	return basic, nil
}

func (s Stats) CPU(ctx context.Context) (*api.CPUUsage, error) {
	usage := &api.CPUUsage{}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		usage.CPUPerc = percents[0]
	}
	if perCore, err := cpu.PercentWithContext(ctx, 0, true); err == nil {
		usage.PerCore = perCore
	}
	return usage, nil
}

func (s Stats) Disk(ctx context.Context) (*api.DiskUsage, error) {
	result := &api.DiskUsage{}

	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return result, nil
	}
	seen := map[string]bool{}
	for _, partition := range partitions {
		if seen[partition.Mountpoint] {
			continue
		}
		seen[partition.Mountpoint] = true
		usage, err := disk.UsageWithContext(ctx, partition.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		single := api.SingleDiskUsage{
			Mount:   partition.Mountpoint,
			UsedGB:  float64(usage.Used) / bytesPerGB,
			TotalGB: float64(usage.Total) / bytesPerGB,
		}
		result.Disks = append(result.Disks, single)
		result.UsedGB += single.UsedGB
		result.TotalGB += single.TotalGB
	}
	return result, nil
}

func (s Stats) Network(ctx context.Context) (*api.NetworkUsage, error) {
	result := &api.NetworkUsage{}

	counters, err := gopsnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return result, nil
	}
	for _, counter := range counters {
		single := api.SingleNetworkUsage{
			Name:   counter.Name,
			RecvKB: float64(counter.BytesRecv) / 1024,
			SentKB: float64(counter.BytesSent) / 1024,
		}
		result.Networks = append(result.Networks, single)
		result.RecvKB += single.RecvKB
		result.SentKB += single.SentKB
	}
	return result, nil
}

func (s Stats) Processes(ctx context.Context) ([]api.SystemProcess, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, nil
	}
	out := []api.SystemProcess{}
	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			continue
		}
		entry := api.SystemProcess{PID: proc.Pid, Name: name}
		if cpuPerc, err := proc.CPUPercentWithContext(ctx); err == nil {
			entry.CPUPerc = cpuPerc
		}
		if memInfo, err := proc.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			entry.MemMB = float64(memInfo.RSS) / (1024 * 1024)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s Stats) Components(ctx context.Context) ([]api.SystemComponent, error) {
	temps, err := sensors.TemperaturesWithContext(ctx)
	if err != nil {
		return []api.SystemComponent{}, nil
	}
	out := make([]api.SystemComponent, 0, len(temps))
	for _, temp := range temps {
		out = append(out, api.SystemComponent{
			Label:    temp.SensorKey,
			Temp:     temp.Temperature,
			Critical: temp.Critical,
		})
	}
	return out, nil
}

func (s Stats) All(ctx context.Context) (*api.AllSystemStats, error) {
	basic, _ := s.Basic(ctx)
	cpuUsage, _ := s.CPU(ctx)
	diskUsage, _ := s.Disk(ctx)
	networkUsage, _ := s.Network(ctx)
	processes, _ := s.Processes(ctx)
	components, _ := s.Components(ctx)

	return &api.AllSystemStats{
		Basic:      *basic,
		CPU:        *cpuUsage,
		Disk:       *diskUsage,
		Network:    *networkUsage,
		Processes:  processes,
		Components: components,
		PolledAt:   time.Now().UTC(),
	}, nil
}
