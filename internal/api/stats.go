package api

import "time"

// SystemInformation is static host info collected once per request.
type SystemInformation struct {
	Hostname   string  `json:"hostname"`
	OS         string  `json:"os"`
	Kernel     string  `json:"kernel"`
	CPUModel   string  `json:"cpu_model"`
	CoreCount  int     `json:"core_count"`
	MemTotalGB float64 `json:"mem_total_gb"`
}

// BasicSystemStats is the cheap subset polled on the monitor schedule.
type BasicSystemStats struct {
	CPUPerc     float64 `json:"cpu_perc"`
	MemUsedGB   float64 `json:"mem_used_gb"`
	MemTotalGB  float64 `json:"mem_total_gb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskTotalGB float64 `json:"disk_total_gb"`
}

// CPUUsage is total and per-core utilisation.
type CPUUsage struct {
	CPUPerc float64   `json:"cpu_perc"`
	PerCore []float64 `json:"per_core,omitempty"`
}

// SingleDiskUsage is usage of one mounted filesystem.
type SingleDiskUsage struct {
	Mount   string  `json:"mount"`
	UsedGB  float64 `json:"used_gb"`
	TotalGB float64 `json:"total_gb"`
}

// DiskUsage aggregates all mounted filesystems.
type DiskUsage struct {
	UsedGB  float64           `json:"used_gb"`
	TotalGB float64           `json:"total_gb"`
	Disks   []SingleDiskUsage `json:"disks,omitempty"`
}

// SingleNetworkUsage is cumulative IO for one interface.
type SingleNetworkUsage struct {
	Name   string  `json:"name"`
	RecvKB float64 `json:"recv_kb"`
	SentKB float64 `json:"sent_kb"`
}

// NetworkUsage aggregates interface IO counters.
type NetworkUsage struct {
	RecvKB   float64              `json:"recv_kb"`
	SentKB   float64              `json:"sent_kb"`
	Networks []SingleNetworkUsage `json:"networks,omitempty"`
}

// SystemProcess is one entry of the agent's process listing.
type SystemProcess struct {
	PID     int32   `json:"pid"`
	Name    string  `json:"name"`
	CPUPerc float64 `json:"cpu_perc"`
	MemMB   float64 `json:"mem_mb"`
}

// SystemComponent is one hardware sensor reading.
type SystemComponent struct {
	Label    string  `json:"label"`
	Temp     float64 `json:"temp"`
	Critical float64 `json:"critical,omitempty"`
}

// AllSystemStats bundles every stat family in one snapshot.
type AllSystemStats struct {
	Basic      BasicSystemStats  `json:"basic"`
	CPU        CPUUsage          `json:"cpu"`
	Disk       DiskUsage         `json:"disk"`
	Network    NetworkUsage      `json:"network"`
	Processes  []SystemProcess   `json:"processes,omitempty"`
	Components []SystemComponent `json:"components,omitempty"`
	PolledAt   time.Time         `json:"polled_at"`
}
