package api

// ServerStatus reflects the last periphery probe outcome.
type ServerStatus string

const (
	// ServerNotOk is the state before the first successful probe,
	// and after any failed one.
	ServerNotOk    ServerStatus = "not_ok"
	ServerOk       ServerStatus = "ok"
	ServerDisabled ServerStatus = "disabled"
)

// ServerInfo is derived by the monitor, never edited by users.
type ServerInfo struct {
	Status ServerStatus `json:"status"`
}

// ServerConfig configures one periphery agent endpoint plus alerting thresholds.
type ServerConfig struct {
	Address               string  `json:"address"`
	Enabled               bool    `json:"enabled"`
	AutoPrune             bool    `json:"auto_prune"`
	Region                string  `json:"region,omitempty"`
	SendUnreachableAlerts bool    `json:"send_unreachable_alerts"`
	SendCPUAlerts         bool    `json:"send_cpu_alerts"`
	SendMemAlerts         bool    `json:"send_mem_alerts"`
	SendDiskAlerts        bool    `json:"send_disk_alerts"`
	SendTempAlerts        bool    `json:"send_temp_alerts"`
	SendVersionAlerts     bool    `json:"send_version_alerts"`
	CPUWarning            float64 `json:"cpu_warning"`
	CPUCritical           float64 `json:"cpu_critical"`
	MemWarning            float64 `json:"mem_warning"`
	MemCritical           float64 `json:"mem_critical"`
	DiskWarning           float64 `json:"disk_warning"`
	DiskCritical          float64 `json:"disk_critical"`
}

// DefaultServerConfig returns the config a server gets when fields are omitted.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Enabled:               true,
		AutoPrune:             true,
		SendUnreachableAlerts: true,
		SendCPUAlerts:         true,
		SendMemAlerts:         true,
		SendDiskAlerts:        true,
		SendTempAlerts:        true,
		SendVersionAlerts:     true,
		CPUWarning:            90,
		CPUCritical:           99,
		MemWarning:            75,
		MemCritical:           95,
		DiskWarning:           75,
		DiskCritical:          95,
	}
}

// PartialServerConfig is a patch where nil fields keep the base value.
type PartialServerConfig struct {
	Address               *string  `json:"address,omitempty"`
	Enabled               *bool    `json:"enabled,omitempty"`
	AutoPrune             *bool    `json:"auto_prune,omitempty"`
	Region                *string  `json:"region,omitempty"`
	SendUnreachableAlerts *bool    `json:"send_unreachable_alerts,omitempty"`
	SendCPUAlerts         *bool    `json:"send_cpu_alerts,omitempty"`
	SendMemAlerts         *bool    `json:"send_mem_alerts,omitempty"`
	SendDiskAlerts        *bool    `json:"send_disk_alerts,omitempty"`
	SendTempAlerts        *bool    `json:"send_temp_alerts,omitempty"`
	SendVersionAlerts     *bool    `json:"send_version_alerts,omitempty"`
	CPUWarning            *float64 `json:"cpu_warning,omitempty"`
	CPUCritical           *float64 `json:"cpu_critical,omitempty"`
	MemWarning            *float64 `json:"mem_warning,omitempty"`
	MemCritical           *float64 `json:"mem_critical,omitempty"`
	DiskWarning           *float64 `json:"disk_warning,omitempty"`
	DiskCritical          *float64 `json:"disk_critical,omitempty"`
}

// Apply merges the patch over base, field by field.
func (p PartialServerConfig) Apply(base ServerConfig) ServerConfig {
	out := base
	if p.Address != nil {
		out.Address = *p.Address
	}
	if p.Enabled != nil {
		out.Enabled = *p.Enabled
	}
	if p.AutoPrune != nil {
		out.AutoPrune = *p.AutoPrune
	}
	if p.Region != nil {
		out.Region = *p.Region
	}
	if p.SendUnreachableAlerts != nil {
		out.SendUnreachableAlerts = *p.SendUnreachableAlerts
	}
	if p.SendCPUAlerts != nil {
		out.SendCPUAlerts = *p.SendCPUAlerts
	}
	if p.SendMemAlerts != nil {
		out.SendMemAlerts = *p.SendMemAlerts
	}
	if p.SendDiskAlerts != nil {
		out.SendDiskAlerts = *p.SendDiskAlerts
	}
	if p.SendTempAlerts != nil {
		out.SendTempAlerts = *p.SendTempAlerts
	}
	if p.SendVersionAlerts != nil {
		out.SendVersionAlerts = *p.SendVersionAlerts
	}
	if p.CPUWarning != nil {
		out.CPUWarning = *p.CPUWarning
	}
	if p.CPUCritical != nil {
		out.CPUCritical = *p.CPUCritical
	}
	if p.MemWarning != nil {
		out.MemWarning = *p.MemWarning
	}
	if p.MemCritical != nil {
		out.MemCritical = *p.MemCritical
	}
	if p.DiskWarning != nil {
		out.DiskWarning = *p.DiskWarning
	}
	if p.DiskCritical != nil {
		out.DiskCritical = *p.DiskCritical
	}
	return out
}
