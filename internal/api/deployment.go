package api

import "time"

// RestartMode mirrors docker's restart policies.
type RestartMode string

const (
	RestartNever         RestartMode = "no"
	RestartOnFailure     RestartMode = "on-failure"
	RestartAlways        RestartMode = "always"
	RestartUnlessStopped RestartMode = "unless-stopped"
)

// DeploymentInfo tracks the last lifecycle action applied through the core.
type DeploymentInfo struct {
	State        string    `json:"state,omitempty"`
	LastDeployed time.Time `json:"last_deployed,omitzero"`
}

// DeploymentConfig describes the container a periphery agent should run.
// Image and BuildID are mutually exclusive: a build id means "deploy the
// image produced by that build's latest run".
type DeploymentConfig struct {
	ServerID    string            `json:"server_id"`
	Image       string            `json:"image,omitempty"`
	BuildID     string            `json:"build_id,omitempty"`
	RestartMode RestartMode       `json:"restart_mode"`
	Network     string            `json:"network,omitempty"`
	Ports       []string          `json:"ports,omitempty"`
	Volumes     []string          `json:"volumes,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
	ExtraArgs   []string          `json:"extra_args,omitempty"`
}

func DefaultDeploymentConfig() DeploymentConfig {
	return DeploymentConfig{RestartMode: RestartUnlessStopped}
}

type PartialDeploymentConfig struct {
	ServerID    *string            `json:"server_id,omitempty"`
	Image       *string            `json:"image,omitempty"`
	BuildID     *string            `json:"build_id,omitempty"`
	RestartMode *RestartMode       `json:"restart_mode,omitempty"`
	Network     *string            `json:"network,omitempty"`
	Ports       *[]string          `json:"ports,omitempty"`
	Volumes     *[]string          `json:"volumes,omitempty"`
	Environment *map[string]string `json:"environment,omitempty"`
	ExtraArgs   *[]string          `json:"extra_args,omitempty"`
}

func (p PartialDeploymentConfig) Apply(base DeploymentConfig) DeploymentConfig {
	out := base
	if p.ServerID != nil {
		out.ServerID = *p.ServerID
	}
	if p.Image != nil {
		out.Image = *p.Image
	}
	if p.BuildID != nil {
		out.BuildID = *p.BuildID
	}
	if p.RestartMode != nil {
		out.RestartMode = *p.RestartMode
	}
	if p.Network != nil {
		out.Network = *p.Network
	}
	if p.Ports != nil {
		out.Ports = *p.Ports
	}
	if p.Volumes != nil {
		out.Volumes = *p.Volumes
	}
	if p.Environment != nil {
		out.Environment = *p.Environment
	}
	if p.ExtraArgs != nil {
		out.ExtraArgs = *p.ExtraArgs
	}
	return out
}
