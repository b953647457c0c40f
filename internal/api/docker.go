package api

import "time"

// PeripheryVersion is returned by the agent's /version endpoint and doubles
// as the health probe response.
type PeripheryVersion struct {
	Version string `json:"version"`
}

// ContainerState is docker's container state string.
type ContainerState string

const (
	ContainerRunning    ContainerState = "running"
	ContainerExited     ContainerState = "exited"
	ContainerCreated    ContainerState = "created"
	ContainerRestarting ContainerState = "restarting"
	ContainerPaused     ContainerState = "paused"
	ContainerDead       ContainerState = "dead"
	ContainerUnknown    ContainerState = "unknown"
)

// BasicContainerInfo is one row of the agent's container listing.
type BasicContainerInfo struct {
	Name   string         `json:"name"`
	ID     string         `json:"id"`
	Image  string         `json:"image"`
	State  ContainerState `json:"state"`
	Status string         `json:"status,omitempty"`
}

// ImageSummary is one row of the agent's image listing.
type ImageSummary struct {
	ID         string `json:"id"`
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
	Size       string `json:"size"`
}

// NetworkSummary is one row of the agent's network listing.
type NetworkSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Driver string `json:"driver"`
}

// DockerContainerStats is one `docker stats` sample for a container.
type DockerContainerStats struct {
	Name     string `json:"name"`
	CPUPerc  string `json:"cpu_perc"`
	MemPerc  string `json:"mem_perc"`
	MemUsage string `json:"mem_usage"`
	NetIO    string `json:"net_io"`
	BlockIO  string `json:"block_io"`
	PIDs     string `json:"pids"`
}

// Log is the structured output of one command the agent ran.
type Log struct {
	Stage     string    `json:"stage"`
	Command   string    `json:"command"`
	Stdout    string    `json:"stdout"`
	Stderr    string    `json:"stderr"`
	Success   bool      `json:"success"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// ContainerName holds the single parameter of container lifecycle calls.
type ContainerName struct {
	Name string `json:"name"`
}

// GitCloneArgs is the body of the agent's /git/clone endpoint.
type GitCloneArgs struct {
	Name        string `json:"name"`
	RepoURL     string `json:"repo_url"`
	Branch      string `json:"branch"`
	AccessToken string `json:"access_token,omitempty"`
	OnClone     string `json:"on_clone,omitempty"`
}

// GitPullArgs is the body of the agent's /git/pull endpoint.
type GitPullArgs struct {
	Name        string `json:"name"`
	Branch      string `json:"branch"`
	AccessToken string `json:"access_token,omitempty"`
	OnPull      string `json:"on_pull,omitempty"`
}

// GitResult reports the outcome of a clone or pull, including the HEAD commit.
type GitResult struct {
	Logs   []Log  `json:"logs"`
	Commit string `json:"commit,omitempty"`
}

// BuildArgs is the body of the agent's /build endpoint.
type BuildArgs struct {
	Name           string            `json:"name"`
	RepoURL        string            `json:"repo_url"`
	Branch         string            `json:"branch"`
	DockerfilePath string            `json:"dockerfile_path"`
	BuildArgs      map[string]string `json:"build_args,omitempty"`
	Version        string            `json:"version"`
	AccessToken    string            `json:"access_token,omitempty"`
}

// BuildResult reports the clone and build logs plus the produced image tag.
type BuildResult struct {
	Logs     []Log  `json:"logs"`
	ImageTag string `json:"image_tag,omitempty"`
}

// DeployArgs is the body of the agent's /container/deploy endpoint.
type DeployArgs struct {
	Name   string           `json:"name"`
	Config DeploymentConfig `json:"config"`
	// Image overrides Config.Image when the deployment targets a build.
	Image string `json:"image,omitempty"`
}
