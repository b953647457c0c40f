package api

import "time"

// BuildInfo records the outcome of the most recent build run.
type BuildInfo struct {
	LastBuiltAt time.Time `json:"last_built_at,omitzero"`
	LastVersion string    `json:"last_version,omitempty"`
}

// BuildConfig describes how to produce an image from a git repo.
type BuildConfig struct {
	BuilderID      string            `json:"builder_id"`
	RepoURL        string            `json:"repo_url"`
	Branch         string            `json:"branch"`
	DockerfilePath string            `json:"dockerfile_path"`
	BuildArgs      map[string]string `json:"build_args,omitempty"`
	Version        string            `json:"version"`
}

func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		Branch:         "main",
		DockerfilePath: "Dockerfile",
		Version:        "latest",
	}
}

type PartialBuildConfig struct {
	BuilderID      *string            `json:"builder_id,omitempty"`
	RepoURL        *string            `json:"repo_url,omitempty"`
	Branch         *string            `json:"branch,omitempty"`
	DockerfilePath *string            `json:"dockerfile_path,omitempty"`
	BuildArgs      *map[string]string `json:"build_args,omitempty"`
	Version        *string            `json:"version,omitempty"`
}

func (p PartialBuildConfig) Apply(base BuildConfig) BuildConfig {
	out := base
	if p.BuilderID != nil {
		out.BuilderID = *p.BuilderID
	}
	if p.RepoURL != nil {
		out.RepoURL = *p.RepoURL
	}
	if p.Branch != nil {
		out.Branch = *p.Branch
	}
	if p.DockerfilePath != nil {
		out.DockerfilePath = *p.DockerfilePath
	}
	if p.BuildArgs != nil {
		out.BuildArgs = *p.BuildArgs
	}
	if p.Version != nil {
		out.Version = *p.Version
	}
	return out
}
