package api

import "time"

// RepoInfo is updated by the core after clone/pull operations.
type RepoInfo struct {
	LastClonedAt time.Time `json:"last_cloned_at,omitzero"`
	LastPulledAt time.Time `json:"last_pulled_at,omitzero"`
	LatestCommit string    `json:"latest_commit,omitempty"`
}

// RepoConfig describes a git repository tracked on one server.
// An access token, when provided at create/update time, is stored encrypted
// and never returned in the config.
type RepoConfig struct {
	ServerID string `json:"server_id"`
	RepoURL  string `json:"repo_url"`
	Branch   string `json:"branch"`
	OnClone  string `json:"on_clone,omitempty"`
	OnPull   string `json:"on_pull,omitempty"`
}

func DefaultRepoConfig() RepoConfig {
	return RepoConfig{Branch: "main"}
}

type PartialRepoConfig struct {
	ServerID *string `json:"server_id,omitempty"`
	RepoURL  *string `json:"repo_url,omitempty"`
	Branch   *string `json:"branch,omitempty"`
	OnClone  *string `json:"on_clone,omitempty"`
	OnPull   *string `json:"on_pull,omitempty"`
}

func (p PartialRepoConfig) Apply(base RepoConfig) RepoConfig {
	out := base
	if p.ServerID != nil {
		out.ServerID = *p.ServerID
	}
	if p.RepoURL != nil {
		out.RepoURL = *p.RepoURL
	}
	if p.Branch != nil {
		out.Branch = *p.Branch
	}
	if p.OnClone != nil {
		out.OnClone = *p.OnClone
	}
	if p.OnPull != nil {
		out.OnPull = *p.OnPull
	}
	return out
}
