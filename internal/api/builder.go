package api

// BuilderInfo has no derived fields yet; builders are pure configuration.
type BuilderInfo struct{}

// BuilderConfig names the server whose periphery agent executes builds.
type BuilderConfig struct {
	ServerID string   `json:"server_id"`
	Tags     []string `json:"tags,omitempty"`
}

func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{}
}

type PartialBuilderConfig struct {
	ServerID *string   `json:"server_id,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

func (p PartialBuilderConfig) Apply(base BuilderConfig) BuilderConfig {
	out := base
	if p.ServerID != nil {
		out.ServerID = *p.ServerID
	}
	if p.Tags != nil {
		out.Tags = *p.Tags
	}
	return out
}
