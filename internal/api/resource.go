package api

import "time"

// ResourceKind identifies one of the manageable resource families.
type ResourceKind string

const (
	KindServer     ResourceKind = "Server"
	KindDeployment ResourceKind = "Deployment"
	KindBuild      ResourceKind = "Build"
	KindBuilder    ResourceKind = "Builder"
	KindRepo       ResourceKind = "Repo"
)

// ResourceKinds lists every kind, in a stable order.
var ResourceKinds = []ResourceKind{KindServer, KindDeployment, KindBuild, KindBuilder, KindRepo}

// ValidKind reports whether kind names a known resource family.
func ValidKind(kind ResourceKind) bool {
	for _, k := range ResourceKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// PermissionLevel is the capability a user holds on one resource.
type PermissionLevel string

const (
	PermissionNone    PermissionLevel = "none"
	PermissionRead    PermissionLevel = "read"
	PermissionWrite   PermissionLevel = "write"
	PermissionExecute PermissionLevel = "execute"
)

var permissionRank = map[PermissionLevel]int{
	PermissionNone:    0,
	PermissionRead:    1,
	PermissionWrite:   2,
	PermissionExecute: 3,
}

// Satisfies reports whether l grants at least the required level.
func (l PermissionLevel) Satisfies(required PermissionLevel) bool {
	return permissionRank[l] >= permissionRank[required]
}

// ValidPermissionLevel reports whether l is one of the defined levels.
func ValidPermissionLevel(l PermissionLevel) bool {
	_, ok := permissionRank[l]
	return ok
}

// ResourceMeta is the identity shared by every resource kind.
// ID is assigned at creation and never changes; Name is unique per kind.
type ResourceMeta struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	Permissions map[string]PermissionLevel `json:"permissions,omitempty"`
	Version     int64                      `json:"version"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// Resource is the generic envelope for a manageable entity.
// Config holds user-editable settings; Info holds derived runtime data.
type Resource[C any, I any] struct {
	ResourceMeta
	Config C `json:"config"`
	Info   I `json:"info"`
}

type (
	Server     = Resource[ServerConfig, ServerInfo]
	Deployment = Resource[DeploymentConfig, DeploymentInfo]
	Build      = Resource[BuildConfig, BuildInfo]
	Builder    = Resource[BuilderConfig, BuilderInfo]
	Repo       = Resource[RepoConfig, RepoInfo]
)
