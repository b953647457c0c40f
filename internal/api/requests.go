package api

import "encoding/json"

// RequestType tags one operation variant on the wire.
type RequestType string

// Request is the polymorphic envelope accepted by POST /api.
type Request struct {
	Type   RequestType     `json:"type"`
	Params json.RawMessage `json:"params"`
}

const (
	// secrets
	TypeCreateLoginSecret RequestType = "CreateLoginSecret"
	TypeDeleteLoginSecret RequestType = "DeleteLoginSecret"

	// permissions
	TypeUpdateUserPermissions         RequestType = "UpdateUserPermissions"
	TypeUpdateUserPermissionsOnTarget RequestType = "UpdateUserPermissionsOnTarget"

	// server
	TypeGetPeripheryVersion   RequestType = "GetPeripheryVersion"
	TypeGetSystemInformation  RequestType = "GetSystemInformation"
	TypeGetDockerContainers   RequestType = "GetDockerContainers"
	TypeGetContainerStats     RequestType = "GetContainerStats"
	TypeGetContainerStatsList RequestType = "GetContainerStatsList"
	TypeGetDockerImages       RequestType = "GetDockerImages"
	TypeGetDockerNetworks     RequestType = "GetDockerNetworks"
	TypeGetServer             RequestType = "GetServer"
	TypeListServers           RequestType = "ListServers"
	TypeCreateServer          RequestType = "CreateServer"
	TypeDeleteServer          RequestType = "DeleteServer"
	TypeUpdateServer          RequestType = "UpdateServer"
	TypeRenameServer          RequestType = "RenameServer"
	TypeGetAllSystemStats     RequestType = "GetAllSystemStats"
	TypeGetBasicSystemStats   RequestType = "GetBasicSystemStats"
	TypeGetCpuUsage           RequestType = "GetCpuUsage"
	TypeGetDiskUsage          RequestType = "GetDiskUsage"
	TypeGetNetworkUsage       RequestType = "GetNetworkUsage"
	TypeGetSystemProcesses    RequestType = "GetSystemProcesses"
	TypeGetSystemComponents   RequestType = "GetSystemComponents"
	TypePruneContainers       RequestType = "PruneContainers"
	TypePruneImages           RequestType = "PruneImages"
	TypePruneNetworks         RequestType = "PruneNetworks"

	// deployment
	TypeGetDeployment    RequestType = "GetDeployment"
	TypeListDeployments  RequestType = "ListDeployments"
	TypeCreateDeployment RequestType = "CreateDeployment"
	TypeDeleteDeployment RequestType = "DeleteDeployment"
	TypeUpdateDeployment RequestType = "UpdateDeployment"
	TypeRenameDeployment RequestType = "RenameDeployment"
	TypeDeploy           RequestType = "Deploy"
	TypeStartContainer   RequestType = "StartContainer"
	TypeStopContainer    RequestType = "StopContainer"
	TypeRemoveContainer  RequestType = "RemoveContainer"

	// build
	TypeGetBuild    RequestType = "GetBuild"
	TypeListBuilds  RequestType = "ListBuilds"
	TypeCreateBuild RequestType = "CreateBuild"
	TypeDeleteBuild RequestType = "DeleteBuild"
	TypeUpdateBuild RequestType = "UpdateBuild"
	TypeRunBuild    RequestType = "RunBuild"

	// builder
	TypeGetBuilder    RequestType = "GetBuilder"
	TypeListBuilders  RequestType = "ListBuilders"
	TypeCreateBuilder RequestType = "CreateBuilder"
	TypeDeleteBuilder RequestType = "DeleteBuilder"
	TypeUpdateBuilder RequestType = "UpdateBuilder"

	// repo
	TypeGetRepo    RequestType = "GetRepo"
	TypeListRepos  RequestType = "ListRepos"
	TypeCreateRepo RequestType = "CreateRepo"
	TypeUpdateRepo RequestType = "UpdateRepo"
	TypeDeleteRepo RequestType = "DeleteRepo"
	TypeCloneRepo  RequestType = "CloneRepo"
	TypePullRepo   RequestType = "PullRepo"
)

// ==== SECRET ====

type CreateLoginSecret struct {
	Name string `json:"name" validate:"required,max=128"`
}

type DeleteLoginSecret struct {
	Name string `json:"name" validate:"required"`
}

// ==== PERMISSIONS ====

// UpdateUserPermissions toggles account-level flags on a user. Admin only.
type UpdateUserPermissions struct {
	UserID        string `json:"user_id" validate:"required"`
	Enabled       *bool  `json:"enabled,omitempty"`
	CreateServers *bool  `json:"create_servers,omitempty"`
	CreateBuilds  *bool  `json:"create_builds,omitempty"`
}

// UpdateUserPermissionsOnTarget sets a user's level on one resource. Admin only.
type UpdateUserPermissionsOnTarget struct {
	UserID     string          `json:"user_id" validate:"required"`
	Kind       ResourceKind    `json:"kind" validate:"required"`
	ResourceID string          `json:"resource_id" validate:"required"`
	Permission PermissionLevel `json:"permission"`
}

// ==== SERVER ====

// Get/stat requests address a server by id or name.
type GetPeripheryVersion struct {
	Server string `json:"server" validate:"required"`
}

type GetSystemInformation struct {
	Server string `json:"server" validate:"required"`
}

type GetDockerContainers struct {
	Server string `json:"server" validate:"required"`
}

type GetContainerStats struct {
	Server    string `json:"server" validate:"required"`
	Container string `json:"container" validate:"required"`
}

type GetContainerStatsList struct {
	Server string `json:"server" validate:"required"`
}

type GetDockerImages struct {
	Server string `json:"server" validate:"required"`
}

type GetDockerNetworks struct {
	Server string `json:"server" validate:"required"`
}

type GetServer struct {
	Server string `json:"server" validate:"required"`
}

type ListServers struct{}

type CreateServer struct {
	Name   string              `json:"name" validate:"required,max=128"`
	Config PartialServerConfig `json:"config"`
}

type DeleteServer struct {
	ID string `json:"id" validate:"required"`
}

type UpdateServer struct {
	ID     string              `json:"id" validate:"required"`
	Config PartialServerConfig `json:"config"`
}

type RenameServer struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required,max=128"`
}

type GetAllSystemStats struct {
	Server string `json:"server" validate:"required"`
}

type GetBasicSystemStats struct {
	Server string `json:"server" validate:"required"`
}

type GetCpuUsage struct {
	Server string `json:"server" validate:"required"`
}

type GetDiskUsage struct {
	Server string `json:"server" validate:"required"`
}

type GetNetworkUsage struct {
	Server string `json:"server" validate:"required"`
}

type GetSystemProcesses struct {
	Server string `json:"server" validate:"required"`
}

type GetSystemComponents struct {
	Server string `json:"server" validate:"required"`
}

type PruneContainers struct {
	Server string `json:"server" validate:"required"`
}

type PruneImages struct {
	Server string `json:"server" validate:"required"`
}

type PruneNetworks struct {
	Server string `json:"server" validate:"required"`
}

// ==== DEPLOYMENT ====

type GetDeployment struct {
	Deployment string `json:"deployment" validate:"required"`
}

type ListDeployments struct{}

type CreateDeployment struct {
	Name   string                  `json:"name" validate:"required,max=128"`
	Config PartialDeploymentConfig `json:"config"`
}

type DeleteDeployment struct {
	ID string `json:"id" validate:"required"`
}

type UpdateDeployment struct {
	ID     string                  `json:"id" validate:"required"`
	Config PartialDeploymentConfig `json:"config"`
}

type RenameDeployment struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required,max=128"`
}

type Deploy struct {
	Deployment string `json:"deployment" validate:"required"`
}

type StartContainer struct {
	Deployment string `json:"deployment" validate:"required"`
}

type StopContainer struct {
	Deployment string `json:"deployment" validate:"required"`
}

type RemoveContainer struct {
	Deployment string `json:"deployment" validate:"required"`
}

// ==== BUILD ====

type GetBuild struct {
	Build string `json:"build" validate:"required"`
}

type ListBuilds struct{}

type CreateBuild struct {
	Name           string             `json:"name" validate:"required,max=128"`
	Config         PartialBuildConfig `json:"config"`
	GitAccessToken string             `json:"git_access_token,omitempty"`
}

type DeleteBuild struct {
	ID string `json:"id" validate:"required"`
}

type UpdateBuild struct {
	ID             string             `json:"id" validate:"required"`
	Config         PartialBuildConfig `json:"config"`
	GitAccessToken string             `json:"git_access_token,omitempty"`
}

type RunBuild struct {
	Build string `json:"build" validate:"required"`
}

// ==== BUILDER ====

type GetBuilder struct {
	Builder string `json:"builder" validate:"required"`
}

type ListBuilders struct{}

type CreateBuilder struct {
	Name   string               `json:"name" validate:"required,max=128"`
	Config PartialBuilderConfig `json:"config"`
}

type DeleteBuilder struct {
	ID string `json:"id" validate:"required"`
}

type UpdateBuilder struct {
	ID     string               `json:"id" validate:"required"`
	Config PartialBuilderConfig `json:"config"`
}

// ==== REPO ====

type GetRepo struct {
	Repo string `json:"repo" validate:"required"`
}

type ListRepos struct{}

type CreateRepo struct {
	Name           string            `json:"name" validate:"required,max=128"`
	Config         PartialRepoConfig `json:"config"`
	GitAccessToken string            `json:"git_access_token,omitempty"`
}

type UpdateRepo struct {
	ID             string            `json:"id" validate:"required"`
	Config         PartialRepoConfig `json:"config"`
	GitAccessToken string            `json:"git_access_token,omitempty"`
}

type DeleteRepo struct {
	ID string `json:"id" validate:"required"`
}

type CloneRepo struct {
	Repo string `json:"repo" validate:"required"`
}

type PullRepo struct {
	Repo string `json:"repo" validate:"required"`
}
