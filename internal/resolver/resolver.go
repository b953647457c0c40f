// Package resolver dispatches typed api requests to their handlers and
// enforces permissions along the way.
package resolver

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/credentials"
	"github.com/marcoraddatz/komodo/internal/periphery"
	"github.com/marcoraddatz/komodo/internal/store"
	"github.com/marcoraddatz/komodo/internal/ws"
)

// Resolver holds the core's shared state.
type Resolver struct {
	Store     store.Store
	Periphery *periphery.Client
	Creds     *credentials.Service
	Hub       *ws.Hub
	Logger    *slog.Logger

	validate *validator.Validate
}

func New(st store.Store, client *periphery.Client, creds *credentials.Service, hub *ws.Hub, logger *slog.Logger) *Resolver {
	return &Resolver{
		Store:     st,
		Periphery: client,
		Creds:     creds,
		Hub:       hub,
		Logger:    logger,
		validate:  validator.New(),
	}
}

// resolve decodes and validates the raw params, then runs the handler.
func resolve[T any, R any](
	r *Resolver,
	ctx context.Context,
	user api.RequestUser,
	raw json.RawMessage,
	fn func(context.Context, api.RequestUser, T) (R, error),
) (any, error) {
	var params T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, api.InvalidRequestf("failed to parse request params: %v", err)
		}
	}
	if err := r.validate.Struct(&params); err != nil {
		return nil, api.InvalidRequestf("invalid request params: %v", err)
	}
	return fn(ctx, user, params)
}

// Resolve routes one request to its handler. The switch is exhaustive
// over the wire's type tags; unknown tags are rejected up front.
func (r *Resolver) Resolve(ctx context.Context, user api.RequestUser, req api.Request) (any, error) {
	switch req.Type {
	// secrets
	case api.TypeCreateLoginSecret:
		return resolve(r, ctx, user, req.Params, r.createLoginSecret)
	case api.TypeDeleteLoginSecret:
		return resolve(r, ctx, user, req.Params, r.deleteLoginSecret)

	// permissions
	case api.TypeUpdateUserPermissions:
		return resolve(r, ctx, user, req.Params, r.updateUserPermissions)
	case api.TypeUpdateUserPermissionsOnTarget:
		return resolve(r, ctx, user, req.Params, r.updateUserPermissionsOnTarget)

	// server
	case api.TypeGetServer:
		return resolve(r, ctx, user, req.Params, r.getServer)
	case api.TypeListServers:
		return resolve(r, ctx, user, req.Params, r.listServers)
	case api.TypeCreateServer:
		return resolve(r, ctx, user, req.Params, r.createServer)
	case api.TypeDeleteServer:
		return resolve(r, ctx, user, req.Params, r.deleteServer)
	case api.TypeUpdateServer:
		return resolve(r, ctx, user, req.Params, r.updateServer)
	case api.TypeRenameServer:
		return resolve(r, ctx, user, req.Params, r.renameServer)
	case api.TypeGetPeripheryVersion:
		return resolve(r, ctx, user, req.Params, r.getPeripheryVersion)
	case api.TypeGetSystemInformation:
		return resolve(r, ctx, user, req.Params, r.getSystemInformation)
	case api.TypeGetDockerContainers:
		return resolve(r, ctx, user, req.Params, r.getDockerContainers)
	case api.TypeGetContainerStats:
		return resolve(r, ctx, user, req.Params, r.getContainerStats)
	case api.TypeGetContainerStatsList:
		return resolve(r, ctx, user, req.Params, r.getContainerStatsList)
	case api.TypeGetDockerImages:
		return resolve(r, ctx, user, req.Params, r.getDockerImages)
	case api.TypeGetDockerNetworks:
		return resolve(r, ctx, user, req.Params, r.getDockerNetworks)
	case api.TypeGetAllSystemStats:
		return resolve(r, ctx, user, req.Params, r.getAllSystemStats)
	case api.TypeGetBasicSystemStats:
		return resolve(r, ctx, user, req.Params, r.getBasicSystemStats)
	case api.TypeGetCpuUsage:
		return resolve(r, ctx, user, req.Params, r.getCpuUsage)
	case api.TypeGetDiskUsage:
		return resolve(r, ctx, user, req.Params, r.getDiskUsage)
	case api.TypeGetNetworkUsage:
		return resolve(r, ctx, user, req.Params, r.getNetworkUsage)
	case api.TypeGetSystemProcesses:
		return resolve(r, ctx, user, req.Params, r.getSystemProcesses)
	case api.TypeGetSystemComponents:
		return resolve(r, ctx, user, req.Params, r.getSystemComponents)
	case api.TypePruneContainers:
		return resolve(r, ctx, user, req.Params, r.pruneContainers)
	case api.TypePruneImages:
		return resolve(r, ctx, user, req.Params, r.pruneImages)
	case api.TypePruneNetworks:
		return resolve(r, ctx, user, req.Params, r.pruneNetworks)

	// deployment
	case api.TypeGetDeployment:
		return resolve(r, ctx, user, req.Params, r.getDeployment)
	case api.TypeListDeployments:
		return resolve(r, ctx, user, req.Params, r.listDeployments)
	case api.TypeCreateDeployment:
		return resolve(r, ctx, user, req.Params, r.createDeployment)
	case api.TypeDeleteDeployment:
		return resolve(r, ctx, user, req.Params, r.deleteDeployment)
	case api.TypeUpdateDeployment:
		return resolve(r, ctx, user, req.Params, r.updateDeployment)
	case api.TypeRenameDeployment:
		return resolve(r, ctx, user, req.Params, r.renameDeployment)
	case api.TypeDeploy:
		return resolve(r, ctx, user, req.Params, r.deploy)
	case api.TypeStartContainer:
		return resolve(r, ctx, user, req.Params, r.startContainer)
	case api.TypeStopContainer:
		return resolve(r, ctx, user, req.Params, r.stopContainer)
	case api.TypeRemoveContainer:
		return resolve(r, ctx, user, req.Params, r.removeContainer)

	// build
	case api.TypeGetBuild:
		return resolve(r, ctx, user, req.Params, r.getBuild)
	case api.TypeListBuilds:
		return resolve(r, ctx, user, req.Params, r.listBuilds)
	case api.TypeCreateBuild:
		return resolve(r, ctx, user, req.Params, r.createBuild)
	case api.TypeDeleteBuild:
		return resolve(r, ctx, user, req.Params, r.deleteBuild)
	case api.TypeUpdateBuild:
		return resolve(r, ctx, user, req.Params, r.updateBuild)
	case api.TypeRunBuild:
		return resolve(r, ctx, user, req.Params, r.runBuild)

	// builder
	case api.TypeGetBuilder:
		return resolve(r, ctx, user, req.Params, r.getBuilder)
	case api.TypeListBuilders:
		return resolve(r, ctx, user, req.Params, r.listBuilders)
	case api.TypeCreateBuilder:
		return resolve(r, ctx, user, req.Params, r.createBuilder)
	case api.TypeDeleteBuilder:
		return resolve(r, ctx, user, req.Params, r.deleteBuilder)
	case api.TypeUpdateBuilder:
		return resolve(r, ctx, user, req.Params, r.updateBuilder)

	// repo
	case api.TypeGetRepo:
		return resolve(r, ctx, user, req.Params, r.getRepo)
	case api.TypeListRepos:
		return resolve(r, ctx, user, req.Params, r.listRepos)
	case api.TypeCreateRepo:
		return resolve(r, ctx, user, req.Params, r.createRepo)
	case api.TypeUpdateRepo:
		return resolve(r, ctx, user, req.Params, r.updateRepo)
	case api.TypeDeleteRepo:
		return resolve(r, ctx, user, req.Params, r.deleteRepo)
	case api.TypeCloneRepo:
		return resolve(r, ctx, user, req.Params, r.cloneRepo)
	case api.TypePullRepo:
		return resolve(r, ctx, user, req.Params, r.pullRepo)

	default:
		return nil, api.InvalidRequestf("unknown request type %q", req.Type)
	}
}
