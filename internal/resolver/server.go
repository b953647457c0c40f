package resolver

import (
	"context"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/periphery"
	"github.com/marcoraddatz/komodo/internal/permissions"
)

func (r *Resolver) getServer(ctx context.Context, user api.RequestUser, p api.GetServer) (*api.Server, error) {
	rec, err := r.findRecord(ctx, api.KindServer, p.Server)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionRead); err != nil {
		return nil, err
	}
	return toResource[api.ServerConfig, api.ServerInfo](rec)
}

func (r *Resolver) listServers(ctx context.Context, user api.RequestUser, _ api.ListServers) ([]*api.Server, error) {
	recs, err := r.listVisible(ctx, user, api.KindServer)
	if err != nil {
		return nil, err
	}
	servers := make([]*api.Server, 0, len(recs))
	for _, rec := range recs {
		server, err := toResource[api.ServerConfig, api.ServerInfo](rec)
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	return servers, nil
}

func (r *Resolver) createServer(ctx context.Context, user api.RequestUser, p api.CreateServer) (*api.Server, error) {
	full, err := r.requireFullUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := permissions.CheckCreate(user, full, api.KindServer); err != nil {
		return nil, err
	}

	config := p.Config.Apply(api.DefaultServerConfig())
	rec, err := r.createRecord(ctx, user, api.KindServer, p.Name, config, api.ServerInfo{Status: api.ServerNotOk})
	if err != nil {
		return nil, err
	}
	return toResource[api.ServerConfig, api.ServerInfo](rec)
}

func (r *Resolver) deleteServer(ctx context.Context, user api.RequestUser, p api.DeleteServer) (*api.Server, error) {
	rec, err := r.getRecordByID(ctx, api.KindServer, p.ID)
	if err != nil {
		return nil, err
	}
	server, err := toResource[api.ServerConfig, api.ServerInfo](rec)
	if err != nil {
		return nil, err
	}
	if err := r.delete(ctx, user, api.KindServer, p.ID); err != nil {
		return nil, err
	}
	return server, nil
}

func (r *Resolver) updateServer(ctx context.Context, user api.RequestUser, p api.UpdateServer) (*api.Server, error) {
	rec, err := r.getRecordByID(ctx, api.KindServer, p.ID)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionWrite); err != nil {
		return nil, err
	}
	server, err := toResource[api.ServerConfig, api.ServerInfo](rec)
	if err != nil {
		return nil, err
	}

	config := p.Config.Apply(server.Config)
	if err := r.updateConfig(ctx, rec, config); err != nil {
		return nil, err
	}

	updated, err := toResource[api.ServerConfig, api.ServerInfo](rec)
	if err != nil {
		return nil, err
	}
	r.Hub.PublishJSON(api.KindServer, rec.ID, "updated", updated)
	return updated, nil
}

func (r *Resolver) renameServer(ctx context.Context, user api.RequestUser, p api.RenameServer) (*api.Server, error) {
	rec, err := r.rename(ctx, user, api.KindServer, p.ID, p.Name)
	if err != nil {
		return nil, err
	}
	return toResource[api.ServerConfig, api.ServerInfo](rec)
}

// peripheryFor loads the addressed server, checks the caller can read it,
// and returns the bound agent client.
func (r *Resolver) peripheryFor(ctx context.Context, user api.RequestUser, idOrName string, required api.PermissionLevel) (*periphery.ServerClient, *api.Server, error) {
	rec, err := r.findRecord(ctx, api.KindServer, idOrName)
	if err != nil {
		return nil, nil, err
	}
	if err := permissions.Check(user, rec, required); err != nil {
		return nil, nil, err
	}
	server, err := r.serverForPeriphery(ctx, rec)
	if err != nil {
		return nil, nil, err
	}
	return r.Periphery.For(server), server, nil
}

func (r *Resolver) getPeripheryVersion(ctx context.Context, user api.RequestUser, p api.GetPeripheryVersion) (*api.PeripheryVersion, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetVersion(ctx)
}

func (r *Resolver) getSystemInformation(ctx context.Context, user api.RequestUser, p api.GetSystemInformation) (*api.SystemInformation, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetSystemInformation(ctx)
}

func (r *Resolver) getDockerContainers(ctx context.Context, user api.RequestUser, p api.GetDockerContainers) ([]api.BasicContainerInfo, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetContainers(ctx)
}

func (r *Resolver) getContainerStats(ctx context.Context, user api.RequestUser, p api.GetContainerStats) (*api.DockerContainerStats, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetContainerStats(ctx, p.Container)
}

func (r *Resolver) getContainerStatsList(ctx context.Context, user api.RequestUser, p api.GetContainerStatsList) ([]api.DockerContainerStats, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetContainerStatsList(ctx)
}

func (r *Resolver) getDockerImages(ctx context.Context, user api.RequestUser, p api.GetDockerImages) ([]api.ImageSummary, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetImages(ctx)
}

func (r *Resolver) getDockerNetworks(ctx context.Context, user api.RequestUser, p api.GetDockerNetworks) ([]api.NetworkSummary, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetNetworks(ctx)
}

func (r *Resolver) getAllSystemStats(ctx context.Context, user api.RequestUser, p api.GetAllSystemStats) (*api.AllSystemStats, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetAllSystemStats(ctx)
}

func (r *Resolver) getBasicSystemStats(ctx context.Context, user api.RequestUser, p api.GetBasicSystemStats) (*api.BasicSystemStats, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetBasicSystemStats(ctx)
}

func (r *Resolver) getCpuUsage(ctx context.Context, user api.RequestUser, p api.GetCpuUsage) (*api.CPUUsage, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetCpuUsage(ctx)
}

func (r *Resolver) getDiskUsage(ctx context.Context, user api.RequestUser, p api.GetDiskUsage) (*api.DiskUsage, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetDiskUsage(ctx)
}

func (r *Resolver) getNetworkUsage(ctx context.Context, user api.RequestUser, p api.GetNetworkUsage) (*api.NetworkUsage, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetNetworkUsage(ctx)
}

func (r *Resolver) getSystemProcesses(ctx context.Context, user api.RequestUser, p api.GetSystemProcesses) ([]api.SystemProcess, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetSystemProcesses(ctx)
}

func (r *Resolver) getSystemComponents(ctx context.Context, user api.RequestUser, p api.GetSystemComponents) ([]api.SystemComponent, error) {
	client, _, err := r.peripheryFor(ctx, user, p.Server, api.PermissionRead)
	if err != nil {
		return nil, err
	}
	return client.GetSystemComponents(ctx)
}

func (r *Resolver) pruneContainers(ctx context.Context, user api.RequestUser, p api.PruneContainers) (*api.Log, error) {
	client, server, err := r.peripheryFor(ctx, user, p.Server, api.PermissionExecute)
	if err != nil {
		return nil, err
	}
	log, err := client.PruneContainers(ctx)
	if err != nil {
		return nil, err
	}
	r.Hub.PublishJSON(api.KindServer, server.ID, "prune_containers", log)
	return log, nil
}

func (r *Resolver) pruneImages(ctx context.Context, user api.RequestUser, p api.PruneImages) (*api.Log, error) {
	client, server, err := r.peripheryFor(ctx, user, p.Server, api.PermissionExecute)
	if err != nil {
		return nil, err
	}
	log, err := client.PruneImages(ctx)
	if err != nil {
		return nil, err
	}
	r.Hub.PublishJSON(api.KindServer, server.ID, "prune_images", log)
	return log, nil
}

func (r *Resolver) pruneNetworks(ctx context.Context, user api.RequestUser, p api.PruneNetworks) (*api.Log, error) {
	client, server, err := r.peripheryFor(ctx, user, p.Server, api.PermissionExecute)
	if err != nil {
		return nil, err
	}
	log, err := client.PruneNetworks(ctx)
	if err != nil {
		return nil, err
	}
	r.Hub.PublishJSON(api.KindServer, server.ID, "prune_networks", log)
	return log, nil
}
