package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/permissions"
	"github.com/marcoraddatz/komodo/internal/store"
)

func (r *Resolver) getDeployment(ctx context.Context, user api.RequestUser, p api.GetDeployment) (*api.Deployment, error) {
	rec, err := r.findRecord(ctx, api.KindDeployment, p.Deployment)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionRead); err != nil {
		return nil, err
	}
	return toResource[api.DeploymentConfig, api.DeploymentInfo](rec)
}

func (r *Resolver) listDeployments(ctx context.Context, user api.RequestUser, _ api.ListDeployments) ([]*api.Deployment, error) {
	recs, err := r.listVisible(ctx, user, api.KindDeployment)
	if err != nil {
		return nil, err
	}
	deployments := make([]*api.Deployment, 0, len(recs))
	for _, rec := range recs {
		deployment, err := toResource[api.DeploymentConfig, api.DeploymentInfo](rec)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, deployment)
	}
	return deployments, nil
}

func (r *Resolver) createDeployment(ctx context.Context, user api.RequestUser, p api.CreateDeployment) (*api.Deployment, error) {
	full, err := r.requireFullUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := permissions.CheckCreate(user, full, api.KindDeployment); err != nil {
		return nil, err
	}

	config := p.Config.Apply(api.DefaultDeploymentConfig())
	if config.Image != "" && config.BuildID != "" {
		return nil, api.InvalidRequestf("deployment cannot set both image and build_id")
	}
	rec, err := r.createRecord(ctx, user, api.KindDeployment, p.Name, config, api.DeploymentInfo{})
	if err != nil {
		return nil, err
	}
	return toResource[api.DeploymentConfig, api.DeploymentInfo](rec)
}

func (r *Resolver) deleteDeployment(ctx context.Context, user api.RequestUser, p api.DeleteDeployment) (*api.Deployment, error) {
	rec, err := r.getRecordByID(ctx, api.KindDeployment, p.ID)
	if err != nil {
		return nil, err
	}
	deployment, err := toResource[api.DeploymentConfig, api.DeploymentInfo](rec)
	if err != nil {
		return nil, err
	}
	if err := r.delete(ctx, user, api.KindDeployment, p.ID); err != nil {
		return nil, err
	}
	return deployment, nil
}

func (r *Resolver) updateDeployment(ctx context.Context, user api.RequestUser, p api.UpdateDeployment) (*api.Deployment, error) {
	rec, err := r.getRecordByID(ctx, api.KindDeployment, p.ID)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionWrite); err != nil {
		return nil, err
	}
	deployment, err := toResource[api.DeploymentConfig, api.DeploymentInfo](rec)
	if err != nil {
		return nil, err
	}

	config := p.Config.Apply(deployment.Config)
	if config.Image != "" && config.BuildID != "" {
		return nil, api.InvalidRequestf("deployment cannot set both image and build_id")
	}
	if err := r.updateConfig(ctx, rec, config); err != nil {
		return nil, err
	}

	updated, err := toResource[api.DeploymentConfig, api.DeploymentInfo](rec)
	if err != nil {
		return nil, err
	}
	r.Hub.PublishJSON(api.KindDeployment, rec.ID, "updated", updated)
	return updated, nil
}

func (r *Resolver) renameDeployment(ctx context.Context, user api.RequestUser, p api.RenameDeployment) (*api.Deployment, error) {
	rec, err := r.rename(ctx, user, api.KindDeployment, p.ID, p.Name)
	if err != nil {
		return nil, err
	}
	return toResource[api.DeploymentConfig, api.DeploymentInfo](rec)
}

// deploymentTarget loads a deployment the user may execute, plus the
// bound agent client for its server.
func (r *Resolver) deploymentTarget(ctx context.Context, user api.RequestUser, idOrName string) (*api.Deployment, *store.Record, error) {
	rec, err := r.findRecord(ctx, api.KindDeployment, idOrName)
	if err != nil {
		return nil, nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionExecute); err != nil {
		return nil, nil, err
	}
	deployment, err := toResource[api.DeploymentConfig, api.DeploymentInfo](rec)
	if err != nil {
		return nil, nil, err
	}
	return deployment, rec, nil
}

// resolveImage picks the image to run: an explicit image, or the latest
// image produced by the referenced build.
func (r *Resolver) resolveImage(ctx context.Context, deployment *api.Deployment) (string, error) {
	config := deployment.Config
	if config.BuildID == "" {
		if config.Image == "" {
			return "", api.InvalidRequestf("deployment %s has neither image nor build configured", deployment.Name)
		}
		return config.Image, nil
	}

	rec, err := r.getRecordByID(ctx, api.KindBuild, config.BuildID)
	if err != nil {
		return "", err
	}
	build, err := toResource[api.BuildConfig, api.BuildInfo](rec)
	if err != nil {
		return "", err
	}
	version := build.Info.LastVersion
	if version == "" {
		return "", api.Conflictf("build %s has never produced an image, run it first", build.Name)
	}
	return fmt.Sprintf("%s:%s", build.Name, version), nil
}

func (r *Resolver) deploy(ctx context.Context, user api.RequestUser, p api.Deploy) (*api.Log, error) {
	deployment, rec, err := r.deploymentTarget(ctx, user, p.Deployment)
	if err != nil {
		return nil, err
	}
	server, err := r.serverByID(ctx, deployment.Config.ServerID)
	if err != nil {
		return nil, err
	}
	image, err := r.resolveImage(ctx, deployment)
	if err != nil {
		return nil, err
	}

	log, err := r.Periphery.For(server).Deploy(ctx, api.DeployArgs{
		Name:   deployment.Name,
		Config: deployment.Config,
		Image:  image,
	})
	if err != nil {
		return nil, err
	}

	// The agent reports command failures as Success:false with status 200;
	// the container only counts as running when every step succeeded.
	if log.Success {
		if err := r.updateInfo(ctx, api.KindDeployment, rec.ID, func([]byte) (any, error) {
			return api.DeploymentInfo{State: string(api.ContainerRunning), LastDeployed: time.Now().UTC()}, nil
		}); err != nil {
			r.Logger.Error("failed to record deploy result", "deployment", deployment.Name, "error", err)
		}
	}
	r.Hub.PublishJSON(api.KindDeployment, rec.ID, "deploy", log)
	return log, nil
}

func (r *Resolver) containerAction(
	ctx context.Context,
	user api.RequestUser,
	idOrName, event string,
	state api.ContainerState,
	call func(ctx context.Context, server *api.Server, name string) (*api.Log, error),
) (*api.Log, error) {
	deployment, rec, err := r.deploymentTarget(ctx, user, idOrName)
	if err != nil {
		return nil, err
	}
	server, err := r.serverByID(ctx, deployment.Config.ServerID)
	if err != nil {
		return nil, err
	}

	log, err := call(ctx, server, deployment.Name)
	if err != nil {
		return nil, err
	}

	if log.Success {
		if err := r.updateInfo(ctx, api.KindDeployment, rec.ID, func([]byte) (any, error) {
			info := deployment.Info
			info.State = string(state)
			return info, nil
		}); err != nil {
			r.Logger.Error("failed to record container state", "deployment", deployment.Name, "error", err)
		}
	}
	r.Hub.PublishJSON(api.KindDeployment, rec.ID, event, log)
	return log, nil
}

func (r *Resolver) startContainer(ctx context.Context, user api.RequestUser, p api.StartContainer) (*api.Log, error) {
	return r.containerAction(ctx, user, p.Deployment, "start", api.ContainerRunning,
		func(ctx context.Context, server *api.Server, name string) (*api.Log, error) {
			return r.Periphery.For(server).StartContainer(ctx, name)
		})
}

func (r *Resolver) stopContainer(ctx context.Context, user api.RequestUser, p api.StopContainer) (*api.Log, error) {
	return r.containerAction(ctx, user, p.Deployment, "stop", api.ContainerExited,
		func(ctx context.Context, server *api.Server, name string) (*api.Log, error) {
			return r.Periphery.For(server).StopContainer(ctx, name)
		})
}

func (r *Resolver) removeContainer(ctx context.Context, user api.RequestUser, p api.RemoveContainer) (*api.Log, error) {
	return r.containerAction(ctx, user, p.Deployment, "remove", api.ContainerUnknown,
		func(ctx context.Context, server *api.Server, name string) (*api.Log, error) {
			return r.Periphery.For(server).RemoveContainer(ctx, name)
		})
}
