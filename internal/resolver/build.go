package resolver

import (
	"context"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/permissions"
)

func (r *Resolver) getBuild(ctx context.Context, user api.RequestUser, p api.GetBuild) (*api.Build, error) {
	rec, err := r.findRecord(ctx, api.KindBuild, p.Build)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionRead); err != nil {
		return nil, err
	}
	return toResource[api.BuildConfig, api.BuildInfo](rec)
}

func (r *Resolver) listBuilds(ctx context.Context, user api.RequestUser, _ api.ListBuilds) ([]*api.Build, error) {
	recs, err := r.listVisible(ctx, user, api.KindBuild)
	if err != nil {
		return nil, err
	}
	builds := make([]*api.Build, 0, len(recs))
	for _, rec := range recs {
		build, err := toResource[api.BuildConfig, api.BuildInfo](rec)
		if err != nil {
			return nil, err
		}
		builds = append(builds, build)
	}
	return builds, nil
}

func (r *Resolver) createBuild(ctx context.Context, user api.RequestUser, p api.CreateBuild) (*api.Build, error) {
	full, err := r.requireFullUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := permissions.CheckCreate(user, full, api.KindBuild); err != nil {
		return nil, err
	}

	config := p.Config.Apply(api.DefaultBuildConfig())
	rec, err := r.createRecord(ctx, user, api.KindBuild, p.Name, config, api.BuildInfo{})
	if err != nil {
		return nil, err
	}
	if p.GitAccessToken != "" {
		if err := r.storeAccessToken(ctx, api.KindBuild, rec.ID, p.GitAccessToken); err != nil {
			return nil, err
		}
	}
	return toResource[api.BuildConfig, api.BuildInfo](rec)
}

func (r *Resolver) deleteBuild(ctx context.Context, user api.RequestUser, p api.DeleteBuild) (*api.Build, error) {
	rec, err := r.getRecordByID(ctx, api.KindBuild, p.ID)
	if err != nil {
		return nil, err
	}
	build, err := toResource[api.BuildConfig, api.BuildInfo](rec)
	if err != nil {
		return nil, err
	}
	if err := r.delete(ctx, user, api.KindBuild, p.ID); err != nil {
		return nil, err
	}
	return build, nil
}

func (r *Resolver) updateBuild(ctx context.Context, user api.RequestUser, p api.UpdateBuild) (*api.Build, error) {
	rec, err := r.getRecordByID(ctx, api.KindBuild, p.ID)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionWrite); err != nil {
		return nil, err
	}
	build, err := toResource[api.BuildConfig, api.BuildInfo](rec)
	if err != nil {
		return nil, err
	}

	config := p.Config.Apply(build.Config)
	if err := r.updateConfig(ctx, rec, config); err != nil {
		return nil, err
	}
	if p.GitAccessToken != "" {
		if err := r.storeAccessToken(ctx, api.KindBuild, rec.ID, p.GitAccessToken); err != nil {
			return nil, err
		}
	}

	updated, err := toResource[api.BuildConfig, api.BuildInfo](rec)
	if err != nil {
		return nil, err
	}
	r.Hub.PublishJSON(api.KindBuild, rec.ID, "updated", updated)
	return updated, nil
}

func (r *Resolver) runBuild(ctx context.Context, user api.RequestUser, p api.RunBuild) (*api.BuildResult, error) {
	rec, err := r.findRecord(ctx, api.KindBuild, p.Build)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionExecute); err != nil {
		return nil, err
	}
	build, err := toResource[api.BuildConfig, api.BuildInfo](rec)
	if err != nil {
		return nil, err
	}
	if build.Config.RepoURL == "" {
		return nil, api.InvalidRequestf("build %s has no repo configured", build.Name)
	}

	if build.Config.BuilderID == "" {
		return nil, api.InvalidRequestf("build %s has no builder configured", build.Name)
	}
	builderRec, err := r.getRecordByID(ctx, api.KindBuilder, build.Config.BuilderID)
	if err != nil {
		return nil, err
	}
	builder, err := toResource[api.BuilderConfig, api.BuilderInfo](builderRec)
	if err != nil {
		return nil, err
	}
	server, err := r.serverByID(ctx, builder.Config.ServerID)
	if err != nil {
		return nil, err
	}

	token, err := r.loadAccessToken(ctx, api.KindBuild, rec.ID)
	if err != nil {
		return nil, err
	}

	result, err := r.Periphery.For(server).Build(ctx, api.BuildArgs{
		Name:           build.Name,
		RepoURL:        build.Config.RepoURL,
		Branch:         build.Config.Branch,
		DockerfilePath: build.Config.DockerfilePath,
		BuildArgs:      build.Config.BuildArgs,
		Version:        build.Config.Version,
		AccessToken:    token,
	})
	if err != nil {
		return nil, err
	}

	// A failed clone or build comes back as Success:false logs with no
	// image tag; only a produced image updates the build record.
	if result.ImageTag != "" {
		if err := r.updateInfo(ctx, api.KindBuild, rec.ID, func([]byte) (any, error) {
			return api.BuildInfo{LastBuiltAt: time.Now().UTC(), LastVersion: build.Config.Version}, nil
		}); err != nil {
			r.Logger.Error("failed to record build result", "build", build.Name, "error", err)
		}
	}
	r.Hub.PublishJSON(api.KindBuild, rec.ID, "build", result)
	return result, nil
}
