package resolver

import (
	"context"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/permissions"
	"github.com/marcoraddatz/komodo/internal/store"
)

func (r *Resolver) getRepo(ctx context.Context, user api.RequestUser, p api.GetRepo) (*api.Repo, error) {
	rec, err := r.findRecord(ctx, api.KindRepo, p.Repo)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionRead); err != nil {
		return nil, err
	}
	return toResource[api.RepoConfig, api.RepoInfo](rec)
}

func (r *Resolver) listRepos(ctx context.Context, user api.RequestUser, _ api.ListRepos) ([]*api.Repo, error) {
	recs, err := r.listVisible(ctx, user, api.KindRepo)
	if err != nil {
		return nil, err
	}
	repos := make([]*api.Repo, 0, len(recs))
	for _, rec := range recs {
		repo, err := toResource[api.RepoConfig, api.RepoInfo](rec)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func (r *Resolver) createRepo(ctx context.Context, user api.RequestUser, p api.CreateRepo) (*api.Repo, error) {
	full, err := r.requireFullUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := permissions.CheckCreate(user, full, api.KindRepo); err != nil {
		return nil, err
	}

	config := p.Config.Apply(api.DefaultRepoConfig())
	rec, err := r.createRecord(ctx, user, api.KindRepo, p.Name, config, api.RepoInfo{})
	if err != nil {
		return nil, err
	}
	if p.GitAccessToken != "" {
		if err := r.storeAccessToken(ctx, api.KindRepo, rec.ID, p.GitAccessToken); err != nil {
			return nil, err
		}
	}
	return toResource[api.RepoConfig, api.RepoInfo](rec)
}

func (r *Resolver) updateRepo(ctx context.Context, user api.RequestUser, p api.UpdateRepo) (*api.Repo, error) {
	rec, err := r.getRecordByID(ctx, api.KindRepo, p.ID)
	if err != nil {
		return nil, err
	}
	if err := permissions.Check(user, rec, api.PermissionWrite); err != nil {
		return nil, err
	}
	repo, err := toResource[api.RepoConfig, api.RepoInfo](rec)
	if err != nil {
		return nil, err
	}

	config := p.Config.Apply(repo.Config)
	if err := r.updateConfig(ctx, rec, config); err != nil {
		return nil, err
	}
	if p.GitAccessToken != "" {
		if err := r.storeAccessToken(ctx, api.KindRepo, rec.ID, p.GitAccessToken); err != nil {
			return nil, err
		}
	}

	updated, err := toResource[api.RepoConfig, api.RepoInfo](rec)
	if err != nil {
		return nil, err
	}
	r.Hub.PublishJSON(api.KindRepo, rec.ID, "updated", updated)
	return updated, nil
}

func (r *Resolver) deleteRepo(ctx context.Context, user api.RequestUser, p api.DeleteRepo) (*api.Repo, error) {
	rec, err := r.getRecordByID(ctx, api.KindRepo, p.ID)
	if err != nil {
		return nil, err
	}
	repo, err := toResource[api.RepoConfig, api.RepoInfo](rec)
	if err != nil {
		return nil, err
	}
	if err := r.delete(ctx, user, api.KindRepo, p.ID); err != nil {
		return nil, err
	}
	return repo, nil
}

// repoTarget loads a repo the user may execute against, with its server.
func (r *Resolver) repoTarget(ctx context.Context, user api.RequestUser, idOrName string) (*api.Repo, *store.Record, *api.Server, string, error) {
	rec, err := r.findRecord(ctx, api.KindRepo, idOrName)
	if err != nil {
		return nil, nil, nil, "", err
	}
	if err := permissions.Check(user, rec, api.PermissionExecute); err != nil {
		return nil, nil, nil, "", err
	}
	repo, err := toResource[api.RepoConfig, api.RepoInfo](rec)
	if err != nil {
		return nil, nil, nil, "", err
	}
	if repo.Config.RepoURL == "" {
		return nil, nil, nil, "", api.InvalidRequestf("repo %s has no url configured", repo.Name)
	}
	server, err := r.serverByID(ctx, repo.Config.ServerID)
	if err != nil {
		return nil, nil, nil, "", err
	}
	token, err := r.loadAccessToken(ctx, api.KindRepo, rec.ID)
	if err != nil {
		return nil, nil, nil, "", err
	}
	return repo, rec, server, token, nil
}

func (r *Resolver) cloneRepo(ctx context.Context, user api.RequestUser, p api.CloneRepo) (*api.GitResult, error) {
	repo, rec, server, token, err := r.repoTarget(ctx, user, p.Repo)
	if err != nil {
		return nil, err
	}

	result, err := r.Periphery.For(server).CloneRepo(ctx, api.GitCloneArgs{
		Name:        repo.Name,
		RepoURL:     repo.Config.RepoURL,
		Branch:      repo.Config.Branch,
		AccessToken: token,
		OnClone:     repo.Config.OnClone,
	})
	if err != nil {
		return nil, err
	}

	if err := r.updateInfo(ctx, api.KindRepo, rec.ID, func([]byte) (any, error) {
		info := repo.Info
		info.LastClonedAt = time.Now().UTC()
		info.LatestCommit = result.Commit
		return info, nil
	}); err != nil {
		r.Logger.Error("failed to record clone result", "repo", repo.Name, "error", err)
	}
	r.Hub.PublishJSON(api.KindRepo, rec.ID, "clone", result)
	return result, nil
}

func (r *Resolver) pullRepo(ctx context.Context, user api.RequestUser, p api.PullRepo) (*api.GitResult, error) {
	repo, rec, server, token, err := r.repoTarget(ctx, user, p.Repo)
	if err != nil {
		return nil, err
	}

	result, err := r.Periphery.For(server).PullRepo(ctx, api.GitPullArgs{
		Name:        repo.Name,
		Branch:      repo.Config.Branch,
		AccessToken: token,
		OnPull:      repo.Config.OnPull,
	})
	if err != nil {
		return nil, err
	}

	if err := r.updateInfo(ctx, api.KindRepo, rec.ID, func([]byte) (any, error) {
		info := repo.Info
		info.LastPulledAt = time.Now().UTC()
		info.LatestCommit = result.Commit
		return info, nil
	}); err != nil {
		r.Logger.Error("failed to record pull result", "repo", repo.Name, "error", err)
	}
	r.Hub.PublishJSON(api.KindRepo, rec.ID, "pull", result)
	return result, nil
}
