package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/marcoraddatz/komodo/internal/api"
)

// Git manages the agent's local clones under RootDir, one directory per
// repo name.
type Git struct {
	RootDir string
}

func gitAuth(token string) *githttp.BasicAuth {
	if token == "" {
		return nil
	}
	// Token-as-password works for GitHub, GitLab and Gitea alike.
	return &githttp.BasicAuth{Username: "git", Password: token}
}

func (g Git) repoPath(name string) string {
	return filepath.Join(g.RootDir, name)
}

func gitLog(stage, command string, started time.Time, err error) api.Log {
	log := api.Log{
		Stage:     stage,
		Command:   command,
		Success:   err == nil,
		StartedAt: started,
		EndedAt:   time.Now().UTC(),
	}
	if err != nil {
		log.Stderr = err.Error()
	}
	return log
}

func headCommit(repo *git.Repository) string {
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}

// Clone fetches a fresh copy of the repo, replacing any previous clone,
// then runs the on_clone hook when configured.
func (g Git) Clone(ctx context.Context, args api.GitCloneArgs) api.GitResult {
	path := g.repoPath(args.Name)
	started := time.Now().UTC()
	command := fmt.Sprintf("git clone -b %s %s", args.Branch, args.RepoURL)

	if err := os.RemoveAll(path); err != nil {
		return api.GitResult{Logs: []api.Log{gitLog("clone", command, started, err)}}
	}

	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:           args.RepoURL,
		ReferenceName: plumbing.NewBranchReferenceName(args.Branch),
		SingleBranch:  true,
		Auth:          gitAuth(args.AccessToken),
	})
	result := api.GitResult{Logs: []api.Log{gitLog("clone", command, started, err)}}
	if err != nil {
		return result
	}
	result.Commit = headCommit(repo)

	if args.OnClone != "" {
		hook := runShell(ctx, "on_clone hook", path, args.OnClone)
		result.Logs = append(result.Logs, hook)
	}
	return result
}

// Pull fast-forwards an existing clone, then runs the on_pull hook.
func (g Git) Pull(ctx context.Context, args api.GitPullArgs) api.GitResult {
	path := g.repoPath(args.Name)
	started := time.Now().UTC()
	command := fmt.Sprintf("git pull origin %s", args.Branch)

	repo, err := git.PlainOpen(path)
	if err != nil {
		return api.GitResult{Logs: []api.Log{gitLog("pull", command, started,
			fmt.Errorf("repo %s has not been cloned: %w", args.Name, err))}}
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return api.GitResult{Logs: []api.Log{gitLog("pull", command, started, err)}}
	}

	err = worktree.PullContext(ctx, &git.PullOptions{
		ReferenceName: plumbing.NewBranchReferenceName(args.Branch),
		SingleBranch:  true,
		Auth:          gitAuth(args.AccessToken),
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		err = nil
	}
	result := api.GitResult{Logs: []api.Log{gitLog("pull", command, started, err)}}
	if err != nil {
		return result
	}
	result.Commit = headCommit(repo)

	if args.OnPull != "" {
		hook := runShell(ctx, "on_pull hook", path, args.OnPull)
		result.Logs = append(result.Logs, hook)
	}
	return result
}
