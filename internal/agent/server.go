// Package agent implements the periphery daemon that runs on every
// managed server: docker lifecycle, git clones, builds, and host stats,
// exposed over an HTTP API guarded by a shared passkey.
package agent

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/marcoraddatz/komodo/internal/api"
)

const Version = "0.3.0"

const PasskeyHeader = "X-Periphery-Passkey"

// Server is the periphery HTTP handler set.
type Server struct {
	Passkey string
	RootDir string
	Logger  *slog.Logger

	docker Docker
	git    Git
	stats  Stats
}

func NewServer(passkey, rootDir string, logger *slog.Logger) *Server {
	return &Server{
		Passkey: passkey,
		RootDir: rootDir,
		Logger:  logger,
		git:     Git{RootDir: filepath.Join(rootDir, "repos")},
	}
}

// Router builds the agent's route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requirePasskey)

	r.Get("/version", s.handleVersion)
	r.Get("/system/information", s.handleSystemInformation)

	r.Route("/stats", func(r chi.Router) {
		r.Get("/all", s.handleAllStats)
		r.Get("/basic", s.handleBasicStats)
		r.Get("/cpu", s.handleCpu)
		r.Get("/disk", s.handleDisk)
		r.Get("/network", s.handleNetwork)
		r.Get("/processes", s.handleProcesses)
		r.Get("/components", s.handleComponents)
	})

	r.Route("/container", func(r chi.Router) {
		r.Get("/list", s.handleListContainers)
		r.Get("/stats/list", s.handleContainerStatsList)
		r.Get("/stats/{name}", s.handleContainerStats)
		r.Post("/start", s.containerAction("start", s.docker.StartContainer))
		r.Post("/stop", s.containerAction("stop", s.docker.StopContainer))
		r.Post("/remove", s.containerAction("remove", s.docker.RemoveContainer))
		r.Post("/deploy", s.handleDeploy)
		r.Post("/prune", s.handlePruneContainers)
	})

	r.Route("/image", func(r chi.Router) {
		r.Get("/list", s.handleListImages)
		r.Post("/prune", s.handlePruneImages)
	})

	r.Route("/network", func(r chi.Router) {
		r.Get("/list", s.handleListNetworks)
		r.Post("/prune", s.handlePruneNetworks)
	})

	r.Route("/git", func(r chi.Router) {
		r.Post("/clone", s.handleClone)
		r.Post("/pull", s.handlePull)
	})

	r.Post("/build", s.handleBuild)

	return r
}

// requirePasskey rejects callers without the shared secret. The compare
// is constant time so the passkey cannot be probed byte by byte.
func (s *Server) requirePasskey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Passkey != "" {
			provided := r.Header.Get(PasskeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(s.Passkey)) != 1 {
				s.Logger.Warn("rejected request with bad passkey", "remote", r.RemoteAddr, "path", r.URL.Path)
				s.writeError(w, http.StatusUnauthorized, "invalid passkey")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.Logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, api.PeripheryVersion{Version: Version})
}

func (s *Server) handleSystemInformation(w http.ResponseWriter, r *http.Request) {
	info, _ := s.stats.SystemInformation(r.Context())
	s.writeJSON(w, info)
}

func (s *Server) handleAllStats(w http.ResponseWriter, r *http.Request) {
	all, _ := s.stats.All(r.Context())
	s.writeJSON(w, all)
}

func (s *Server) handleBasicStats(w http.ResponseWriter, r *http.Request) {
	basic, _ := s.stats.Basic(r.Context())
	s.writeJSON(w, basic)
}

func (s *Server) handleCpu(w http.ResponseWriter, r *http.Request) {
	usage, _ := s.stats.CPU(r.Context())
	s.writeJSON(w, usage)
}

func (s *Server) handleDisk(w http.ResponseWriter, r *http.Request) {
	usage, _ := s.stats.Disk(r.Context())
	s.writeJSON(w, usage)
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	usage, _ := s.stats.Network(r.Context())
	s.writeJSON(w, usage)
}

func (s *Server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	procs, _ := s.stats.Processes(r.Context())
	s.writeJSON(w, procs)
}

func (s *Server) handleComponents(w http.ResponseWriter, r *http.Request) {
	components, _ := s.stats.Components(r.Context())
	s.writeJSON(w, components)
}

func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	containers, err := s.docker.ListContainers(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, containers)
}

func (s *Server) handleContainerStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	stats, err := s.docker.ContainerStats(r.Context(), name)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) handleContainerStatsList(w http.ResponseWriter, r *http.Request) {
	stats, err := s.docker.ContainerStatsList(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.docker.ListImages(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, images)
}

func (s *Server) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	networks, err := s.docker.ListNetworks(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, networks)
}

func (s *Server) containerAction(action string, run func(ctx context.Context, name string) api.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body api.ContainerName
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			s.writeError(w, http.StatusBadRequest, "container name is required")
			return
		}
		log := run(r.Context(), body.Name)
		s.Logger.Info("container action", "action", action, "container", body.Name, "success", log.Success)
		s.writeJSON(w, log)
	}
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var args api.DeployArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid deploy request")
		return
	}
	if args.Name == "" || (args.Image == "" && args.Config.Image == "") {
		s.writeError(w, http.StatusBadRequest, "deploy needs a name and an image")
		return
	}
	log := s.docker.Deploy(r.Context(), args)
	s.Logger.Info("deploy", "container", args.Name, "success", log.Success)
	s.writeJSON(w, log)
}

func (s *Server) handlePruneContainers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.docker.PruneContainers(r.Context()))
}

func (s *Server) handlePruneImages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.docker.PruneImages(r.Context()))
}

func (s *Server) handlePruneNetworks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.docker.PruneNetworks(r.Context()))
}

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	var args api.GitCloneArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil || args.Name == "" || args.RepoURL == "" {
		s.writeError(w, http.StatusBadRequest, "clone needs a name and repo url")
		return
	}
	if args.Branch == "" {
		args.Branch = "main"
	}
	result := s.git.Clone(r.Context(), args)
	s.Logger.Info("repo cloned", "repo", args.Name, "commit", result.Commit)
	s.writeJSON(w, result)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	var args api.GitPullArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil || args.Name == "" {
		s.writeError(w, http.StatusBadRequest, "pull needs a repo name")
		return
	}
	if args.Branch == "" {
		args.Branch = "main"
	}
	result := s.git.Pull(r.Context(), args)
	s.Logger.Info("repo pulled", "repo", args.Name, "commit", result.Commit)
	s.writeJSON(w, result)
}

// handleBuild clones the repo fresh, then builds the image from it.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var args api.BuildArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil || args.Name == "" || args.RepoURL == "" {
		s.writeError(w, http.StatusBadRequest, "build needs a name and repo url")
		return
	}
	if args.Branch == "" {
		args.Branch = "main"
	}
	if args.Version == "" {
		args.Version = "latest"
	}
	if args.DockerfilePath == "" {
		args.DockerfilePath = "Dockerfile"
	}

	buildGit := Git{RootDir: filepath.Join(s.RootDir, "builds")}
	cloneResult := buildGit.Clone(r.Context(), api.GitCloneArgs{
		Name:        args.Name,
		RepoURL:     args.RepoURL,
		Branch:      args.Branch,
		AccessToken: args.AccessToken,
	})
	result := api.BuildResult{Logs: cloneResult.Logs}
	if len(cloneResult.Logs) > 0 && !cloneResult.Logs[0].Success {
		s.writeJSON(w, result)
		return
	}

	buildLog, tag := s.docker.Build(r.Context(), buildGit.repoPath(args.Name), args)
	result.Logs = append(result.Logs, buildLog)
	result.ImageTag = tag
	s.Logger.Info("build finished", "build", args.Name, "tag", tag, "success", buildLog.Success)
	s.writeJSON(w, result)
}
