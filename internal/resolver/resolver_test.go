package resolver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/marcoraddatz/komodo/internal/credentials"
	"github.com/marcoraddatz/komodo/internal/periphery"
	"github.com/marcoraddatz/komodo/internal/store"
	"github.com/marcoraddatz/komodo/internal/ws"
)

func newTestResolver(t *testing.T) (*Resolver, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	creds, err := credentials.NewServiceWithKey(make([]byte, 32))
	require.NoError(t, err)
	hub := ws.NewHub(
		func(r *http.Request) (api.RequestUser, error) { return api.RequestUser{}, nil },
		func(ctx context.Context, user api.RequestUser, kind api.ResourceKind, id string) bool { return true },
		logger,
	)
	return New(st, periphery.NewClient("", 0), creds, hub, logger), st
}

func seedUser(t *testing.T, st store.Store, user api.User) api.RequestUser {
	t.Helper()
	user.ID = uuid.NewString()
	require.NoError(t, st.CreateUser(context.Background(), &user))
	return api.RequestUser{ID: user.ID, Admin: user.Admin, Enabled: user.Enabled}
}

// call runs one request through Resolve and decodes the result into out.
func call(t *testing.T, r *Resolver, user api.RequestUser, reqType api.RequestType, params any, out any) error {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	result, err := r.Resolve(context.Background(), user, api.Request{Type: reqType, Params: raw})
	if err != nil {
		return err
	}
	if out != nil {
		encoded, err := json.Marshal(result)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(encoded, out))
	}
	return nil
}

func TestCreateServerDefaultsAndConflict(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	var server api.Server
	err := call(t, r, admin, api.TypeCreateServer, api.CreateServer{Name: "prod"}, &server)
	require.NoError(t, err)
	assert.Equal(t, "prod", server.Name)
	assert.True(t, server.Config.Enabled)
	assert.Equal(t, 90.0, server.Config.CPUWarning)
	assert.Equal(t, api.ServerNotOk, server.Info.Status)
	assert.Equal(t, api.PermissionExecute, server.Permissions[admin.ID])

	err = call(t, r, admin, api.TypeCreateServer, api.CreateServer{Name: "prod"}, nil)
	assert.Equal(t, api.ErrConflict, api.KindOf(err))
}

func TestUnknownRequestType(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	_, err := r.Resolve(context.Background(), admin, api.Request{Type: "Bogus"})
	assert.Equal(t, api.ErrInvalidRequest, api.KindOf(err))
}

func TestValidationRejectsMissingParams(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	err := call(t, r, admin, api.TypeGetServer, api.GetServer{}, nil)
	assert.Equal(t, api.ErrInvalidRequest, api.KindOf(err))
}

func TestPermissionFlow(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})
	viewer := seedUser(t, st, api.User{Username: "viewer", Enabled: true})

	var server api.Server
	require.NoError(t, call(t, r, admin, api.TypeCreateServer, api.CreateServer{Name: "prod"}, &server))

	// no grant yet
	err := call(t, r, viewer, api.TypeGetServer, api.GetServer{Server: "prod"}, nil)
	assert.Equal(t, api.ErrPermissionDenied, api.KindOf(err))

	var servers []api.Server
	require.NoError(t, call(t, r, viewer, api.TypeListServers, api.ListServers{}, &servers))
	assert.Empty(t, servers)

	// grant read, retry
	require.NoError(t, call(t, r, admin, api.TypeUpdateUserPermissionsOnTarget, api.UpdateUserPermissionsOnTarget{
		UserID:     viewer.ID,
		Kind:       api.KindServer,
		ResourceID: server.ID,
		Permission: api.PermissionRead,
	}, nil))

	var got api.Server
	require.NoError(t, call(t, r, viewer, api.TypeGetServer, api.GetServer{Server: "prod"}, &got))
	assert.Equal(t, server.ID, got.ID)

	require.NoError(t, call(t, r, viewer, api.TypeListServers, api.ListServers{}, &servers))
	assert.Len(t, servers, 1)

	// read is not write
	err = call(t, r, viewer, api.TypeDeleteServer, api.DeleteServer{ID: server.ID}, nil)
	assert.Equal(t, api.ErrPermissionDenied, api.KindOf(err))
}

func TestUpdateUserPermissionsOnTargetAdminOnly(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})
	regular := seedUser(t, st, api.User{Username: "bob", Enabled: true})

	var server api.Server
	require.NoError(t, call(t, r, admin, api.TypeCreateServer, api.CreateServer{Name: "prod"}, &server))

	err := call(t, r, regular, api.TypeUpdateUserPermissionsOnTarget, api.UpdateUserPermissionsOnTarget{
		UserID:     regular.ID,
		Kind:       api.KindServer,
		ResourceID: server.ID,
		Permission: api.PermissionExecute,
	}, nil)
	assert.Equal(t, api.ErrPermissionDenied, api.KindOf(err))
}

func TestUpdateUserPermissionsGuardsAdmins(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})
	other := seedUser(t, st, api.User{Username: "root2", Admin: true, Enabled: true})

	enabled := false
	err := call(t, r, admin, api.TypeUpdateUserPermissions, api.UpdateUserPermissions{
		UserID:  other.ID,
		Enabled: &enabled,
	}, nil)
	assert.Equal(t, api.ErrPermissionDenied, api.KindOf(err))
}

func TestCreateFlagsGateNonAdmins(t *testing.T) {
	r, st := newTestResolver(t)
	builder := seedUser(t, st, api.User{Username: "builder", Enabled: true, CreateBuilds: true})

	err := call(t, r, builder, api.TypeCreateServer, api.CreateServer{Name: "prod"}, nil)
	assert.Equal(t, api.ErrPermissionDenied, api.KindOf(err))

	err = call(t, r, builder, api.TypeCreateDeployment, api.CreateDeployment{Name: "web"}, nil)
	assert.Equal(t, api.ErrPermissionDenied, api.KindOf(err))

	var build api.Build
	require.NoError(t, call(t, r, builder, api.TypeCreateBuild, api.CreateBuild{Name: "img"}, &build))
	assert.Equal(t, api.PermissionExecute, build.Permissions[builder.ID])
}

func TestUpdateDeploymentRejectsImageAndBuild(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	var deployment api.Deployment
	require.NoError(t, call(t, r, admin, api.TypeCreateDeployment, api.CreateDeployment{Name: "web"}, &deployment))

	image := "nginx:1.25"
	buildID := "some-build"
	err := call(t, r, admin, api.TypeUpdateDeployment, api.UpdateDeployment{
		ID:     deployment.ID,
		Config: api.PartialDeploymentConfig{Image: &image, BuildID: &buildID},
	}, nil)
	assert.Equal(t, api.ErrInvalidRequest, api.KindOf(err))
}

func TestRenameConflict(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	var first, second api.Server
	require.NoError(t, call(t, r, admin, api.TypeCreateServer, api.CreateServer{Name: "prod"}, &first))
	require.NoError(t, call(t, r, admin, api.TypeCreateServer, api.CreateServer{Name: "staging"}, &second))

	err := call(t, r, admin, api.TypeRenameServer, api.RenameServer{ID: second.ID, Name: "prod"}, nil)
	assert.Equal(t, api.ErrConflict, api.KindOf(err))
}

// agentFixture creates a server pointing at an in-process fake agent.
func agentFixture(t *testing.T, r *Resolver, admin api.RequestUser, handler http.Handler) *api.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	var server api.Server
	address := ts.URL
	require.NoError(t, call(t, r, admin, api.TypeCreateServer, api.CreateServer{
		Name:   "prod",
		Config: api.PartialServerConfig{Address: &address},
	}, &server))
	return &server
}

func TestDeployUpdatesInfo(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	var gotArgs api.DeployArgs
	server := agentFixture(t, r, admin, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/container/deploy", req.URL.Path)
		require.NoError(t, json.NewDecoder(req.Body).Decode(&gotArgs))
		json.NewEncoder(w).Encode(api.Log{Stage: "docker run", Success: true})
	}))

	image := "nginx:1.25"
	var deployment api.Deployment
	require.NoError(t, call(t, r, admin, api.TypeCreateDeployment, api.CreateDeployment{
		Name:   "web",
		Config: api.PartialDeploymentConfig{ServerID: &server.ID, Image: &image},
	}, &deployment))

	var log api.Log
	require.NoError(t, call(t, r, admin, api.TypeDeploy, api.Deploy{Deployment: "web"}, &log))
	assert.True(t, log.Success)
	assert.Equal(t, "web", gotArgs.Name)
	assert.Equal(t, "nginx:1.25", gotArgs.Image)

	var after api.Deployment
	require.NoError(t, call(t, r, admin, api.TypeGetDeployment, api.GetDeployment{Deployment: "web"}, &after))
	assert.Equal(t, string(api.ContainerRunning), after.Info.State)
	assert.False(t, after.Info.LastDeployed.IsZero())
}

func TestDeployUnreachableAgent(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {}))
	address := ts.URL
	ts.Close()

	var server api.Server
	require.NoError(t, call(t, r, admin, api.TypeCreateServer, api.CreateServer{
		Name:   "prod",
		Config: api.PartialServerConfig{Address: &address},
	}, &server))

	image := "nginx:1.25"
	require.NoError(t, call(t, r, admin, api.TypeCreateDeployment, api.CreateDeployment{
		Name:   "web",
		Config: api.PartialDeploymentConfig{ServerID: &server.ID, Image: &image},
	}, nil))

	err := call(t, r, admin, api.TypeDeploy, api.Deploy{Deployment: "web"}, nil)
	assert.Equal(t, api.ErrUpstreamAgent, api.KindOf(err))
	assert.Contains(t, err.Error(), "prod")

	// the failure leaves the deployment untouched
	var after api.Deployment
	require.NoError(t, call(t, r, admin, api.TypeGetDeployment, api.GetDeployment{Deployment: "web"}, &after))
	assert.True(t, after.Info.LastDeployed.IsZero())
}

func TestDeployDisabledServer(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	enabled := false
	address := "http://127.0.0.1:1"
	var server api.Server
	require.NoError(t, call(t, r, admin, api.TypeCreateServer, api.CreateServer{
		Name:   "prod",
		Config: api.PartialServerConfig{Address: &address, Enabled: &enabled},
	}, &server))

	image := "nginx:1.25"
	require.NoError(t, call(t, r, admin, api.TypeCreateDeployment, api.CreateDeployment{
		Name:   "web",
		Config: api.PartialDeploymentConfig{ServerID: &server.ID, Image: &image},
	}, nil))

	err := call(t, r, admin, api.TypeDeploy, api.Deploy{Deployment: "web"}, nil)
	assert.Equal(t, api.ErrConflict, api.KindOf(err))
}

func TestDeployNeverBuiltBuild(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	server := agentFixture(t, r, admin, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(api.Log{Success: true})
	}))

	var build api.Build
	require.NoError(t, call(t, r, admin, api.TypeCreateBuild, api.CreateBuild{Name: "img"}, &build))

	require.NoError(t, call(t, r, admin, api.TypeCreateDeployment, api.CreateDeployment{
		Name:   "web",
		Config: api.PartialDeploymentConfig{ServerID: &server.ID, BuildID: &build.ID},
	}, nil))

	err := call(t, r, admin, api.TypeDeploy, api.Deploy{Deployment: "web"}, nil)
	assert.Equal(t, api.ErrConflict, api.KindOf(err))
	assert.Contains(t, err.Error(), "never produced an image")
}

func TestStopContainerRecordsState(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	server := agentFixture(t, r, admin, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/container/stop", req.URL.Path)
		json.NewEncoder(w).Encode(api.Log{Stage: "docker stop", Success: true})
	}))

	image := "nginx:1.25"
	require.NoError(t, call(t, r, admin, api.TypeCreateDeployment, api.CreateDeployment{
		Name:   "web",
		Config: api.PartialDeploymentConfig{ServerID: &server.ID, Image: &image},
	}, nil))

	require.NoError(t, call(t, r, admin, api.TypeStopContainer, api.StopContainer{Deployment: "web"}, nil))

	var after api.Deployment
	require.NoError(t, call(t, r, admin, api.TypeGetDeployment, api.GetDeployment{Deployment: "web"}, &after))
	assert.Equal(t, string(api.ContainerExited), after.Info.State)
}

// buildFixture wires a builder on the fixture server and a build using it.
func buildFixture(t *testing.T, r *Resolver, admin api.RequestUser, server *api.Server) *api.Build {
	t.Helper()
	var builder api.Builder
	require.NoError(t, call(t, r, admin, api.TypeCreateBuilder, api.CreateBuilder{
		Name:   "default",
		Config: api.PartialBuilderConfig{ServerID: &server.ID},
	}, &builder))

	url := "https://github.com/example/app"
	var build api.Build
	require.NoError(t, call(t, r, admin, api.TypeCreateBuild, api.CreateBuild{
		Name:   "img",
		Config: api.PartialBuildConfig{RepoURL: &url, BuilderID: &builder.ID},
	}, &build))
	return &build
}

func TestRunBuildRecordsVersion(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	server := agentFixture(t, r, admin, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/build", req.URL.Path)
		json.NewEncoder(w).Encode(api.BuildResult{
			Logs:     []api.Log{{Stage: "docker build", Success: true}},
			ImageTag: "img:latest",
		})
	}))
	buildFixture(t, r, admin, server)

	var result api.BuildResult
	require.NoError(t, call(t, r, admin, api.TypeRunBuild, api.RunBuild{Build: "img"}, &result))
	assert.Equal(t, "img:latest", result.ImageTag)

	var after api.Build
	require.NoError(t, call(t, r, admin, api.TypeGetBuild, api.GetBuild{Build: "img"}, &after))
	assert.Equal(t, "latest", after.Info.LastVersion)
	assert.False(t, after.Info.LastBuiltAt.IsZero())
}

func TestRunBuildFailureLeavesInfoUntouched(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	// the agent reports a failed build as a 200 with Success:false logs
	// and no image tag
	server := agentFixture(t, r, admin, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(api.BuildResult{
			Logs: []api.Log{{Stage: "docker build", Success: false}},
		})
	}))
	build := buildFixture(t, r, admin, server)

	var result api.BuildResult
	require.NoError(t, call(t, r, admin, api.TypeRunBuild, api.RunBuild{Build: "img"}, &result))
	assert.Empty(t, result.ImageTag)

	var after api.Build
	require.NoError(t, call(t, r, admin, api.TypeGetBuild, api.GetBuild{Build: "img"}, &after))
	assert.Empty(t, after.Info.LastVersion)
	assert.True(t, after.Info.LastBuiltAt.IsZero())

	// a deployment bound to the build still refuses to resolve an image
	require.NoError(t, call(t, r, admin, api.TypeCreateDeployment, api.CreateDeployment{
		Name:   "web",
		Config: api.PartialDeploymentConfig{ServerID: &server.ID, BuildID: &build.ID},
	}, nil))
	err := call(t, r, admin, api.TypeDeploy, api.Deploy{Deployment: "web"}, nil)
	assert.Equal(t, api.ErrConflict, api.KindOf(err))
}

func TestDeployFailureLeavesStateUntouched(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	server := agentFixture(t, r, admin, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(api.Log{Stage: "pull image", Success: false})
	}))

	image := "nginx:1.25"
	require.NoError(t, call(t, r, admin, api.TypeCreateDeployment, api.CreateDeployment{
		Name:   "web",
		Config: api.PartialDeploymentConfig{ServerID: &server.ID, Image: &image},
	}, nil))

	var log api.Log
	require.NoError(t, call(t, r, admin, api.TypeDeploy, api.Deploy{Deployment: "web"}, &log))
	assert.False(t, log.Success)

	var after api.Deployment
	require.NoError(t, call(t, r, admin, api.TypeGetDeployment, api.GetDeployment{Deployment: "web"}, &after))
	assert.Empty(t, after.Info.State)
	assert.True(t, after.Info.LastDeployed.IsZero())
}

func TestStopContainerFailureKeepsState(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	server := agentFixture(t, r, admin, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/container/deploy":
			json.NewEncoder(w).Encode(api.Log{Stage: "docker run", Success: true})
		case "/container/stop":
			json.NewEncoder(w).Encode(api.Log{Stage: "docker stop", Success: false})
		}
	}))

	image := "nginx:1.25"
	require.NoError(t, call(t, r, admin, api.TypeCreateDeployment, api.CreateDeployment{
		Name:   "web",
		Config: api.PartialDeploymentConfig{ServerID: &server.ID, Image: &image},
	}, nil))
	require.NoError(t, call(t, r, admin, api.TypeDeploy, api.Deploy{Deployment: "web"}, nil))

	require.NoError(t, call(t, r, admin, api.TypeStopContainer, api.StopContainer{Deployment: "web"}, nil))

	var after api.Deployment
	require.NoError(t, call(t, r, admin, api.TypeGetDeployment, api.GetDeployment{Deployment: "web"}, &after))
	assert.Equal(t, string(api.ContainerRunning), after.Info.State)
}

func TestCreateDeploymentRejectsImageAndBuild(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	image := "nginx:1.25"
	buildID := "some-build"
	err := call(t, r, admin, api.TypeCreateDeployment, api.CreateDeployment{
		Name:   "web",
		Config: api.PartialDeploymentConfig{Image: &image, BuildID: &buildID},
	}, nil)
	assert.Equal(t, api.ErrInvalidRequest, api.KindOf(err))
}

func TestContainerStatsRoundTrip(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	agentFixture(t, r, admin, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/container/stats/list":
			json.NewEncoder(w).Encode([]api.DockerContainerStats{
				{Name: "web", CPUPerc: "1.2%"},
				{Name: "worker", CPUPerc: "0.4%"},
			})
		case "/container/stats/web":
			json.NewEncoder(w).Encode(api.DockerContainerStats{Name: "web", CPUPerc: "1.2%", MemPerc: "3.4%"})
		default:
			t.Errorf("unexpected agent path %s", req.URL.Path)
		}
	}))

	var all []api.DockerContainerStats
	require.NoError(t, call(t, r, admin, api.TypeGetContainerStatsList, api.GetContainerStatsList{Server: "prod"}, &all))
	require.Len(t, all, 2)
	assert.Equal(t, "web", all[0].Name)

	var one api.DockerContainerStats
	require.NoError(t, call(t, r, admin, api.TypeGetContainerStats, api.GetContainerStats{Server: "prod", Container: "web"}, &one))
	assert.Equal(t, "3.4%", one.MemPerc)
}

func TestPruneImagesIsRepeatable(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	calls := 0
	agentFixture(t, r, admin, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/image/prune", req.URL.Path)
		calls++
		json.NewEncoder(w).Encode(api.Log{Stage: "prune images", Success: true})
	}))

	// pruning an already pruned host is a no-op, not an error
	var first, second api.Log
	require.NoError(t, call(t, r, admin, api.TypePruneImages, api.PruneImages{Server: "prod"}, &first))
	require.NoError(t, call(t, r, admin, api.TypePruneImages, api.PruneImages{Server: "prod"}, &second))
	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.Equal(t, 2, calls)
}

func TestRepoAccessTokenRoundTrip(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	url := "https://github.com/example/app"
	var repo api.Repo
	require.NoError(t, call(t, r, admin, api.TypeCreateRepo, api.CreateRepo{
		Name:           "app",
		Config:         api.PartialRepoConfig{RepoURL: &url},
		GitAccessToken: "ghp_secret",
	}, &repo))

	// token lands encrypted, never in the resource document
	cred, err := st.GetResourceCredential(context.Background(), api.KindRepo, repo.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(cred.TokenCiphertext), "ghp_secret")

	token, err := r.loadAccessToken(context.Background(), api.KindRepo, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", token)

	// deleting the repo sweeps the credential
	require.NoError(t, call(t, r, admin, api.TypeDeleteRepo, api.DeleteRepo{ID: repo.ID}, nil))
	_, err = st.GetResourceCredential(context.Background(), api.KindRepo, repo.ID)
	assert.ErrorIs(t, err, store.ErrCredentialNotFound)
}

func TestGetFallsBackToName(t *testing.T) {
	r, st := newTestResolver(t)
	admin := seedUser(t, st, api.User{Username: "admin", Admin: true, Enabled: true})

	var server api.Server
	require.NoError(t, call(t, r, admin, api.TypeCreateServer, api.CreateServer{Name: "prod"}, &server))

	var byID, byName api.Server
	require.NoError(t, call(t, r, admin, api.TypeGetServer, api.GetServer{Server: server.ID}, &byID))
	require.NoError(t, call(t, r, admin, api.TypeGetServer, api.GetServer{Server: "prod"}, &byName))
	assert.Equal(t, byID.ID, byName.ID)

	err := call(t, r, admin, api.TypeGetServer, api.GetServer{Server: "missing"}, nil)
	assert.Equal(t, api.ErrNotFound, api.KindOf(err))
}
