// Package periphery is the core-side client for agents running on
// managed servers. Calls are scoped to one server record; failures are
// reported as upstream agent errors carrying the server's name.
package periphery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
)

const PasskeyHeader = "X-Periphery-Passkey"

const DefaultTimeout = 45 * time.Second

// Client talks to periphery agents. One Client is shared across all
// servers; per-call addressing comes from the server record. Requests
// are never retried, the caller decides how to handle a down agent.
type Client struct {
	http    *http.Client
	passkey string
}

func NewClient(passkey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		passkey: passkey,
	}
}

// ServerClient is a Client bound to one server.
type ServerClient struct {
	client  *Client
	name    string
	address string
}

// For binds the client to a server record.
func (c *Client) For(server *api.Server) *ServerClient {
	return &ServerClient{
		client:  c,
		name:    server.Name,
		address: strings.TrimRight(server.Config.Address, "/"),
	}
}

func (s *ServerClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.address+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.client.passkey != "" {
		req.Header.Set(PasskeyHeader, s.client.passkey)
	}

	resp, err := s.client.http.Do(req)
	if err != nil {
		return api.UpstreamAgentError(s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		message := strings.TrimSpace(string(raw))
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			message = envelope.Error
		}
		return api.UpstreamAgentError(s.name, fmt.Errorf("agent returned %d: %s", resp.StatusCode, message))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return api.UpstreamAgentError(s.name, fmt.Errorf("failed to decode agent response: %w", err))
	}
	return nil
}

func (s *ServerClient) get(ctx context.Context, path string, out any) error {
	return s.do(ctx, http.MethodGet, path, nil, out)
}

func (s *ServerClient) post(ctx context.Context, path string, body, out any) error {
	return s.do(ctx, http.MethodPost, path, body, out)
}

// ==== health / stats ====

func (s *ServerClient) GetVersion(ctx context.Context) (*api.PeripheryVersion, error) {
	out := &api.PeripheryVersion{}
	return out, s.get(ctx, "/version", out)
}

func (s *ServerClient) GetSystemInformation(ctx context.Context) (*api.SystemInformation, error) {
	out := &api.SystemInformation{}
	return out, s.get(ctx, "/system/information", out)
}

func (s *ServerClient) GetAllSystemStats(ctx context.Context) (*api.AllSystemStats, error) {
	out := &api.AllSystemStats{}
	return out, s.get(ctx, "/stats/all", out)
}

func (s *ServerClient) GetBasicSystemStats(ctx context.Context) (*api.BasicSystemStats, error) {
	out := &api.BasicSystemStats{}
	return out, s.get(ctx, "/stats/basic", out)
}

func (s *ServerClient) GetCpuUsage(ctx context.Context) (*api.CPUUsage, error) {
	out := &api.CPUUsage{}
	return out, s.get(ctx, "/stats/cpu", out)
}

func (s *ServerClient) GetDiskUsage(ctx context.Context) (*api.DiskUsage, error) {
	out := &api.DiskUsage{}
	return out, s.get(ctx, "/stats/disk", out)
}

func (s *ServerClient) GetNetworkUsage(ctx context.Context) (*api.NetworkUsage, error) {
	out := &api.NetworkUsage{}
	return out, s.get(ctx, "/stats/network", out)
}

func (s *ServerClient) GetSystemProcesses(ctx context.Context) ([]api.SystemProcess, error) {
	var out []api.SystemProcess
	return out, s.get(ctx, "/stats/processes", &out)
}

func (s *ServerClient) GetSystemComponents(ctx context.Context) ([]api.SystemComponent, error) {
	var out []api.SystemComponent
	return out, s.get(ctx, "/stats/components", &out)
}

// ==== docker ====

func (s *ServerClient) GetContainers(ctx context.Context) ([]api.BasicContainerInfo, error) {
	var out []api.BasicContainerInfo
	return out, s.get(ctx, "/container/list", &out)
}

func (s *ServerClient) GetContainerStats(ctx context.Context, name string) (*api.DockerContainerStats, error) {
	out := &api.DockerContainerStats{}
	return out, s.get(ctx, "/container/stats/"+url.PathEscape(name), out)
}

func (s *ServerClient) GetContainerStatsList(ctx context.Context) ([]api.DockerContainerStats, error) {
	var out []api.DockerContainerStats
	return out, s.get(ctx, "/container/stats/list", &out)
}

func (s *ServerClient) GetImages(ctx context.Context) ([]api.ImageSummary, error) {
	var out []api.ImageSummary
	return out, s.get(ctx, "/image/list", &out)
}

func (s *ServerClient) GetNetworks(ctx context.Context) ([]api.NetworkSummary, error) {
	var out []api.NetworkSummary
	return out, s.get(ctx, "/network/list", &out)
}

func (s *ServerClient) StartContainer(ctx context.Context, name string) (*api.Log, error) {
	out := &api.Log{}
	return out, s.post(ctx, "/container/start", api.ContainerName{Name: name}, out)
}

func (s *ServerClient) StopContainer(ctx context.Context, name string) (*api.Log, error) {
	out := &api.Log{}
	return out, s.post(ctx, "/container/stop", api.ContainerName{Name: name}, out)
}

func (s *ServerClient) RemoveContainer(ctx context.Context, name string) (*api.Log, error) {
	out := &api.Log{}
	return out, s.post(ctx, "/container/remove", api.ContainerName{Name: name}, out)
}

func (s *ServerClient) Deploy(ctx context.Context, args api.DeployArgs) (*api.Log, error) {
	out := &api.Log{}
	return out, s.post(ctx, "/container/deploy", args, out)
}

func (s *ServerClient) PruneContainers(ctx context.Context) (*api.Log, error) {
	out := &api.Log{}
	return out, s.post(ctx, "/container/prune", nil, out)
}

func (s *ServerClient) PruneImages(ctx context.Context) (*api.Log, error) {
	out := &api.Log{}
	return out, s.post(ctx, "/image/prune", nil, out)
}

func (s *ServerClient) PruneNetworks(ctx context.Context) (*api.Log, error) {
	out := &api.Log{}
	return out, s.post(ctx, "/network/prune", nil, out)
}

// ==== git / build ====

func (s *ServerClient) CloneRepo(ctx context.Context, args api.GitCloneArgs) (*api.GitResult, error) {
	out := &api.GitResult{}
	return out, s.post(ctx, "/git/clone", args, out)
}

func (s *ServerClient) PullRepo(ctx context.Context, args api.GitPullArgs) (*api.GitResult, error) {
	out := &api.GitResult{}
	return out, s.post(ctx, "/git/pull", args, out)
}

func (s *ServerClient) Build(ctx context.Context, args api.BuildArgs) (*api.BuildResult, error) {
	out := &api.BuildResult{}
	return out, s.post(ctx, "/build", args, out)
}
