package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/marcoraddatz/komodo/internal/api"
)

// Docker drives the host docker daemon through the CLI.
type Docker struct{}

func dockerOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("docker %s failed: %s", args[0], strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func parseState(state string) api.ContainerState {
	switch api.ContainerState(strings.ToLower(state)) {
	case api.ContainerRunning, api.ContainerExited, api.ContainerCreated,
		api.ContainerRestarting, api.ContainerPaused, api.ContainerDead:
		return api.ContainerState(strings.ToLower(state))
	default:
		return api.ContainerUnknown
	}
}

// ListContainers returns every container on the host, running or not.
func (d Docker) ListContainers(ctx context.Context) ([]api.BasicContainerInfo, error) {
	out, err := dockerOutput(ctx, "ps", "-a", "--no-trunc", "--format", "{{json .}}")
	if err != nil {
		return nil, err
	}

	containers := []api.BasicContainerInfo{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var row struct {
			ID     string `json:"ID"`
			Names  string `json:"Names"`
			Image  string `json:"Image"`
			State  string `json:"State"`
			Status string `json:"Status"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			continue
		}
		containers = append(containers, api.BasicContainerInfo{
			ID:     row.ID,
			Name:   strings.TrimPrefix(row.Names, "/"),
			Image:  row.Image,
			State:  parseState(row.State),
			Status: row.Status,
		})
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].Name < containers[j].Name })
	return containers, scanner.Err()
}

// ListImages returns the host's image listing.
func (d Docker) ListImages(ctx context.Context) ([]api.ImageSummary, error) {
	out, err := dockerOutput(ctx, "image", "ls", "--format", "{{json .}}")
	if err != nil {
		return nil, err
	}

	images := []api.ImageSummary{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		var row struct {
			ID         string `json:"ID"`
			Repository string `json:"Repository"`
			Tag        string `json:"Tag"`
			Size       string `json:"Size"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			continue
		}
		images = append(images, api.ImageSummary{
			ID:         row.ID,
			Repository: row.Repository,
			Tag:        row.Tag,
			Size:       row.Size,
		})
	}
	return images, scanner.Err()
}

// ListNetworks returns the host's docker networks.
func (d Docker) ListNetworks(ctx context.Context) ([]api.NetworkSummary, error) {
	out, err := dockerOutput(ctx, "network", "ls", "--format", "{{json .}}")
	if err != nil {
		return nil, err
	}

	networks := []api.NetworkSummary{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		var row struct {
			ID     string `json:"ID"`
			Name   string `json:"Name"`
			Driver string `json:"Driver"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			continue
		}
		networks = append(networks, api.NetworkSummary{ID: row.ID, Name: row.Name, Driver: row.Driver})
	}
	return networks, scanner.Err()
}

func parseContainerStats(out []byte) ([]api.DockerContainerStats, error) {
	stats := []api.DockerContainerStats{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		var row struct {
			Name     string `json:"Name"`
			CPUPerc  string `json:"CPUPerc"`
			MemPerc  string `json:"MemPerc"`
			MemUsage string `json:"MemUsage"`
			NetIO    string `json:"NetIO"`
			BlockIO  string `json:"BlockIO"`
			PIDs     string `json:"PIDs"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			continue
		}
		stats = append(stats, api.DockerContainerStats{
			Name:     row.Name,
			CPUPerc:  row.CPUPerc,
			MemPerc:  row.MemPerc,
			MemUsage: row.MemUsage,
			NetIO:    row.NetIO,
			BlockIO:  row.BlockIO,
			PIDs:     row.PIDs,
		})
	}
	return stats, scanner.Err()
}

// ContainerStats samples one container with `docker stats --no-stream`.
func (d Docker) ContainerStats(ctx context.Context, name string) (*api.DockerContainerStats, error) {
	out, err := dockerOutput(ctx, "stats", "--no-stream", "--format", "{{json .}}", name)
	if err != nil {
		return nil, err
	}
	stats, err := parseContainerStats(out)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("no stats reported for container %s", name)
	}
	return &stats[0], nil
}

// ContainerStatsList samples every running container on the host.
func (d Docker) ContainerStatsList(ctx context.Context) ([]api.DockerContainerStats, error) {
	out, err := dockerOutput(ctx, "stats", "--no-stream", "--format", "{{json .}}")
	if err != nil {
		return nil, err
	}
	return parseContainerStats(out)
}

func (d Docker) StartContainer(ctx context.Context, name string) api.Log {
	return runCommand(ctx, "start container", "", nil, "docker", "start", name)
}

func (d Docker) StopContainer(ctx context.Context, name string) api.Log {
	return runCommand(ctx, "stop container", "", nil, "docker", "stop", name)
}

func (d Docker) RemoveContainer(ctx context.Context, name string) api.Log {
	return runCommand(ctx, "remove container", "", nil, "docker", "rm", "-f", name)
}

func (d Docker) PruneContainers(ctx context.Context) api.Log {
	return runCommand(ctx, "prune containers", "", nil, "docker", "container", "prune", "-f")
}

func (d Docker) PruneImages(ctx context.Context) api.Log {
	return runCommand(ctx, "prune images", "", nil, "docker", "image", "prune", "-a", "-f")
}

func (d Docker) PruneNetworks(ctx context.Context) api.Log {
	return runCommand(ctx, "prune networks", "", nil, "docker", "network", "prune", "-f")
}

// runArgs expands a deployment config into `docker run` arguments.
func runArgs(args api.DeployArgs) []string {
	config := args.Config
	image := args.Image
	if image == "" {
		image = config.Image
	}

	run := []string{"run", "-d", "--name", args.Name}
	if config.RestartMode != "" {
		run = append(run, "--restart", string(config.RestartMode))
	}
	if config.Network != "" {
		run = append(run, "--network", config.Network)
	}
	for _, port := range config.Ports {
		run = append(run, "-p", port)
	}
	for _, volume := range config.Volumes {
		run = append(run, "-v", volume)
	}
	envKeys := make([]string, 0, len(config.Environment))
	for key := range config.Environment {
		envKeys = append(envKeys, key)
	}
	sort.Strings(envKeys)
	for _, key := range envKeys {
		run = append(run, "-e", fmt.Sprintf("%s=%s", key, config.Environment[key]))
	}
	run = append(run, config.ExtraArgs...)
	return append(run, image)
}

// Deploy pulls the image, replaces any existing container of the same
// name, and starts the new one. The logs of every step are returned even
// when a later step fails.
func (d Docker) Deploy(ctx context.Context, args api.DeployArgs) api.Log {
	image := args.Image
	if image == "" {
		image = args.Config.Image
	}

	if pull := runCommand(ctx, "pull image", "", nil, "docker", "pull", image); !pull.Success {
		return pull
	}

	// An existing container with this name is expected on redeploys.
	runCommand(ctx, "remove old container", "", nil, "docker", "rm", "-f", args.Name)

	return runCommand(ctx, "run container", "", nil, "docker", runArgs(args)...)
}

// Build produces name:version from an already cloned repo directory.
func (d Docker) Build(ctx context.Context, dir string, args api.BuildArgs) (api.Log, string) {
	tag := fmt.Sprintf("%s:%s", args.Name, args.Version)
	build := []string{"build", "-t", tag, "-f", args.DockerfilePath}

	argKeys := make([]string, 0, len(args.BuildArgs))
	for key := range args.BuildArgs {
		argKeys = append(argKeys, key)
	}
	sort.Strings(argKeys)
	for _, key := range argKeys {
		build = append(build, "--build-arg", fmt.Sprintf("%s=%s", key, args.BuildArgs[key]))
	}
	build = append(build, ".")

	log := runCommand(ctx, "docker build", dir, nil, "docker", build...)
	if !log.Success {
		return log, ""
	}
	return log, tag
}
