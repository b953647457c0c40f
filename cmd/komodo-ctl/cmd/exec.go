package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/spf13/cobra"
)

func execCommand(use, short string, reqType api.RequestType, paramKey string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewClient()
			var out json.RawMessage
			if err := client.Do(reqType, map[string]string{paramKey: args[0]}, &out); err != nil {
				return err
			}
			PrintJSON(out)
			return nil
		},
	}
}

// statsCmd fetches a server's full stats snapshot.
var statsCmd = &cobra.Command{
	Use:   "stats <server>",
	Short: "Show system stats for a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient()
		var stats api.AllSystemStats
		if err := client.Do(api.TypeGetAllSystemStats, api.GetAllSystemStats{Server: args[0]}, &stats); err != nil {
			return err
		}
		PrintJSON(stats)
		return nil
	},
}

// containersCmd lists the docker containers on a server.
var containersCmd = &cobra.Command{
	Use:   "containers <server>",
	Short: "List docker containers on a server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient()
		var containers []api.BasicContainerInfo
		if err := client.Do(api.TypeGetDockerContainers, api.GetDockerContainers{Server: args[0]}, &containers); err != nil {
			return err
		}
		for _, c := range containers {
			fmt.Printf("%s\t%s\t%s\t%s\n", c.Name, c.Image, c.State, c.Status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCommand("deploy <deployment>", "Deploy a deployment's container", api.TypeDeploy, "deployment"))
	rootCmd.AddCommand(execCommand("start <deployment>", "Start a deployment's container", api.TypeStartContainer, "deployment"))
	rootCmd.AddCommand(execCommand("stop <deployment>", "Stop a deployment's container", api.TypeStopContainer, "deployment"))
	rootCmd.AddCommand(execCommand("build <build>", "Run a build", api.TypeRunBuild, "build"))
	rootCmd.AddCommand(execCommand("clone <repo>", "Clone a repo on its server", api.TypeCloneRepo, "repo"))
	rootCmd.AddCommand(execCommand("pull <repo>", "Pull a repo on its server", api.TypePullRepo, "repo"))
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(containersCmd)
}
