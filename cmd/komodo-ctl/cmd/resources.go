package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:       "list <servers|deployments|builds|builders|repos>",
	Short:     "List resources of one kind",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"servers", "deployments", "builds", "builders", "repos"},
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		defer w.Flush()

		switch args[0] {
		case "servers":
			var servers []api.Server
			if err := client.Do(api.TypeListServers, api.ListServers{}, &servers); err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tNAME\tADDRESS\tSTATUS\tENABLED")
			for _, server := range servers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
					server.ID, server.Name, server.Config.Address, server.Info.Status, server.Config.Enabled)
			}
		case "deployments":
			var deployments []api.Deployment
			if err := client.Do(api.TypeListDeployments, api.ListDeployments{}, &deployments); err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tNAME\tSERVER\tIMAGE\tSTATE\tLAST DEPLOYED")
			for _, d := range deployments {
				image := d.Config.Image
				if d.Config.BuildID != "" {
					image = "build:" + d.Config.BuildID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.ID, d.Name, d.Config.ServerID, image, d.Info.State, formatTime(d.Info.LastDeployed))
			}
		case "builds":
			var builds []api.Build
			if err := client.Do(api.TypeListBuilds, api.ListBuilds{}, &builds); err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tNAME\tREPO\tBRANCH\tVERSION\tLAST BUILT")
			for _, b := range builds {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					b.ID, b.Name, b.Config.RepoURL, b.Config.Branch, b.Config.Version, formatTime(b.Info.LastBuiltAt))
			}
		case "builders":
			var builders []api.Builder
			if err := client.Do(api.TypeListBuilders, api.ListBuilders{}, &builders); err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tNAME\tSERVER")
			for _, b := range builders {
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.ID, b.Name, b.Config.ServerID)
			}
		case "repos":
			var repos []api.Repo
			if err := client.Do(api.TypeListRepos, api.ListRepos{}, &repos); err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tNAME\tURL\tBRANCH\tCOMMIT")
			for _, r := range repos {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Name, r.Config.RepoURL, r.Config.Branch, r.Info.LatestCommit)
			}
		default:
			return fmt.Errorf("unknown resource kind: %s", args[0])
		}
		return nil
	},
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format(time.RFC3339)
}

var getTypes = map[string]api.RequestType{
	"server":     api.TypeGetServer,
	"deployment": api.TypeGetDeployment,
	"build":      api.TypeGetBuild,
	"builder":    api.TypeGetBuilder,
	"repo":       api.TypeGetRepo,
}

var getParamKeys = map[string]string{
	"server":     "server",
	"deployment": "deployment",
	"build":      "build",
	"builder":    "builder",
	"repo":       "repo",
}

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <kind> <id-or-name>",
	Short: "Get one resource as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reqType, ok := getTypes[args[0]]
		if !ok {
			return fmt.Errorf("unknown resource kind: %s", args[0])
		}
		client := NewClient()
		var out json.RawMessage
		if err := client.Do(reqType, map[string]string{getParamKeys[args[0]]: args[1]}, &out); err != nil {
			return err
		}
		PrintJSON(out)
		return nil
	},
}

var createTypes = map[string]api.RequestType{
	"server":     api.TypeCreateServer,
	"deployment": api.TypeCreateDeployment,
	"build":      api.TypeCreateBuild,
	"builder":    api.TypeCreateBuilder,
	"repo":       api.TypeCreateRepo,
}

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create <kind> <name> [config-json-file]",
	Short: "Create a resource, optionally from a config file",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		reqType, ok := createTypes[args[0]]
		if !ok {
			return fmt.Errorf("unknown resource kind: %s", args[0])
		}

		config := json.RawMessage("{}")
		if len(args) == 3 {
			fileData, err := os.ReadFile(args[2])
			if err != nil {
				return fmt.Errorf("error reading config file: %v", err)
			}
			if !json.Valid(fileData) {
				return fmt.Errorf("config file is not valid json")
			}
			config = fileData
		}

		client := NewClient()
		var out json.RawMessage
		params := map[string]any{"name": args[1], "config": config}
		if err := client.Do(reqType, params, &out); err != nil {
			return err
		}
		PrintJSON(out)
		return nil
	},
}

var deleteTypes = map[string]api.RequestType{
	"server":     api.TypeDeleteServer,
	"deployment": api.TypeDeleteDeployment,
	"build":      api.TypeDeleteBuild,
	"builder":    api.TypeDeleteBuilder,
	"repo":       api.TypeDeleteRepo,
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <kind> <id>",
	Short: "Delete a resource by id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reqType, ok := deleteTypes[args[0]]
		if !ok {
			return fmt.Errorf("unknown resource kind: %s", args[0])
		}
		client := NewClient()
		var out json.RawMessage
		if err := client.Do(reqType, map[string]string{"id": args[1]}, &out); err != nil {
			return err
		}
		fmt.Printf("%s deleted.\n", args[0])
		return nil
	},
}

var updateTypes = map[string]api.RequestType{
	"server":     api.TypeUpdateServer,
	"deployment": api.TypeUpdateDeployment,
	"build":      api.TypeUpdateBuild,
	"builder":    api.TypeUpdateBuilder,
	"repo":       api.TypeUpdateRepo,
}

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update <kind> <id> <config-json-file>",
	Short: "Patch a resource's config from a file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		reqType, ok := updateTypes[args[0]]
		if !ok {
			return fmt.Errorf("unknown resource kind: %s", args[0])
		}
		fileData, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("error reading config file: %v", err)
		}
		if !json.Valid(fileData) {
			return fmt.Errorf("config file is not valid json")
		}

		client := NewClient()
		var out json.RawMessage
		params := map[string]any{"id": args[1], "config": json.RawMessage(fileData)}
		if err := client.Do(reqType, params, &out); err != nil {
			return err
		}
		PrintJSON(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(updateCmd)
}
