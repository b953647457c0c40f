package cmd

import (
	"fmt"

	"github.com/marcoraddatz/komodo/internal/api"
	"github.com/spf13/cobra"
)

var (
	loginUsername string
	loginPassword string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with username and password, printing a JWT",
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginUsername == "" || loginPassword == "" {
			return fmt.Errorf("--username and --password are required")
		}
		client := NewClient()
		var resp api.JwtResponse
		err := client.Post("/auth/local/login", map[string]string{
			"username": loginUsername,
			"password": loginPassword,
		}, &resp)
		if err != nil {
			return err
		}
		fmt.Println(resp.Token)
		return nil
	},
}

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new local user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginUsername == "" || loginPassword == "" {
			return fmt.Errorf("--username and --password are required")
		}
		client := NewClient()
		var resp api.JwtResponse
		err := client.Post("/auth/local/register", map[string]string{
			"username": loginUsername,
			"password": loginPassword,
		}, &resp)
		if err != nil {
			return err
		}
		fmt.Println(resp.Token)
		return nil
	},
}

// secretCmd mints an api key/secret pair for the logged-in user.
var secretCmd = &cobra.Command{
	Use:   "create-secret <name>",
	Short: "Create an API key/secret pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient()
		var created api.CreatedLoginSecret
		if err := client.Do(api.TypeCreateLoginSecret, api.CreateLoginSecret{Name: args[0]}, &created); err != nil {
			return err
		}
		PrintJSON(created)
		fmt.Println("Store the secret now, it is not shown again.")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVar(&loginUsername, "username", "", "Username")
		c.Flags().StringVar(&loginPassword, "password", "", "Password")
	}
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(secretCmd)
}
