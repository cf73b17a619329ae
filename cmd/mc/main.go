// Command mc is the mission control CLI: it runs the server, opens the
// terminal board and manages tasks over the API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openclaw/mission-control/client"
)

var (
	serverURL string
	token     string
)

var rootCmd = &cobra.Command{
	Use:           "mc",
	Short:         "Mission control dashboard",
	Long:          "mc runs the mission control server, opens the kanban board in the terminal and logs conversations.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("MC_SERVER", client.DefaultServer), "mission control server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("MC_TOKEN"), "JWT auth token (or $MC_TOKEN)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func apiClient() *client.Client {
	return client.New(serverURL, token)
}
