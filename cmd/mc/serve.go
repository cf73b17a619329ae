package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/openclaw/mission-control/config"
	"github.com/openclaw/mission-control/internal/app"
	"github.com/openclaw/mission-control/internal/version"
	"github.com/openclaw/mission-control/prefs"
	"github.com/openclaw/mission-control/tui"
)

var (
	serveConfig string
	prefsPath   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mission control server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadOrDefault(serveConfig)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return app.Run(ctx, cfg, app.NewLogger(os.Stdout, cfg.LogLevel))
	},
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the interactive kanban board",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := prefs.Open(prefsPath, nil)
		if err != nil {
			return err
		}
		if err := p.Watch(cmd.Context()); err != nil {
			return err
		}
		prog := tea.NewProgram(tui.New(apiClient(), p), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := prog.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String("mc"))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := apiClient().Status(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "status:  %v\nversion: %v\nuptime:  %vs\n",
			st["status"], st["version"], st["uptime_seconds"])
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfig, "config", "c", "mission-control.yaml", "path to config file")
	boardCmd.Flags().StringVar(&prefsPath, "prefs", prefs.DefaultPath(), "path to preferences file")
}
