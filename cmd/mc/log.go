package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclaw/mission-control/internal/app"
	"github.com/openclaw/mission-control/mcsync"
	"github.com/openclaw/mission-control/store"
)

var (
	logRole   string
	logMeta   []string
	logSecret string

	loginUser     string
	loginPassword string
)

var logCmd = &cobra.Command{
	Use:   "log [message]",
	Short: "Log a conversation message through the webhook",
	Long:  "Sends a message to the webhook the way the chat gateway does. Task-like messages become tasks.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := store.Role(logRole)
		if !role.Valid() {
			return fmt.Errorf("invalid role %q", logRole)
		}
		meta, err := parseMeta(logMeta)
		if err != nil {
			return err
		}

		c := mcsync.New(serverURL, app.NewLogger(os.Stderr, "warn"))
		c.Secret = logSecret
		res := c.Log(cmd.Context(), strings.Join(args, " "), role, meta)
		if res.ConversationID == mcsync.NotLogged {
			return fmt.Errorf("message not logged")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Logged conversation #%d\n", res.ConversationID)
		if res.TaskCreated && res.TaskID != nil {
			fmt.Fprintf(out, "Created task #%d\n", *res.TaskID)
		}
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain an API token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tok, err := apiClient().Login(cmd.Context(), loginUser, loginPassword)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	logCmd.Flags().StringVarP(&logRole, "role", "r", string(store.RoleUser), "Message role: user, assistant, system")
	logCmd.Flags().StringArrayVarP(&logMeta, "meta", "m", nil, "Metadata as key=value (repeatable)")
	logCmd.Flags().StringVar(&logSecret, "secret", os.Getenv("MC_WEBHOOK_SECRET"), "Webhook signing secret (or $MC_WEBHOOK_SECRET)")

	loginCmd.Flags().StringVarP(&loginUser, "user", "u", "admin", "Admin username")
	loginCmd.Flags().StringVar(&loginPassword, "password", os.Getenv("MC_PASSWORD"), "Admin password (or $MC_PASSWORD)")
	rootCmd.AddCommand(loginCmd)
}

func parseMeta(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q (want key=value)", p)
		}
		meta[k] = v
	}
	return meta, nil
}
