package main

import (
	"fmt"
	"time"

	"github.com/boardwar/backend/internal/config"
	"github.com/boardwar/backend/internal/ws"
	"github.com/spf13/cobra"
)

// newTokenCommand issues a handshake token, for local testing of clients
// against a server running with JWT_SECRET set.
func newTokenCommand() *cobra.Command {
	var (
		userID string
		name   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed WebSocket handshake token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			cfg := config.Load()
			token, err := ws.NewAuthenticator(cfg.JWTSecret).Issue(userID, name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "player id to put in the token subject")
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
