package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quiz-duel-service/internal/config"
	transport "quiz-duel-service/internal/transport/http"
)

// NewTokenCmd mints a player token signed with the configured secret, for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		player string
		name   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a player JWT",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			token, err := transport.IssueToken(cfg.Auth.JWTSecret, player, name, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&player, "player", "", "player id (token subject)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("player")
	return cmd
}
