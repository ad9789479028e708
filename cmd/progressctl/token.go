package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cipherquest/internal/security"
)

// NewTokenCommand creates the token command
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for a user",
		Long: `Mint an HS256 bearer token for a user, signed with JWT_SECRET.

The server accepts it on the progress endpoints for that user only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if ttl <= 0 {
				return fmt.Errorf("invalid ttl %s", ttl)
			}

			token, err := security.NewTokenManager(rootOpts.cfg.JWTSecret).Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
