package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cipherquest/internal/client"
	"cipherquest/internal/config"
	"cipherquest/internal/database"
	"cipherquest/internal/repository"
	"cipherquest/internal/service"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	Format string // "json" | "text"
	Server string
	Token  string

	cfg *config.Config
}

// ValidFormats defines the allowed output formats
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the progressctl root command
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "progressctl",
		Short: "Manage cipher puzzle progress",
		Long: `Administer a cipherquest deployment: back up and restore progress,
inspect the leaderboard, mint bearer tokens and follow a user's progress live.

Database settings come from the same environment variables as the server
(DB_TYPE, DB_PATH, DATABASE_URL), optionally loaded from a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.cfg = config.Load()
			if opts.Server == "" {
				opts.Server = opts.cfg.ServerURL
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "API base URL (default $SERVER_URL)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token sent to the API")

	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewLeaderboardCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openBackupService connects to the configured database, brings its schema
// up to date and returns a backup service over it
func openBackupService(ctx context.Context, cfg *config.Config) (*service.BackupService, func(), error) {
	if strings.EqualFold(cfg.DatabaseType, "memory") {
		return nil, nil, fmt.Errorf("backups need a persistent database, DB_TYPE is %q", cfg.DatabaseType)
	}

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	svc := service.NewBackupService(
		repository.NewProgressRepository(db, cfg.StoreTimeout),
		repository.NewUserRepository(db, cfg.StoreTimeout),
		cfg.DatabaseType,
	)
	return svc, func() { db.Close() }, nil
}

func (o *RootOptions) newClient() *client.Client {
	return client.New(o.Server, o.Token, nil, client.DefaultRetryConfig())
}

// commandContext bounds one-shot commands
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 2*time.Minute)
}
