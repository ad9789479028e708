package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cipherquest/internal/client"
)

// NewWatchCommand creates the watch command
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <user-id>",
		Short: "Follow the leaderboard and a user's progress",
		Long: `Poll the server and print the leaderboard after every sync until
interrupted. The poll interval defaults to POLL_INTERVAL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				interval = rootOpts.cfg.PollInterval
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cmd, rootOpts, rootOpts.newClient(), args[0], interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default $POLL_INTERVAL)")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, opts *RootOptions, api client.API, userID string, interval time.Duration) error {
	out := cmd.OutOrStdout()

	agent := client.NewSyncAgent(api, userID, interval)
	agent.OnSync(func(v client.View) {
		if opts.Format == "text" {
			printSyncHeader(out, v.LastSync)
			solved := 0
			for _, r := range v.Progress {
				if r.Solved {
					solved++
				}
			}
			fmt.Fprintf(out, "%s: %d/%d challenges solved\n", userID, solved, len(v.Progress))
		}
		if err := printLeaderboard(out, opts.Format, v.Leaderboard); err != nil {
			log.Printf("Failed to print leaderboard: %v", err)
		}
	})

	log.Printf("Watching %s every %s (agent %s)", userID, interval, agent.ID())
	agent.Start()
	<-ctx.Done()
	agent.Stop()
	return nil
}
