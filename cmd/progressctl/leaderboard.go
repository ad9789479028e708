package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cipherquest/internal/models"
)

// NewLeaderboardCommand creates the leaderboard command
func NewLeaderboardCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the current leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			entries, err := rootOpts.newClient().Leaderboard(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to fetch leaderboard: %w", err)
			}
			return printLeaderboard(cmd.OutOrStdout(), rootOpts.Format, entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the top n entries (0 for all)")
	return cmd
}

func printLeaderboard(w io.Writer, format string, entries []models.LeaderboardEntry) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No progress recorded yet")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUSER\tSCORE\tSOLVED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", e.Rank, e.Username, e.Score, e.Solved)
	}
	return tw.Flush()
}

func printSyncHeader(w io.Writer, at time.Time) {
	fmt.Fprintf(w, "\n-- synced %s --\n", at.Local().Format(time.TimeOnly))
}
