package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export users and progress to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			// Generate default filename if not provided
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}

			// Ensure directory exists
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			svc, closeDB, err := openBackupService(ctx, rootOpts.cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			log.Printf("Exporting progress to: %s", output)
			if err := svc.Export(ctx, output); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			if info, err := os.Stat(output); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Export complete: %s (%.2f KB)\n", output, float64(info.Size())/1024)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

// NewImportCommand creates the import command
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Merge a JSON backup into the database",
		Long: `Merge a JSON backup into the database.

Records are merged, never overwritten: attempts keep the larger count and
a solved challenge stays solved. The whole file is validated before
anything is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("input file: %w", err)
			}

			svc, closeDB, err := openBackupService(ctx, rootOpts.cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			log.Printf("Importing progress from: %s", input)
			stats, err := svc.Import(ctx, input)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Import complete: %d users, %d progress records\n", stats.Users, stats.Progress)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input file path")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
