package main

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imgproxy/internal/cleanup"
	"imgproxy/internal/clock"
)

func newCleanupCmd(state *cliState) *cobra.Command {
	var (
		dryRun     bool
		expireDays int
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired images from the local database and blob directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := state.cfg
			if expireDays > 0 {
				cfg.Cleanup.ExpireDays = expireDays
			}
			if cfg.Cleanup.ExpireDays < 1 {
				return fmt.Errorf("expire days must be >= 1")
			}

			local, err := openExclusive(cfg, clock.Real(), slog.Default())
			if err != nil {
				return err
			}
			defer local.Close()

			result, err := local.sweeper.SweepNow(cmd.Context(), cfg.Retention(), dryRun)
			if state.jsonOutput {
				if writeErr := writeJSON(result); writeErr != nil {
					return writeErr
				}
				return err
			}
			if writeErr := writeSweep(result); writeErr != nil {
				return writeErr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list expired images without deleting them")
	cmd.Flags().IntVar(&expireDays, "expire-days", 0, "override the configured retention in days")
	return cmd
}

func writeSweep(result cleanup.Result) error {
	if result.DryRun {
		if err := writePlain("dry run: %d expired images would be removed (%s)\n",
			result.Candidates, humanize.IBytes(uint64(result.ReclaimedBytes))); err != nil {
			return err
		}
	} else {
		if err := writePlain("removed %d of %d expired images, reclaimed %s\n",
			result.Deleted, result.Candidates, humanize.IBytes(uint64(result.ReclaimedBytes))); err != nil {
			return err
		}
		if result.MissingBlobs > 0 {
			_ = writePlain("warning: %d records had no blob on disk\n", result.MissingBlobs)
		}
		if result.Failed > 0 {
			_ = writePlain("warning: %d images could not be removed\n", result.Failed)
		}
	}
	for _, hash := range result.Hashes {
		if err := writePlain("  %s\n", hash); err != nil {
			return err
		}
	}
	return nil
}
