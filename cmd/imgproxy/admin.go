package main

import (
	"github.com/spf13/cobra"

	"imgproxy/internal/api"
	"imgproxy/internal/cleanup"
)

func newAdminCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands against a running server",
	}

	cmd.AddCommand(newAdminCleanupCmd(state))
	return cmd
}

func newAdminCleanupCmd(state *cliState) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Ask the server to sweep expired images now",
		Long:  "Runs as a dry run unless --force is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(state.cfg, func(client *api.Client) error {
				resp, err := client.AdminCleanup(cmd.Context(), api.CleanupRequest{DryRun: !force}, force)
				if err != nil {
					return err
				}
				if state.jsonOutput {
					return writeJSON(resp)
				}
				return writeSweep(cleanup.Result{
					Candidates:     resp.Candidates,
					Deleted:        resp.Deleted,
					MissingBlobs:   resp.MissingBlobs,
					Failed:         resp.Failed,
					ReclaimedBytes: resp.ReclaimedBytes,
					DryRun:         resp.DryRun,
					Hashes:         resp.Hashes,
				})
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "actually delete expired images")
	return cmd
}
