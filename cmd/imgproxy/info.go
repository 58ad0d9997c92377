package main

import (
	"github.com/spf13/cobra"

	"imgproxy/internal/api"
)

func newInfoCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "info <hash>",
		Short: "Show an image record and a fresh signed link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(state.cfg, func(client *api.Client) error {
				resp, err := client.Info(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if state.jsonOutput {
					return writeJSON(resp)
				}
				return writeImage(resp)
			})
		},
	}
}
