package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"imgproxy/internal/api"
)

func newFetchCmd(state *cliState) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <signed-url>",
		Short: "Download the image behind a signed link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fmt.Errorf("--output is required")
			}
			return withClient(state.cfg, func(client *api.Client) error {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				contentType, err := client.Fetch(cmd.Context(), args[0], f)
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					_ = os.Remove(output)
					return err
				}
				if state.jsonOutput {
					return writeJSON(map[string]string{"path": output, "content_type": contentType})
				}
				return writePlain("saved %s (%s)\n", output, contentType)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file")
	return cmd
}
