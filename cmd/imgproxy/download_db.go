package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imgproxy/internal/api"
)

func newDownloadDBCmd(state *cliState) *cobra.Command {
	var (
		output   string
		compress bool
	)

	cmd := &cobra.Command{
		Use:   "download-db",
		Short: "Download a consistent snapshot of the server database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = "images.db"
				if compress {
					output += ".zst"
				}
			}
			return withClient(state.cfg, func(client *api.Client) error {
				f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return err
				}
				n, err := client.DownloadDB(cmd.Context(), f, compress)
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					_ = os.Remove(output)
					return fmt.Errorf("download database: %w", err)
				}
				if state.jsonOutput {
					return writeJSON(map[string]any{"path": output, "bytes": n, "compressed": compress})
				}
				return writePlain("saved %s (%s)\n", output, humanize.IBytes(uint64(n)))
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default images.db or images.db.zst)")
	cmd.Flags().BoolVar(&compress, "zstd", false, "request a zstd-compressed snapshot")
	return cmd
}
