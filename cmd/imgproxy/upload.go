package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"imgproxy/internal/api"
	"imgproxy/internal/blobstore"
	"imgproxy/internal/models"
)

func newUploadCmd(state *cliState) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload images and print their signed links",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name applies to a single file")
			}

			return withClient(state.cfg, func(client *api.Client) error {
				results := make([]api.ImageResponse, 0, len(args))
				for _, path := range args {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					display := name
					if display == "" {
						display = filepath.Base(path)
					}

					resp, err := uploadIfMissing(cmd, client, display, data)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					results = append(results, resp)
				}

				if state.jsonOutput {
					if len(results) == 1 {
						return writeJSON(results[0])
					}
					return writeJSON(results)
				}
				for i, resp := range results {
					if i > 0 {
						_ = writePlain("\n")
					}
					if err := writeImage(resp); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name stored with the image (default: file name)")
	return cmd
}

// uploadIfMissing asks for the content hash first so already-stored bytes
// are not sent again.
func uploadIfMissing(cmd *cobra.Command, client *api.Client, name string, data []byte) (api.ImageResponse, error) {
	hash := blobstore.Digest(data)
	resp, err := client.Info(cmd.Context(), hash)
	if err == nil {
		resp.Status = string(models.UploadStatusExisting)
		return resp, nil
	}

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || (apiErr.Status != http.StatusNotFound && apiErr.Status != http.StatusGone) {
		return api.ImageResponse{}, err
	}
	return client.Upload(cmd.Context(), name, bytes.NewReader(data))
}
