package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imgproxy/internal/api"
	"imgproxy/internal/clock"
	"imgproxy/internal/format"
)

func newStatsCmd(state *cliState) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show image and database statistics",
		Long:  "Reads the local database by default; --remote asks the configured server instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.StatsResponse
			if remote {
				err := withClient(state.cfg, func(client *api.Client) error {
					var err error
					resp, err = client.Stats(cmd.Context())
					return err
				})
				if err != nil {
					return err
				}
			} else {
				if _, err := os.Stat(state.cfg.DBPath); err != nil {
					return fmt.Errorf("database %s: %w", state.cfg.DBPath, err)
				}
				local, err := openLocal(state.cfg, clock.Real(), slog.Default())
				if err != nil {
					return err
				}
				defer local.Close()

				stats, err := local.store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				resp = api.StatsResponse{
					TotalImages:     stats.TotalRecords,
					TotalAccesses:   stats.TotalAccesses,
					TotalBytes:      stats.TotalBytes,
					DBFileSizeBytes: stats.DBFileSizeBytes,
					SchemaVersion:   stats.SchemaVersion,
					RetentionDays:   state.cfg.Cleanup.ExpireDays,
				}
				if stats.NewestRecord != nil {
					resp.NewestRecord = &api.NewestRecord{
						Name:      stats.NewestRecord.Name,
						CreatedAt: stats.NewestRecord.CreatedAt.Unix(),
					}
				}
			}

			if state.jsonOutput {
				return writeJSON(resp)
			}
			return writeStats(resp)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "query the server instead of the local database")
	return cmd
}

func writeStats(resp api.StatsResponse) error {
	fields := []format.KV{
		format.Field("total_images", humanize.Comma(resp.TotalImages)),
		format.Field("total_accesses", humanize.Comma(resp.TotalAccesses)),
		format.Field("total_bytes", humanize.IBytes(uint64(resp.TotalBytes))),
		format.Field("db_file_size", humanize.IBytes(uint64(resp.DBFileSizeBytes))),
		format.Field("schema_version", fmt.Sprint(resp.SchemaVersion)),
		format.Field("retention_days", fmt.Sprint(resp.RetentionDays)),
	}
	if resp.NewestRecord != nil {
		created := time.Unix(resp.NewestRecord.CreatedAt, 0)
		fields = append(fields,
			format.Field("newest", resp.NewestRecord.Name),
			format.Field("newest_created", fmt.Sprintf("%s (%s)", formatTime(created), humanize.Time(created))),
		)
	}
	return writePlain("%s\n", format.Lines(fields...))
}
