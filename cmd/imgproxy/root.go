package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"imgproxy/internal/config"
)

// cliState is filled by the root command before any subcommand runs.
type cliState struct {
	configPath string
	logLevel   string
	jsonOutput bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	cmd := &cobra.Command{
		Use:           "imgproxy",
		Short:         "Imgproxy stores images by content hash and serves them through signed, expiring links",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(state.configPath)
			if err != nil {
				return err
			}
			state.cfg = cfg

			warning, err := configureLoggerForCLI(state.logLevel, cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&state.configPath, "config", "", "config file (toml, yaml or json); defaults to $IMGPROXY_CONFIG or ./imgproxy.toml")
	cmd.PersistentFlags().StringVar(&state.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&state.jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(
		newSrvCmd(state),
		newUploadCmd(state),
		newInfoCmd(state),
		newFetchCmd(state),
		newStatsCmd(state),
		newDownloadDBCmd(state),
		newCleanupCmd(state),
		newAdminCmd(state),
		newMigrateCmd(state),
		newConfigCmd(state),
		newKeygenCmd(state),
		newHashPasswordCmd(),
	)

	return cmd
}
