package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"imgproxy/internal/config"
)

func newConfigCmd(state *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get, set or check configuration",
	}

	cmd.AddCommand(newConfigGetCmd(state))
	cmd.AddCommand(newConfigSetCmd(state))
	cmd.AddCommand(newConfigCheckCmd(state))
	return cmd
}

func newConfigGetCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !config.IsAllowedKey(key) {
				return fmt.Errorf("unknown key: %s (allowed: %v)", key, config.AllowedKeys())
			}
			value, err := state.cfg.Get(key)
			if err != nil {
				return err
			}
			return writePlain("%s\n", value)
		},
	}
}

func newConfigSetCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value in the TOML config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := writableConfigPath(state)
			if err != nil {
				return err
			}
			if err := config.SetKey(path, args[0], args[1]); err != nil {
				return err
			}
			return writePlain("updated %s in %s\n", args[0], path)
		},
	}
}

func newConfigCheckCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := state.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			source := state.cfg.SourcePath
			if source == "" {
				source = "defaults and environment"
			}
			return writePlain("configuration OK (%s)\n", source)
		},
	}
}

// writableConfigPath picks the loaded file when it is TOML, otherwise the
// per-user default.
func writableConfigPath(state *cliState) (string, error) {
	for _, candidate := range []string{state.configPath, state.cfg.SourcePath} {
		if candidate != "" && strings.EqualFold(filepath.Ext(candidate), ".toml") {
			return candidate, nil
		}
	}
	return config.DefaultPath()
}
