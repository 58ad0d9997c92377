package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"imgproxy/internal/config"
)

const keygenBytes = 32

func newKeygenCmd(state *cliState) *cobra.Command {
	var (
		encoding string
		write    bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random secret key for signing links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := generateSecretKey(encoding)
			if err != nil {
				return err
			}
			if !write {
				return writePlain("%s\n", key)
			}

			path, err := writableConfigPath(state)
			if err != nil {
				return err
			}
			if err := config.SetKey(path, "security.secret_key", key); err != nil {
				return err
			}
			return writePlain("wrote security.secret_key to %s\n", path)
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", "base64", "key encoding: base64 or hex")
	cmd.Flags().BoolVar(&write, "write", false, "store the key in the TOML config file instead of printing it")
	return cmd
}

func generateSecretKey(encoding string) (string, error) {
	buf := make([]byte, keygenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	switch encoding {
	case "base64":
		return base64.RawURLEncoding.EncodeToString(buf), nil
	case "hex":
		return hex.EncodeToString(buf), nil
	default:
		return "", fmt.Errorf("unknown encoding %q (want base64 or hex)", encoding)
	}
}
