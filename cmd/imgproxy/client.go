package main

import (
	"fmt"
	"strings"

	"imgproxy/internal/api"
	"imgproxy/internal/config"
)

func newAPIClient(cfg *config.Config) (*api.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	creds := api.Credentials{Username: cfg.Client.Username, Password: cfg.Client.Password}
	if creds.Username == "" && len(cfg.Users) > 0 {
		creds = api.Credentials{Username: cfg.Users[0].Username, Password: cfg.Users[0].Password}
	}
	return api.NewClient(strings.TrimSpace(cfg.Client.APIURL), creds), nil
}

func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	client, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	return fn(client)
}
