package main

import (
	"fmt"

	"github.com/cksdxz1007/cloudflare-cert/internal/config"
)

// loadConfig reads the configuration file and fills credential gaps
// from the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	creds, err := config.CredentialsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("reading credentials from environment: %w", err)
	}
	cfg.ApplyCredentials(creds)

	return cfg, nil
}
