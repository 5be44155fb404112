package main

import (
	"github.com/spf13/cobra"

	"github.com/cksdxz1007/cloudflare-cert/internal/api/server"
)

// Serve command flags
var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only status API",
	Long: `Start an HTTP server exposing the configured domains and their
stored certificate state.

The API is read-only: it never issues certificates, renewals stay on
the cron path. It binds to loopback by default and carries no
authentication; keep it there unless something upstream provides it.

Endpoints:
  GET /health
  GET /ready
  GET /api/v1/domains
  GET /api/v1/domains/{domain}

Examples:
  cfcert serve
  cfcert serve --port 9000 --config ./config.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default 127.0.0.1)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8077)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := server.DefaultConfig()
	cfg.ConfigPath = configPath
	if serveHost != "" {
		cfg.Host = serveHost
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	return server.New(cfg, version).Start()
}
