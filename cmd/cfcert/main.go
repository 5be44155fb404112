// Command cfcert manages Cloudflare Origin CA certificates for the
// domains listed in a layered YAML configuration.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cksdxz1007/cloudflare-cert/internal/audit"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultConfigPath = "/etc/cloudflare/config.yaml"

// Global flags
var (
	configPath   string
	verbose      bool
	auditLogPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cfcert",
	Short: "Cloudflare Origin CA certificate lifecycle manager",
	Long: `cfcert issues and renews Cloudflare Origin CA certificates for the
domains listed in its configuration file.

Each domain gets a fresh private key and CSR on every run; the signed
certificate, key and fingerprint are written under the configured
certificate directory, one subdirectory per hostname. Renewals are
normally driven by the cron entries cfcert installs itself.

The Origin CA key (origin_ca_key / CLOUDFLARE_ORIGIN_CA_KEY) is a
service key for the certificates endpoint. It is not an API token:
the optional zone lookup in "domains add" uses a separate scoped
token from CF_API_TOKEN.

Examples:
  # Renew every configured domain
  cfcert update --all

  # Renew one domain with a longer validity
  cfcert update example.com --validity 365

  # Register a new domain and its cron entry
  cfcert domains add example.com --hostnames example.com,www.example.com
  cfcert cron install example.com

  # Inspect what is on disk
  cfcert status`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}

		// Check for audit log path from environment if not set via flag
		if auditLogPath == "" {
			auditLogPath = os.Getenv("CFCERT_AUDIT_LOG")
		}
		if auditLogPath != "" {
			if err := audit.InitFile(auditLogPath); err != nil {
				return fmt.Errorf("failed to initialize audit log: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath,
		"Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set CFCERT_AUDIT_LOG env var)")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(domainsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cronCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(serveCmd)
}
