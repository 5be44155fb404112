package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cksdxz1007/cloudflare-cert/internal/audit"
	"github.com/cksdxz1007/cloudflare-cert/internal/migrate"
)

// Migrate command flags
var (
	migrateEnvPath string
	migrateCertDir string
	migrateCronDir string
	migrateDryRun  bool
	migrateForce   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate a v1 installation to the v2 layout",
	Long: `Migrate a v1 installation (single-domain env file) to the v2 YAML
configuration and per-domain artifact layout.

The v1 env file supplies CLOUDFLARE_ORIGIN_CA_KEY, CERT_DOMAIN,
CERT_HOSTNAME (space-separated), CF_ZONE_ID and NOTIFICATION_EMAIL.
Artifacts move from {base}/{hostname}/{hostname}.{ext} to
{base}/{domain}/{hostname}/{domain}.{hostname}.{ext}; byte-identical
targets are skipped and originals are never deleted. The legacy cron
entry is backed up and replaced by a per-domain one.

Examples:
  cfcert migrate --dry-run
  cfcert migrate
  cfcert migrate --env-file /etc/cloudflare/env --force`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateEnvPath, "env-file", "",
		"Path to the v1 env file (default "+migrate.DefaultEnvPath+")")
	migrateCmd.Flags().StringVar(&migrateCertDir, "cert-dir", "",
		"Certificate base directory holding the v1 artifacts")
	migrateCmd.Flags().StringVar(&migrateCronDir, "cron-dir", "",
		"Cron drop-in directory")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false,
		"Print the migration plan without changing anything")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false,
		"Overwrite an existing v2 config (a timestamped backup is kept)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command, err := os.Executable()
	if err != nil {
		command = "cfcert"
	}

	opts := migrate.Options{
		EnvPath:    migrateEnvPath,
		ConfigPath: configPath,
		CertDir:    migrateCertDir,
		CronDir:    migrateCronDir,
		Command:    command,
		DryRun:     migrateDryRun,
		Force:      migrateForce,
	}

	plan, err := migrate.Run(opts)
	if err != nil {
		return err
	}

	if migrateDryRun {
		cmd.Printf("migration plan for %s (dry run, nothing changed):\n", plan.V1.Domain)
	} else {
		cmd.Printf("migrated %s:\n", plan.V1.Domain)
	}
	for _, action := range plan.Actions {
		cmd.Printf("  %s\n", action)
	}

	if !migrateDryRun {
		envPath := migrateEnvPath
		if envPath == "" {
			envPath = migrate.DefaultEnvPath
		}
		_ = audit.LogConfigMigrated(envPath, configPath)
		cmd.Printf("\nv1 files were kept; remove them once the new layout is verified.\n")
	}
	return nil
}
