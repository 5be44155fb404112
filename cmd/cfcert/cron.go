package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cksdxz1007/cloudflare-cert/internal/audit"
	"github.com/cksdxz1007/cloudflare-cert/internal/cron"
)

// Cron command flags
var (
	cronAll bool
	cronDir string
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Manage renewal cron entries",
	Long: `Install or remove the cron.d entries that drive scheduled renewals.

One file per domain is written to the cron drop-in directory with the
schedule ` + cron.Schedule + ` (03:00 on the 1st of every third month).
Files are only rewritten when their content changed.

Examples:
  cfcert cron install example.com
  cfcert cron install --all
  cfcert cron remove example.com
  cfcert cron install --all --cron-dir ./cron.d`,
}

var cronInstallCmd = &cobra.Command{
	Use:   "install [domain]",
	Short: "Install cron entries",
	Long: `Install the renewal cron entry for one domain, or for every
configured domain with --all. Domains whose resolved enable_cron is
false are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCronInstall,
}

var cronRemoveCmd = &cobra.Command{
	Use:   "remove [domain]",
	Short: "Remove cron entries",
	Long:  `Remove the renewal cron entry for one domain, or for every configured domain with --all.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCronRemove,
}

func init() {
	for _, c := range []*cobra.Command{cronInstallCmd, cronRemoveCmd} {
		c.Flags().BoolVar(&cronAll, "all", false, "Apply to every configured domain")
		c.Flags().StringVar(&cronDir, "cron-dir", "",
			"Cron drop-in directory (default "+cron.DefaultDir+")")
	}

	cronCmd.AddCommand(cronInstallCmd)
	cronCmd.AddCommand(cronRemoveCmd)
}

// cronTargets resolves the domain list for install/remove.
func cronTargets(args []string) ([]string, error) {
	if cronAll == (len(args) == 1) {
		return nil, fmt.Errorf("specify exactly one of a domain argument or --all")
	}
	if !cronAll {
		return args[:1], nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Domains(), nil
}

func cronManager() (*cron.Manager, error) {
	command, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating the cfcert binary: %w", err)
	}
	return cron.NewManager(cronDir, command), nil
}

func runCronInstall(cmd *cobra.Command, args []string) error {
	targets, err := cronTargets(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := cronManager()
	if err != nil {
		return err
	}

	for _, domain := range targets {
		resolved, err := cfg.Resolve(domain)
		if err != nil {
			return err
		}
		if !resolved.EnableCron {
			cmd.Printf("skipped %s (enable_cron is false)\n", domain)
			continue
		}

		path, changed, err := m.Install(domain, configPath)
		if err != nil {
			return fmt.Errorf("installing cron entry for %s: %w", domain, err)
		}
		if changed {
			_ = audit.LogCronInstalled(domain, path)
			cmd.Printf("installed %s\n", path)
		} else {
			cmd.Printf("unchanged %s\n", path)
		}
	}
	return nil
}

func runCronRemove(cmd *cobra.Command, args []string) error {
	targets, err := cronTargets(args)
	if err != nil {
		return err
	}
	m, err := cronManager()
	if err != nil {
		return err
	}

	for _, domain := range targets {
		path, removed, err := m.Remove(domain)
		if err != nil {
			return fmt.Errorf("removing cron entry for %s: %w", domain, err)
		}
		if removed {
			_ = audit.LogCronRemoved(domain, path)
			cmd.Printf("removed %s\n", path)
		} else {
			cmd.Printf("absent %s\n", path)
		}
	}
	return nil
}
