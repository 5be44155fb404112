package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cksdxz1007/cloudflare-cert/internal/cfapi"
	"github.com/cksdxz1007/cloudflare-cert/internal/config"
	"github.com/cksdxz1007/cloudflare-cert/internal/manager"
	"github.com/cksdxz1007/cloudflare-cert/internal/notify"
)

// Update command flags
var (
	updateAll       bool
	updateHostnames []string
	updateCertType  string
	updateValidity  int
	updateCertDir   string
	updateAPIURL    string
)

var updateCmd = &cobra.Command{
	Use:   "update [domain]",
	Short: "Issue or renew certificates",
	Long: `Issue or renew the Origin CA certificate for one domain, or for
every configured domain with --all.

Domains are processed sequentially in configuration file order. A
failing domain is reported and skipped; the remaining domains still
run. The command exits non-zero when any domain failed.

Every run generates a fresh private key. The previous artifacts are
only replaced once the new certificate has been saved.

Examples:
  cfcert update example.com
  cfcert update --all
  cfcert update example.com --validity 365 --type ecc
  cfcert update example.com --hostnames api.example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateAll, "all", false, "Renew every configured domain")
	updateCmd.Flags().StringSliceVar(&updateHostnames, "hostnames", nil,
		"Override the hostname list for this run")
	updateCmd.Flags().StringVar(&updateCertType, "type", "", "Override the key type (rsa or ecc)")
	updateCmd.Flags().IntVar(&updateValidity, "validity", 0,
		"Override the requested validity in days (7, 30, 90, 365, 730, 1095 or 5475)")
	updateCmd.Flags().StringVar(&updateCertDir, "cert-dir", "",
		"Override the certificate base directory")
	updateCmd.Flags().StringVar(&updateAPIURL, "api-url", "",
		"Override the Cloudflare API base URL")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if updateAll == (len(args) == 1) {
		return fmt.Errorf("specify exactly one of a domain argument or --all")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	overrides := manager.Overrides{
		Hostnames:    updateHostnames,
		ValidityDays: updateValidity,
		BaseCertDir:  updateCertDir,
	}
	if updateCertType != "" {
		certType, err := config.ParseCertType(updateCertType)
		if err != nil {
			return err
		}
		overrides.CertType = certType
	}

	baseURL := updateAPIURL
	if baseURL == "" {
		baseURL = cfapi.DefaultBaseURL
	}

	m := manager.New(cfg, cfapi.NewClient(baseURL))
	if notify.Configured(cfg.Defaults.SMTP) {
		m.Notifier = notify.NewNotifier(*cfg.Defaults.SMTP)
	}

	if !updateAll {
		result := m.Run(cmd.Context(), args[0], overrides)
		if !result.Succeeded() {
			return fmt.Errorf("renewal of %s failed during %s: %w",
				result.Domain, result.Stage, result.Err)
		}
		printResult(cmd, result)
		return nil
	}

	summary := m.RunAll(cmd.Context(), overrides)
	if len(summary.Results) == 0 {
		return fmt.Errorf("no domains configured in %s", configPath)
	}
	for i := range summary.Results {
		printResult(cmd, &summary.Results[i])
	}
	cmd.Printf("\n%s\n", summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d domains failed", summary.Failed, len(summary.Results))
	}
	return nil
}

func printResult(cmd *cobra.Command, r *manager.DomainResult) {
	if !r.Succeeded() {
		cmd.Printf("FAILED  %s (%s): %v\n", r.Domain, r.Stage, r.Err)
		return
	}
	cmd.Printf("renewed %s\n", r.Domain)
	cmd.Printf("  fingerprint: %s\n", r.Fingerprint)
	if r.ExpiresAt != "" {
		cmd.Printf("  expires:     %s\n", r.ExpiresAt)
	}
	for _, p := range r.Paths {
		cmd.Printf("  saved:       %s\n", p.Dir)
	}
}
