package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cksdxz1007/cloudflare-cert/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status [domain]",
	Short: "Show the stored certificate state",
	Long: `Show the on-disk certificate state for one domain or for every
configured domain.

For each hostname the expiry, remaining days and fingerprint
consistency are reported. A hostname without artifacts has never had
a successful run; until one succeeds there is no certificate to fall
back on.

Examples:
  cfcert status
  cfcert status example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	names := cfg.Domains()
	if len(args) == 1 {
		names = args[:1]
	}

	now := time.Now()
	for _, name := range names {
		resolved, err := cfg.Resolve(name)
		if err != nil {
			return err
		}

		cmd.Printf("%s (%s)\n", name, resolved.BaseCertDir)
		writer := store.NewWriter(resolved.BaseCertDir)
		for _, hostname := range resolved.Hostnames {
			artifact, err := writer.Inspect(name, hostname)
			switch {
			case errors.Is(err, os.ErrNotExist):
				cmd.Printf("  %s: never issued\n", hostname)
			case err != nil:
				cmd.Printf("  %s: unreadable: %v\n", hostname, err)
			default:
				printArtifact(cmd, artifact, now)
			}
		}
	}
	return nil
}

func printArtifact(cmd *cobra.Command, a *store.Artifact, now time.Time) {
	days := a.DaysLeft(now)
	switch {
	case days < 0:
		cmd.Printf("  %s: EXPIRED %s\n", a.Hostname, a.NotAfter.UTC().Format("2006-01-02"))
	default:
		cmd.Printf("  %s: expires %s (%d days)\n",
			a.Hostname, a.NotAfter.UTC().Format("2006-01-02"), days)
	}
	cmd.Printf("    fingerprint: %s\n", a.ComputedFingerprint)
	if !a.FingerprintConsistent() {
		cmd.Printf("    WARNING: fingerprint file does not match the stored certificate\n")
	}
}
