package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/net/publicsuffix"

	"github.com/cksdxz1007/cloudflare-cert/internal/audit"
	"github.com/cksdxz1007/cloudflare-cert/internal/cfapi"
	"github.com/cksdxz1007/cloudflare-cert/internal/config"
	"github.com/cksdxz1007/cloudflare-cert/internal/x509util"
)

// Domain command flags
var (
	domainsAddHostnames []string
	domainsAddZoneID    string
	domainsAddLookup    bool
	domainsAddOriginKey string
	domainsAddNotify    string
	domainsAddCertType  string
	domainsAddValidity  int
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Manage configured domains",
	Long: `Commands for listing and editing the domains section of the
configuration file.

Examples:
  cfcert domains list
  cfcert domains add example.com --hostnames example.com,www.example.com
  cfcert domains remove example.com`,
}

var domainsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured domains",
	Long: `List every configured domain with its effective (merged) settings.
Secrets are never printed.`,
	RunE: runDomainsList,
}

var domainsAddCmd = &cobra.Command{
	Use:   "add <domain>",
	Short: "Add a domain to the configuration",
	Long: `Add a domain entry to the configuration file.

The hostname list is required and is not inherited from defaults.
With --lookup-zone the zone id is resolved through the Cloudflare API
using the scoped token from CF_API_TOKEN; this is a separate
credential from the Origin CA key.

Examples:
  cfcert domains add example.com --hostnames example.com,www.example.com
  cfcert domains add example.com --hostnames example.com --lookup-zone
  cfcert domains add example.com --hostnames example.com --notify ops@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runDomainsAdd,
}

var domainsRemoveCmd = &cobra.Command{
	Use:   "remove <domain>",
	Short: "Remove a domain from the configuration",
	Long: `Remove a domain entry from the configuration file.

Only the configuration entry is removed. Certificates already on disk
and any cron entry are left in place; use "cfcert cron remove" for
the schedule.`,
	Args: cobra.ExactArgs(1),
	RunE: runDomainsRemove,
}

func init() {
	domainsAddCmd.Flags().StringSliceVar(&domainsAddHostnames, "hostnames", nil,
		"Hostnames for the certificate (required)")
	_ = domainsAddCmd.MarkFlagRequired("hostnames")
	domainsAddCmd.Flags().StringVar(&domainsAddZoneID, "zone-id", "", "Cloudflare zone id")
	domainsAddCmd.Flags().BoolVar(&domainsAddLookup, "lookup-zone", false,
		"Resolve the zone id via the Cloudflare API (needs CF_API_TOKEN)")
	domainsAddCmd.Flags().StringVar(&domainsAddOriginKey, "origin-ca-key", "",
		"Per-domain Origin CA key (defaults to the global one)")
	domainsAddCmd.Flags().StringVar(&domainsAddNotify, "notify", "",
		"Notification email for this domain")
	domainsAddCmd.Flags().StringVar(&domainsAddCertType, "type", "", "Key type (rsa or ecc)")
	domainsAddCmd.Flags().IntVar(&domainsAddValidity, "validity", 0, "Validity in days")

	domainsCmd.AddCommand(domainsListCmd)
	domainsCmd.AddCommand(domainsAddCmd)
	domainsCmd.AddCommand(domainsRemoveCmd)
}

func runDomainsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	names := cfg.Domains()
	if len(names) == 0 {
		cmd.Println("no domains configured")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tHOSTNAMES\tTYPE\tVALIDITY\tZONE\tCRON")
	for _, name := range names {
		resolved, err := cfg.Resolve(name)
		if err != nil {
			fmt.Fprintf(w, "%s\t(invalid: %v)\t\t\t\t\n", name, err)
			continue
		}
		zone := resolved.ZoneID
		if zone == "" {
			zone = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dd\t%s\t%t\n",
			name,
			strings.Join(resolved.Hostnames, ","),
			resolved.CertType,
			resolved.ValidityDays,
			zone,
			resolved.EnableCron,
		)
	}
	return w.Flush()
}

func runDomainsAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	hostnames, err := x509util.NormalizeHostnames(domainsAddHostnames)
	if err != nil {
		return err
	}

	// A hostname whose registrable domain differs from the entry key
	// usually means a typo in one of the two.
	for _, hostname := range hostnames {
		bare := strings.TrimPrefix(hostname, "*.")
		registrable, err := publicsuffix.EffectiveTLDPlusOne(bare)
		if err == nil && registrable != name {
			cmd.Printf("warning: hostname %s belongs to %s, not %s\n",
				hostname, registrable, name)
		}
	}

	cfg, err := loadConfig()
	if errors.Is(err, config.ErrNotFound) {
		cfg = config.New(configPath, config.Defaults{})
	} else if err != nil {
		return err
	}

	entry := config.Domain{Hostnames: hostnames}
	if domainsAddOriginKey != "" {
		entry.OriginCAKey = &domainsAddOriginKey
	}
	if domainsAddNotify != "" {
		entry.NotificationEmail = &domainsAddNotify
	}
	if domainsAddCertType != "" {
		certType, err := config.ParseCertType(domainsAddCertType)
		if err != nil {
			return err
		}
		entry.CertType = &certType
	}
	if domainsAddValidity != 0 {
		if err := cfapi.ValidateValidityDays(domainsAddValidity); err != nil {
			return err
		}
		entry.ValidityDays = &domainsAddValidity
	}

	zoneID := domainsAddZoneID
	if domainsAddLookup {
		token := os.Getenv("CF_API_TOKEN")
		if token == "" {
			return fmt.Errorf("--lookup-zone needs a scoped token in CF_API_TOKEN")
		}
		zoneID, err = cfapi.NewClient(cfapi.DefaultBaseURL).
			LookupZoneID(cmd.Context(), token, name)
		if err != nil {
			return fmt.Errorf("zone lookup for %s: %w", name, err)
		}
		cmd.Printf("zone id for %s: %s\n", name, zoneID)
	}
	if zoneID != "" {
		entry.ZoneID = &zoneID
	}

	if err := cfg.AddDomain(name, entry); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	_ = audit.LogDomainAdded(name, hostnames)
	cmd.Printf("added %s (%s) to %s\n", name, strings.Join(hostnames, ","), configPath)
	return nil
}

func runDomainsRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RemoveDomain(name); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	_ = audit.LogDomainRemoved(name)
	cmd.Printf("removed %s from %s (certificates on disk were kept)\n", name, configPath)
	return nil
}
