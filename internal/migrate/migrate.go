// Package migrate converts a v1 single-domain installation (env file,
// flat artifact layout, one shared cron entry) to the v2 layout.
package migrate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cksdxz1007/cloudflare-cert/internal/config"
	"github.com/cksdxz1007/cloudflare-cert/internal/cron"
)

// V1 env file keys.
const (
	envOriginCAKey  = "CLOUDFLARE_ORIGIN_CA_KEY"
	envCertDomain   = "CERT_DOMAIN"
	envCertHostname = "CERT_HOSTNAME" // space-separated list
	envZoneID       = "CF_ZONE_ID"
	envNotifyEmail  = "NOTIFICATION_EMAIL"

	// legacyCronFile is the single shared v1 cron entry.
	legacyCronFile = "cert_update"
)

// DefaultEnvPath is where the v1 installer placed the env file.
const DefaultEnvPath = "/etc/cloudflare/env"

// V1Config is the parsed v1 environment file.
type V1Config struct {
	OriginCAKey       string
	Domain            string
	Hostnames         []string
	ZoneID            string
	NotificationEmail string
}

// ReadV1 parses a v1 env file.
func ReadV1(path string) (*V1Config, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read v1 env file %s: %w", path, err)
	}

	v1 := &V1Config{
		OriginCAKey:       values[envOriginCAKey],
		Domain:            values[envCertDomain],
		Hostnames:         strings.Fields(values[envCertHostname]),
		ZoneID:            values[envZoneID],
		NotificationEmail: values[envNotifyEmail],
	}

	if v1.Domain == "" {
		return nil, fmt.Errorf("v1 env file has no %s", envCertDomain)
	}
	if len(v1.Hostnames) == 0 {
		return nil, fmt.Errorf("v1 env file has no %s", envCertHostname)
	}
	return v1, nil
}

// Options controls a migration run.
type Options struct {
	EnvPath    string // v1 env file (DefaultEnvPath when empty)
	ConfigPath string // v2 config target
	CertDir    string // artifact base directory
	CronDir    string // cron drop-in directory (cron.DefaultDir when empty)
	Command    string // cfcert binary path for the new cron entry
	DryRun     bool   // plan only, touch nothing
	Force      bool   // overwrite an existing v2 config (with backup)
}

// ActionKind classifies one migration step.
type ActionKind string

const (
	ActionBackupConfig ActionKind = "backup-config"
	ActionWriteConfig  ActionKind = "write-config"
	ActionCopyArtifact ActionKind = "copy-artifact"
	ActionSkipArtifact ActionKind = "skip-identical"
	ActionBackupCron   ActionKind = "backup-cron"
	ActionInstallCron  ActionKind = "install-cron"
)

// Action is one planned migration step.
type Action struct {
	Kind   ActionKind
	Source string
	Target string
}

func (a Action) String() string {
	switch a.Kind {
	case ActionBackupConfig:
		return fmt.Sprintf("back up existing config %s -> %s", a.Source, a.Target)
	case ActionWriteConfig:
		return fmt.Sprintf("write v2 config %s", a.Target)
	case ActionCopyArtifact:
		return fmt.Sprintf("copy %s -> %s", a.Source, a.Target)
	case ActionSkipArtifact:
		return fmt.Sprintf("skip %s (target identical)", a.Source)
	case ActionBackupCron:
		return fmt.Sprintf("back up legacy cron entry %s -> %s", a.Source, a.Target)
	case ActionInstallCron:
		return fmt.Sprintf("install cron entry %s", a.Target)
	default:
		return string(a.Kind)
	}
}

// Plan is the full set of steps a migration would perform.
type Plan struct {
	V1      *V1Config
	Actions []Action
}

// Run builds the migration plan and, unless DryRun is set, executes
// it. Originals are never deleted: v1 artifacts and the legacy cron
// entry are left behind (the cron entry is renamed, not removed).
func Run(opts Options) (*Plan, error) {
	if opts.EnvPath == "" {
		opts.EnvPath = DefaultEnvPath
	}
	if opts.CertDir == "" {
		opts.CertDir = config.DefaultBaseCertDir
	}

	v1, err := ReadV1(opts.EnvPath)
	if err != nil {
		return nil, err
	}

	plan := &Plan{V1: v1}
	timestamp := time.Now().Format("20060102-150405")

	// Config
	if _, err := os.Stat(opts.ConfigPath); err == nil {
		if !opts.Force {
			return nil, fmt.Errorf("%s already exists; re-run with --force to overwrite", opts.ConfigPath)
		}
		plan.Actions = append(plan.Actions, Action{
			Kind:   ActionBackupConfig,
			Source: opts.ConfigPath,
			Target: opts.ConfigPath + ".bak-" + timestamp,
		})
	}
	plan.Actions = append(plan.Actions, Action{Kind: ActionWriteConfig, Target: opts.ConfigPath})

	// Artifacts: v1 kept one directory per hostname directly under
	// the base, files named {hostname}.{ext}.
	for _, hostname := range v1.Hostnames {
		for _, ext := range []string{"crt", "key", "fingerprint"} {
			src := filepath.Join(opts.CertDir, hostname, hostname+"."+ext)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			dst := filepath.Join(opts.CertDir, v1.Domain, hostname, v1.Domain+"."+hostname+"."+ext)
			kind := ActionCopyArtifact
			if identical(src, dst) {
				kind = ActionSkipArtifact
			}
			plan.Actions = append(plan.Actions, Action{Kind: kind, Source: src, Target: dst})
		}
	}

	// Cron
	cronDir := opts.CronDir
	if cronDir == "" {
		cronDir = cron.DefaultDir
	}
	cm := cron.NewManager(cronDir, opts.Command)
	legacy := filepath.Join(cronDir, legacyCronFile)
	if _, err := os.Stat(legacy); err == nil {
		plan.Actions = append(plan.Actions, Action{
			Kind:   ActionBackupCron,
			Source: legacy,
			Target: legacy + ".bak-" + timestamp,
		})
	}
	plan.Actions = append(plan.Actions, Action{Kind: ActionInstallCron, Target: cm.EntryPath(v1.Domain)})

	if opts.DryRun {
		return plan, nil
	}
	if err := apply(plan, opts, cm); err != nil {
		return plan, err
	}
	return plan, nil
}

func apply(plan *Plan, opts Options, cm *cron.Manager) error {
	for _, a := range plan.Actions {
		switch a.Kind {
		case ActionBackupConfig, ActionBackupCron:
			if err := os.Rename(a.Source, a.Target); err != nil {
				return fmt.Errorf("failed to back up %s: %w", a.Source, err)
			}

		case ActionWriteConfig:
			cfg, err := buildConfig(plan.V1, opts)
			if err != nil {
				return err
			}
			if err := cfg.SaveTo(a.Target); err != nil {
				return err
			}

		case ActionCopyArtifact:
			if err := copyArtifact(a.Source, a.Target); err != nil {
				return err
			}

		case ActionSkipArtifact:
			// target already up to date

		case ActionInstallCron:
			if _, _, err := cm.Install(plan.V1.Domain, opts.ConfigPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildConfig assembles the v2 configuration from v1 values with the
// v2 defaults (rsa, 90 days, cron enabled).
func buildConfig(v1 *V1Config, opts Options) (*config.Config, error) {
	cfg := config.New(opts.ConfigPath, config.Defaults{
		OriginCAKey:       v1.OriginCAKey,
		CertType:          config.DefaultCertType,
		ValidityDays:      config.DefaultValidityDays,
		BaseCertDir:       opts.CertDir,
		EnableCron:        true,
		NotificationEmail: v1.NotificationEmail,
	})

	entry := config.Domain{Hostnames: v1.Hostnames}
	if v1.ZoneID != "" {
		zone := v1.ZoneID
		entry.ZoneID = &zone
	}
	if err := cfg.AddDomain(v1.Domain, entry); err != nil {
		return nil, err
	}
	return cfg, nil
}

// identical reports whether both files exist with equal content.
func identical(src, dst string) bool {
	a, err := os.ReadFile(src)
	if err != nil {
		return false
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func copyArtifact(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	perm := os.FileMode(0644)
	if strings.HasSuffix(dst, ".key") {
		perm = 0600
	}
	if err := os.WriteFile(dst, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
