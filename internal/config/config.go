// Package config implements the layered configuration store: global
// defaults plus per-domain overrides, loaded from a single YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for configuration failures.
var (
	// ErrNotFound indicates the configuration file does not exist.
	ErrNotFound = errors.New("configuration file not found")

	// ErrUnknownDomain indicates a domain that is not configured.
	ErrUnknownDomain = errors.New("unknown domain")
)

// ParseError indicates the configuration file is not valid YAML.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError indicates the configuration is valid YAML but violates
// the expected schema (missing hostnames, bad cert type, ...).
type SchemaError struct {
	Domain string // empty for defaults-level problems
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Domain == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid configuration for domain %q: %s", e.Domain, e.Reason)
}

// CertType is the certificate key type requested from the CA.
type CertType string

const (
	CertTypeRSA CertType = "rsa"
	CertTypeECC CertType = "ecc"
)

// ParseCertType normalizes a cert type spelling. The legacy v2 config
// written by the Python tooling stored the CA request_type directly
// ("origin-rsa"/"origin-ecc"); both spellings load to the same value.
func ParseCertType(s string) (CertType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rsa", "origin-rsa":
		return CertTypeRSA, nil
	case "ecc", "origin-ecc":
		return CertTypeECC, nil
	default:
		return "", fmt.Errorf("unsupported cert type %q (want rsa or ecc)", s)
	}
}

// UnmarshalYAML normalizes legacy spellings on load.
func (t *CertType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseCertType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SMTP holds the optional mail relay settings used for renewal
// notifications. Stored under the default section only.
type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Sender   string `yaml:"sender"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	UseTLS   bool   `yaml:"use_tls"`
}

// Defaults holds the global default settings applied to every domain
// that does not override them.
type Defaults struct {
	OriginCAKey       string   `yaml:"origin_ca_key,omitempty"`
	CertType          CertType `yaml:"cert_type,omitempty"`
	ValidityDays      int      `yaml:"validity_days,omitempty"`
	BaseCertDir       string   `yaml:"base_cert_dir,omitempty"`
	EnableCron        bool     `yaml:"enable_cron,omitempty"`
	NotificationEmail string   `yaml:"notification_email,omitempty"`
	SMTP              *SMTP    `yaml:"smtp,omitempty"`
}

// Domain holds the per-domain settings. Optional fields are pointers:
// nil means "inherit from defaults". An explicit YAML null and an
// absent key both decode to nil and are treated identically.
type Domain struct {
	Hostnames         []string  `yaml:"hostnames"`
	OriginCAKey       *string   `yaml:"origin_ca_key,omitempty"`
	ZoneID            *string   `yaml:"zone_id,omitempty"`
	CertType          *CertType `yaml:"cert_type,omitempty"`
	ValidityDays      *int      `yaml:"validity_days,omitempty"`
	EnableCron        *bool     `yaml:"enable_cron,omitempty"`
	NotificationEmail *string   `yaml:"notification_email,omitempty"`
}

// Resolved is the merge of Defaults and one Domain entry. Hostnames
// are never inherited; everything else falls back to the defaults.
type Resolved struct {
	Domain            string
	Hostnames         []string
	OriginCAKey       string
	ZoneID            string
	CertType          CertType
	ValidityDays      int
	BaseCertDir       string
	EnableCron        bool
	NotificationEmail string
	SMTP              *SMTP
}

// Config is a loaded configuration snapshot. It is not live-reloaded:
// it reflects the file content at Load time.
type Config struct {
	Defaults Defaults

	domains map[string]*Domain
	order   []string // file order of the domains mapping
	path    string
}

// Built-in fallbacks matching the v2 reference defaults.
const (
	DefaultCertType     = CertTypeRSA
	DefaultValidityDays = 90
	DefaultBaseCertDir  = "/etc/cert"
)

// fileYAML is the on-disk shape. Domains is kept as a raw node so the
// mapping order survives decoding; a plain map would lose it.
type fileYAML struct {
	Default Defaults  `yaml:"default"`
	Domains yaml.Node `yaml:"domains"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	var raw fileYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	cfg := &Config{
		Defaults: raw.Default,
		domains:  make(map[string]*Domain),
		path:     path,
	}

	if raw.Domains.Kind != 0 && raw.Domains.Kind != yaml.MappingNode {
		if !(raw.Domains.Kind == yaml.ScalarNode && raw.Domains.Tag == "!!null") {
			return nil, &SchemaError{Reason: "domains must be a mapping of domain name to settings"}
		}
	}

	if raw.Domains.Kind == yaml.MappingNode {
		for i := 0; i < len(raw.Domains.Content); i += 2 {
			keyNode, valNode := raw.Domains.Content[i], raw.Domains.Content[i+1]

			var name string
			if err := keyNode.Decode(&name); err != nil || strings.TrimSpace(name) == "" {
				return nil, &SchemaError{Reason: "empty domain key in domains mapping"}
			}
			if _, dup := cfg.domains[name]; dup {
				return nil, &SchemaError{Domain: name, Reason: "duplicate domain entry"}
			}

			var d Domain
			if err := valNode.Decode(&d); err != nil {
				return nil, &ParseError{Path: path, Err: fmt.Errorf("domain %q: %w", name, err)}
			}

			cfg.domains[name] = &d
			cfg.order = append(cfg.order, name)
		}
	}

	cfg.applyFallbacks()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFallbacks fills built-in defaults for fields the file left unset.
func (c *Config) applyFallbacks() {
	if c.Defaults.CertType == "" {
		c.Defaults.CertType = DefaultCertType
	}
	if c.Defaults.ValidityDays == 0 {
		c.Defaults.ValidityDays = DefaultValidityDays
	}
	if c.Defaults.BaseCertDir == "" {
		c.Defaults.BaseCertDir = DefaultBaseCertDir
	}
}

// validate enforces the schema rules that Load promises.
func (c *Config) validate() error {
	if c.Defaults.ValidityDays < 0 {
		return &SchemaError{Reason: "default validity_days must be positive"}
	}

	for _, name := range c.order {
		d := c.domains[name]
		if err := validateDomainEntry(name, d); err != nil {
			return err
		}
	}
	return nil
}

func validateDomainEntry(name string, d *Domain) error {
	if !isSafeName(name) {
		return &SchemaError{Domain: name, Reason: "domain is not a safe path segment"}
	}
	if len(d.Hostnames) == 0 {
		return &SchemaError{Domain: name, Reason: "hostnames must not be empty (hostnames are never inherited)"}
	}
	for _, h := range d.Hostnames {
		if strings.TrimSpace(h) == "" {
			return &SchemaError{Domain: name, Reason: "hostnames must not contain empty entries"}
		}
		if !isSafeName(h) {
			return &SchemaError{Domain: name, Reason: fmt.Sprintf("hostname %q is not a safe path segment", h)}
		}
	}
	if d.ValidityDays != nil && *d.ValidityDays <= 0 {
		return &SchemaError{Domain: name, Reason: "validity_days must be positive"}
	}
	return nil
}

// isSafeName reports whether a domain or hostname value can be used
// verbatim as a single path segment under the certificate directory.
// Wildcard hostnames ("*.example.com") are allowed; separators and
// dot-relative names are not.
func isSafeName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.ContainsAny(s, "/\\") || strings.Contains(s, "..") {
		return false
	}
	if strings.HasPrefix(s, ".") {
		return false
	}
	return true
}

// Path returns the file path this configuration was loaded from.
func (c *Config) Path() string { return c.path }

// Domains returns the configured domain names in file order.
func (c *Config) Domains() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Get returns the raw (unmerged) entry for a domain.
func (c *Config) Get(domain string) (*Domain, bool) {
	d, ok := c.domains[domain]
	return d, ok
}

// Resolve merges the defaults with one domain entry. It fails before
// any network call when the merged settings are unusable: a missing
// origin CA key or an empty hostname list.
func (c *Config) Resolve(domain string) (*Resolved, error) {
	d, ok := c.domains[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}

	r := &Resolved{
		Domain:            domain,
		Hostnames:         append([]string(nil), d.Hostnames...),
		OriginCAKey:       c.Defaults.OriginCAKey,
		CertType:          c.Defaults.CertType,
		ValidityDays:      c.Defaults.ValidityDays,
		BaseCertDir:       c.Defaults.BaseCertDir,
		EnableCron:        c.Defaults.EnableCron,
		NotificationEmail: c.Defaults.NotificationEmail,
		SMTP:              c.Defaults.SMTP,
	}

	if d.OriginCAKey != nil {
		r.OriginCAKey = *d.OriginCAKey
	}
	if d.ZoneID != nil {
		r.ZoneID = *d.ZoneID
	}
	if d.CertType != nil {
		r.CertType = *d.CertType
	}
	if d.ValidityDays != nil {
		r.ValidityDays = *d.ValidityDays
	}
	if d.EnableCron != nil {
		r.EnableCron = *d.EnableCron
	}
	if d.NotificationEmail != nil {
		r.NotificationEmail = *d.NotificationEmail
	}

	if r.OriginCAKey == "" {
		return nil, &SchemaError{Domain: domain, Reason: "no origin_ca_key configured (set it in defaults or on the domain)"}
	}
	if len(r.Hostnames) == 0 {
		return nil, &SchemaError{Domain: domain, Reason: "no hostnames configured"}
	}

	return r, nil
}
