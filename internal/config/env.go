package config

import (
	"github.com/caarlos0/env/v11"
)

// Credentials holds the secrets that may be supplied through the
// process environment instead of the configuration file.
//
// The Origin CA key and the zone-read API token are distinct
// credentials with different privilege levels: the Origin CA key is
// account-level and authorizes issuance, the token is a scoped
// read-only secret used solely for zone lookups. They are kept as
// separate fields and must never be conflated.
type Credentials struct {
	// OriginCAKey authorizes origin certificate issuance.
	OriginCAKey string `env:"CLOUDFLARE_ORIGIN_CA_KEY"`

	// ZoneToken is the scoped read-only token for zone lookups.
	ZoneToken string `env:"CF_API_TOKEN"`

	// ZoneID optionally pre-fills the zone id when adding a domain.
	ZoneID string `env:"CF_ZONE_ID"`
}

// CredentialsFromEnv reads credentials from the environment.
func CredentialsFromEnv() (Credentials, error) {
	return env.ParseAs[Credentials]()
}

// ApplyCredentials fills defaults the file left empty from environment
// credentials. The file value always wins when present.
func (c *Config) ApplyCredentials(creds Credentials) {
	if c.Defaults.OriginCAKey == "" && creds.OriginCAKey != "" {
		c.Defaults.OriginCAKey = creds.OriginCAKey
	}
}
