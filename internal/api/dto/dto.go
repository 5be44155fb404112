// Package dto provides Data Transfer Objects for the REST API.
package dto

// APIError represents a standardized error response.
type APIError struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	// Ready indicates if the server is ready to accept requests.
	Ready bool `json:"ready"`

	// Checks lists individual readiness checks.
	Checks map[string]bool `json:"checks,omitempty"`
}

// DomainSummary is one entry of the domain list.
type DomainSummary struct {
	Domain       string   `json:"domain"`
	Hostnames    []string `json:"hostnames"`
	CertType     string   `json:"cert_type"`
	ValidityDays int      `json:"validity_days"`
	EnableCron   bool     `json:"enable_cron"`
}

// DomainListResponse represents GET /api/v1/domains.
type DomainListResponse struct {
	Domains []DomainSummary `json:"domains"`
}

// HostnameStatus is the stored certificate state for one hostname.
type HostnameStatus struct {
	Hostname string `json:"hostname"`

	// Issued is false when no certificate was ever persisted.
	Issued bool `json:"issued"`

	Fingerprint string   `json:"fingerprint,omitempty"`
	NotBefore   string   `json:"not_before,omitempty"` // RFC3339
	NotAfter    string   `json:"not_after,omitempty"`  // RFC3339
	DaysLeft    int      `json:"days_left,omitempty"`
	DNSNames    []string `json:"dns_names,omitempty"`

	// Consistent is false when the fingerprint file no longer
	// matches the stored certificate.
	Consistent bool `json:"consistent"`

	Error string `json:"error,omitempty"`
}

// DomainStatusResponse represents GET /api/v1/domains/{domain}.
type DomainStatusResponse struct {
	Domain    string           `json:"domain"`
	CertDir   string           `json:"cert_dir"`
	Hostnames []HostnameStatus `json:"hostnames"`
}
