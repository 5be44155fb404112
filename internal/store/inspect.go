package store

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cksdxz1007/cloudflare-cert/internal/x509util"
)

// Artifact describes the stored state for one domain/hostname pair.
type Artifact struct {
	Domain   string
	Hostname string
	Paths    Paths

	// StoredFingerprint is the content of the .fingerprint file.
	StoredFingerprint string

	// ComputedFingerprint is recomputed from the stored certificate.
	// A mismatch means the files were modified independently.
	ComputedFingerprint string

	NotBefore time.Time
	NotAfter  time.Time
	DNSNames  []string
}

// FingerprintConsistent reports whether the stored fingerprint still
// matches the stored certificate.
func (a *Artifact) FingerprintConsistent() bool {
	return a.StoredFingerprint == a.ComputedFingerprint
}

// DaysLeft returns whole days until expiry at the given instant.
func (a *Artifact) DaysLeft(now time.Time) int {
	return int(a.NotAfter.Sub(now).Hours() / 24)
}

// Inspect reads the persisted artifacts for a domain/hostname pair.
// Returns os.ErrNotExist (wrapped) when no certificate was ever
// persisted for the pair.
func (w *Writer) Inspect(domain, hostname string) (*Artifact, error) {
	p, err := w.layout(domain, hostname)
	if err != nil {
		return nil, err
	}

	certPEM, err := os.ReadFile(p.Certificate)
	if err != nil {
		return nil, fmt.Errorf("reading certificate: %w", err)
	}
	cert, err := x509util.ParseCertificatePEM(certPEM)
	if err != nil {
		return nil, fmt.Errorf("stored certificate %s: %w", p.Certificate, err)
	}

	stored := ""
	if data, err := os.ReadFile(p.Fingerprint); err == nil {
		stored = strings.TrimSpace(string(data))
	}

	return &Artifact{
		Domain:              domain,
		Hostname:            hostname,
		Paths:               *p,
		StoredFingerprint:   stored,
		ComputedFingerprint: x509util.Fingerprint(cert),
		NotBefore:           cert.NotBefore,
		NotAfter:            cert.NotAfter,
		DNSNames:            cert.DNSNames,
	}, nil
}
