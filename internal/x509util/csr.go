// Package x509util builds certificate signing requests and derives
// certificate artifacts (fingerprints, PEM forms) for origin
// certificate issuance.
package x509util

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeHostname converts a hostname to its IDNA lookup form.
// A leading wildcard label ("*.example.com") is preserved; origin
// certificates support wildcard hostnames.
func NormalizeHostname(hostname string) (string, error) {
	h := strings.TrimSpace(strings.ToLower(hostname))
	if h == "" {
		return "", fmt.Errorf("empty hostname")
	}

	wildcard := false
	if strings.HasPrefix(h, "*.") {
		wildcard = true
		h = strings.TrimPrefix(h, "*.")
	}

	normalized, err := idna.Lookup.ToASCII(h)
	if err != nil {
		return "", fmt.Errorf("invalid hostname %q: %w", hostname, err)
	}

	if wildcard {
		return "*." + normalized, nil
	}
	return normalized, nil
}

// NormalizeHostnames normalizes a list of hostnames, preserving input
// order and dropping duplicates after normalization.
func NormalizeHostnames(hostnames []string) ([]string, error) {
	seen := make(map[string]bool, len(hostnames))
	out := make([]string, 0, len(hostnames))
	for _, h := range hostnames {
		n, err := NormalizeHostname(h)
		if err != nil {
			return nil, err
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no hostnames")
	}
	return out, nil
}

// CreateCSR builds a PEM-encoded certificate signing request for the
// given hostnames, signed with key. The subject common name is the
// first hostname; the SAN extension lists every hostname in input
// order with duplicates removed.
func CreateCSR(key crypto.Signer, hostnames []string) ([]byte, error) {
	names, err := NormalizeHostnames(hostnames)
	if err != nil {
		return nil, err
	}

	template := &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: names[0]},
		DNSNames: names,
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSR: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE REQUEST",
		Bytes: der,
	}), nil
}

// ParseCSRPEM parses a PEM-encoded certificate signing request.
func ParseCSRPEM(data []byte) (*x509.CertificateRequest, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return nil, fmt.Errorf("not a PEM certificate request")
	}
	csr, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSR: %w", err)
	}
	return csr, nil
}
