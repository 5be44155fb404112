package x509util

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
)

// ParseCertificatePEM parses the first certificate in PEM data.
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("not a PEM certificate")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

// Fingerprint returns the lowercase hex SHA-256 digest of the DER
// certificate bytes.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// FingerprintPEM parses a PEM certificate and returns its fingerprint.
func FingerprintPEM(certPEM []byte) (string, error) {
	cert, err := ParseCertificatePEM(certPEM)
	if err != nil {
		return "", err
	}
	return Fingerprint(cert), nil
}
