package x509util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"reflect"
	"strings"
	"testing"
	"time"
)

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

func selfSignedPEM(t *testing.T, cn string) ([]byte, *x509.Certificate) {
	t.Helper()
	key := testKey(t)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), cert
}

func TestU_NormalizeHostname(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "example.com", "example.com", false},
		{"uppercase", "Example.COM", "example.com", false},
		{"wildcard", "*.example.com", "*.example.com", false},
		{"unicode", "bücher.example", "xn--bcher-kva.example", false},
		{"surrounding space", "  example.com ", "example.com", false},
		{"empty", "", "", true},
		{"embedded space", "exa mple.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeHostname(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeHostname(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeHostname(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestU_CreateCSR_SANOrderAndDedup(t *testing.T) {
	key := testKey(t)

	csrPEM, err := CreateCSR(key, []string{
		"a.example.com",
		"b.example.com",
		"A.example.com", // duplicate after normalization
		"b.example.com", // literal duplicate
	})
	if err != nil {
		t.Fatalf("CreateCSR() error = %v", err)
	}

	csr, err := ParseCSRPEM(csrPEM)
	if err != nil {
		t.Fatalf("ParseCSRPEM() error = %v", err)
	}
	if err := csr.CheckSignature(); err != nil {
		t.Errorf("CSR signature invalid: %v", err)
	}

	if csr.Subject.CommonName != "a.example.com" {
		t.Errorf("CommonName = %q, want first hostname", csr.Subject.CommonName)
	}
	want := []string{"a.example.com", "b.example.com"}
	if !reflect.DeepEqual(csr.DNSNames, want) {
		t.Errorf("DNSNames = %v, want %v", csr.DNSNames, want)
	}
}

func TestU_CreateCSR_NoHostnames(t *testing.T) {
	if _, err := CreateCSR(testKey(t), nil); err == nil {
		t.Error("CreateCSR() with no hostnames should fail")
	}
}

func TestU_Fingerprint_Deterministic(t *testing.T) {
	certPEM, cert := selfSignedPEM(t, "example.com")

	first := Fingerprint(cert)
	second := Fingerprint(cert)
	if first != second {
		t.Errorf("fingerprint not deterministic: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(first))
	}
	if first != strings.ToLower(first) {
		t.Errorf("fingerprint must be lowercase hex: %s", first)
	}

	fromPEM, err := FingerprintPEM(certPEM)
	if err != nil {
		t.Fatalf("FingerprintPEM() error = %v", err)
	}
	if fromPEM != first {
		t.Errorf("FingerprintPEM() = %s, want %s", fromPEM, first)
	}
}

func TestU_Fingerprint_DiffersAcrossCerts(t *testing.T) {
	_, certA := selfSignedPEM(t, "a.example.com")
	_, certB := selfSignedPEM(t, "b.example.com")

	if Fingerprint(certA) == Fingerprint(certB) {
		t.Error("different certificates produced the same fingerprint")
	}
}

func TestU_ParseCertificatePEM_Invalid(t *testing.T) {
	if _, err := ParseCertificatePEM([]byte("not pem")); err == nil {
		t.Error("ParseCertificatePEM() should reject non-PEM input")
	}
}
