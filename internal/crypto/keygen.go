// Package crypto generates the key material for origin certificate
// requests: a fresh key pair per issuance, PEM-encoded for persistence.
package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	"github.com/cksdxz1007/cloudflare-cert/internal/config"
)

// ErrKeyGeneration indicates an underlying cryptographic failure.
// It is fatal for the affected domain and non-retryable within a run.
var ErrKeyGeneration = errors.New("key generation failed")

// RSA key size for origin certificates. Cloudflare accepts 2048-bit
// keys; the CSR is signed with SHA-256.
const rsaKeyBits = 2048

// KeyPair holds a freshly generated private key and its PEM encoding.
type KeyPair struct {
	Type    config.CertType
	Private crypto.Signer
	KeyPEM  []byte
}

// GenerateKeyPair generates a new key pair for the given cert type.
// A new key is produced on every call; keys are never reused across
// renewals.
//
// RSA keys are encoded as PKCS#1 ("RSA PRIVATE KEY"), matching the
// output of the openssl-based tooling this replaces. ECC keys use a
// P-256 curve and SEC1 encoding ("EC PRIVATE KEY").
func GenerateKeyPair(certType config.CertType) (*KeyPair, error) {
	return GenerateKeyPairWithRand(rand.Reader, certType)
}

// GenerateKeyPairWithRand generates a key pair using the provided
// random source. Useful for tests with deterministic randomness.
func GenerateKeyPairWithRand(random io.Reader, certType config.CertType) (*KeyPair, error) {
	switch certType {
	case config.CertTypeRSA:
		key, err := rsa.GenerateKey(random, rsaKeyBits)
		if err != nil {
			return nil, fmt.Errorf("%w: rsa: %v", ErrKeyGeneration, err)
		}
		keyPEM := pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		})
		return &KeyPair{Type: certType, Private: key, KeyPEM: keyPEM}, nil

	case config.CertTypeECC:
		key, err := ecdsa.GenerateKey(elliptic.P256(), random)
		if err != nil {
			return nil, fmt.Errorf("%w: ecdsa: %v", ErrKeyGeneration, err)
		}
		der, err := x509.MarshalECPrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: ecdsa encoding: %v", ErrKeyGeneration, err)
		}
		keyPEM := pem.EncodeToMemory(&pem.Block{
			Type:  "EC PRIVATE KEY",
			Bytes: der,
		})
		return &KeyPair{Type: certType, Private: key, KeyPEM: keyPEM}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported cert type %q", ErrKeyGeneration, certType)
	}
}
