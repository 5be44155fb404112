package main

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// executeCommand executes a Cobra command with the given args and returns output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err = root.Execute()
	return buf.String(), err
}

// resetFlags restores package-level flag values between test runs.
// Cobra retains flag values once a command has executed.
func resetFlags() {
	configPath = defaultConfigPath
	verbose = false
	auditLogPath = ""

	updateAll = false
	updateHostnames = nil
	updateCertType = ""
	updateValidity = 0
	updateCertDir = ""
	updateAPIURL = ""

	domainsAddHostnames = nil
	domainsAddZoneID = ""
	domainsAddLookup = false
	domainsAddOriginKey = ""
	domainsAddNotify = ""
	domainsAddCertType = ""
	domainsAddValidity = 0

	cronAll = false
	cronDir = ""

	migrateEnvPath = ""
	migrateCertDir = ""
	migrateCronDir = ""
	migrateDryRun = false
	migrateForce = false

	auditLogFile = ""
	auditTailNum = 10
	auditShowJSON = false

	serveHost = ""
	servePort = 0
}

// testContext holds test resources.
type testContext struct {
	t       *testing.T
	tempDir string
}

// newTestContext creates a new test context with a temp directory.
func newTestContext(t *testing.T) *testContext {
	t.Helper()
	resetFlags()
	dir, err := os.MkdirTemp("", "cfcert-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Cleanup(resetFlags)
	return &testContext{t: t, tempDir: dir}
}

// path returns a path within the temp directory.
func (tc *testContext) path(name string) string {
	return filepath.Join(tc.tempDir, name)
}

// writeFile writes content to a file in the temp directory.
func (tc *testContext) writeFile(name, content string) string {
	tc.t.Helper()
	path := tc.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		tc.t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		tc.t.Fatalf("Failed to write file %s: %v", name, err)
	}
	return path
}

// writeConfig writes a minimal configuration with the given domains
// and returns its path. Hostnames are {domain} and www.{domain}.
func (tc *testContext) writeConfig(domains ...string) string {
	tc.t.Helper()
	content := "default:\n" +
		"  origin_ca_key: v1.0-test-key\n" +
		"  cert_type: ecc\n" +
		"  enable_cron: true\n" +
		"  base_cert_dir: " + tc.path("certs") + "\n" +
		"domains:\n"
	for _, d := range domains {
		content += "  " + d + ":\n"
		content += "    hostnames: [" + d + ", www." + d + "]\n"
	}
	return tc.writeFile("config.yaml", content)
}

// =============================================================================
// Fake Cloudflare Origin CA
// =============================================================================

// testCA is an httptest server speaking the certificates endpoint.
type testCA struct {
	*httptest.Server

	// failDomains maps a first-hostname to a CA error message.
	failDomains map[string]string

	requests int
}

// newTestCA starts a fake Origin CA endpoint. Certificates returned
// are self-signed for the requested hostnames.
func newTestCA(t *testing.T) *testCA {
	t.Helper()
	ca := &testCA{failDomains: map[string]string{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /certificates", func(w http.ResponseWriter, r *http.Request) {
		ca.requests++

		var req struct {
			Hostnames         []string `json:"hostnames"`
			RequestedValidity int      `json:"requested_validity"`
			RequestType       string   `json:"request_type"`
			CSR               string   `json:"csr"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Hostnames) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprint(w, `{"success":false,"errors":[{"code":1000,"message":"bad request"}]}`)
			return
		}

		if msg, ok := ca.failDomains[req.Hostnames[0]]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, `{"success":false,"errors":[{"code":1010,"message":%q}]}`, msg)
			return
		}

		expires := time.Now().Add(time.Duration(req.RequestedValidity) * 24 * time.Hour).UTC()
		certPEM := selfSignedCertPEM(t, req.Hostnames, expires)
		resp := map[string]any{
			"success": true,
			"errors":  []any{},
			"result": map[string]any{
				"id":                 "test-" + req.Hostnames[0],
				"certificate":        certPEM,
				"hostnames":          req.Hostnames,
				"expires_at":         expires.Format(time.RFC3339),
				"request_type":       req.RequestType,
				"requested_validity": req.RequestedValidity,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	ca.Server = httptest.NewServer(mux)
	t.Cleanup(ca.Close)
	return ca
}

// selfSignedCertPEM issues a throwaway certificate for the hostnames.
func selfSignedCertPEM(t *testing.T, hostnames []string, notAfter time.Time) string {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("Failed to generate serial number: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: hostnames[0]},
		DNSNames:     hostnames,
		NotBefore:    time.Now().Add(-1 * time.Hour),
		NotAfter:     notAfter,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// assertFileExists verifies that a file exists at the given path.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("file %s does not exist", path)
	}
}

// assertFileNotExists verifies that no file exists at the given path.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("file %s should not exist", path)
	}
}

// assertNoError fails the test if err is not nil.
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertError fails the test if err is nil.
func assertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// assertContains fails the test when s does not contain substr.
func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !bytes.Contains([]byte(s), []byte(substr)) {
		t.Errorf("output %q does not contain %q", s, substr)
	}
}
