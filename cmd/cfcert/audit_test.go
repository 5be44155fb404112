package main

import (
	"os"
	"strings"
	"testing"
)

func TestF_Audit_VerifyAfterRun(t *testing.T) {
	tc := newTestContext(t)
	ca := newTestCA(t)
	cfgPath := tc.writeConfig("example.com")
	logPath := tc.path("audit.jsonl")

	_, err := executeCommand(rootCmd,
		"update", "example.com",
		"--config", cfgPath,
		"--api-url", ca.URL,
		"--audit-log", logPath)
	assertNoError(t, err)
	assertFileExists(t, logPath)

	resetFlags()
	output, err := executeCommand(rootCmd, "audit", "verify", "--log", logPath)
	assertNoError(t, err)
	assertContains(t, output, "VERIFICATION PASSED")
}

func TestF_Audit_VerifyDetectsTampering(t *testing.T) {
	tc := newTestContext(t)
	ca := newTestCA(t)
	cfgPath := tc.writeConfig("example.com")
	logPath := tc.path("audit.jsonl")

	_, err := executeCommand(rootCmd,
		"update", "example.com",
		"--config", cfgPath,
		"--api-url", ca.URL,
		"--audit-log", logPath)
	assertNoError(t, err)

	data, err := os.ReadFile(logPath)
	assertNoError(t, err)
	tampered := strings.Replace(string(data), "CERT_ISSUED", "CERT_REVOKED", 1)
	if tampered == string(data) {
		t.Fatal("journal has no CERT_ISSUED event to tamper with")
	}
	assertNoError(t, os.WriteFile(logPath, []byte(tampered), 0600))

	resetFlags()
	output, err := executeCommand(rootCmd, "audit", "verify", "--log", logPath)
	assertError(t, err)
	assertContains(t, output, "VERIFICATION FAILED")
}

func TestF_Audit_Tail(t *testing.T) {
	tc := newTestContext(t)
	ca := newTestCA(t)
	cfgPath := tc.writeConfig("example.com")
	logPath := tc.path("audit.jsonl")

	_, err := executeCommand(rootCmd,
		"update", "example.com",
		"--config", cfgPath,
		"--api-url", ca.URL,
		"--audit-log", logPath)
	assertNoError(t, err)

	resetFlags()
	output, err := executeCommand(rootCmd, "audit", "tail", "--log", logPath, "-n", "50")
	assertNoError(t, err)
	assertContains(t, output, "CERT_ISSUED")
	assertContains(t, output, "CERT_SAVED")
}
