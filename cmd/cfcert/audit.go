package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cksdxz1007/cloudflare-cert/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit journal management",
	Long: `Commands for managing and verifying the lifecycle journal.

The journal is a tamper-evident record of certificate lifecycle
transitions. Each event is cryptographically chained using SHA-256
hashes.

Examples:
  # Verify journal integrity
  cfcert audit verify --log /var/log/cfcert-audit.jsonl

  # Show last 10 events
  cfcert audit tail --log /var/log/cfcert-audit.jsonl -n 10`,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify journal integrity",
	Long: `Verify the cryptographic hash chain of a journal file.

Each event in the journal contains:
  - hash_prev: SHA-256 hash of the previous event
  - hash: SHA-256 hash of the current event

The chain starts with hash_prev="sha256:genesis" for the first event.

If the chain is broken (events modified, deleted, or inserted),
this command will report the location and nature of the tampering.`,
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent journal events",
	Long:  `Display the most recent events from the journal file.`,
	RunE:  runAuditTail,
}

var (
	auditLogFile  string
	auditTailNum  int
	auditShowJSON bool
)

func init() {
	auditVerifyCmd.Flags().StringVar(&auditLogFile, "log", "", "Path to journal file (required)")
	_ = auditVerifyCmd.MarkFlagRequired("log")

	auditTailCmd.Flags().StringVar(&auditLogFile, "log", "", "Path to journal file (required)")
	_ = auditTailCmd.MarkFlagRequired("log")
	auditTailCmd.Flags().IntVarP(&auditTailNum, "num", "n", 10, "Number of events to show")
	auditTailCmd.Flags().BoolVar(&auditShowJSON, "json", false, "Output as JSON")

	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	cmd.Printf("Verifying journal: %s\n\n", auditLogFile)

	count, err := audit.VerifyChain(auditLogFile)
	if err != nil {
		cmd.Printf("VERIFICATION FAILED\n")
		cmd.Printf("  Valid events: %d\n", count)
		cmd.Printf("  Error: %s\n", err)
		return fmt.Errorf("journal verification failed: %w", err)
	}

	cmd.Printf("VERIFICATION PASSED\n")
	cmd.Printf("  Total events: %d\n", count)
	cmd.Printf("  Hash chain: VALID\n")

	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(auditLogFile)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if len(data) == 0 {
		cmd.Println("Journal is empty")
		return nil
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}

	// Get last N lines
	start := 0
	if len(lines) > auditTailNum {
		start = len(lines) - auditTailNum
	}
	lines = lines[start:]

	if auditShowJSON {
		cmd.Println("[")
		for i, line := range lines {
			if i > 0 {
				cmd.Println(",")
			}
			cmd.Print(line)
		}
		cmd.Println("\n]")
		return nil
	}

	for _, line := range lines {
		var event audit.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			cmd.Printf("  [ERROR] %s\n", err)
			continue
		}
		printEvent(cmd, &event)
	}

	return nil
}

func printEvent(cmd *cobra.Command, e *audit.Event) {
	resultIcon := "✓"
	if e.Result == audit.ResultFailure {
		resultIcon = "✗"
	}

	cmd.Printf("[%s] %s %s\n", e.Timestamp, resultIcon, e.EventType)
	cmd.Printf("    Actor:  %s@%s\n", e.Actor.ID, e.Actor.Host)

	if e.Object.Type != "" {
		cmd.Printf("    Object: %s", e.Object.Type)
		if e.Object.Domain != "" {
			cmd.Printf(" domain=%s", e.Object.Domain)
		}
		if e.Object.Hostname != "" {
			cmd.Printf(" hostname=%s", e.Object.Hostname)
		}
		if e.Object.Path != "" {
			cmd.Printf(" path=%s", e.Object.Path)
		}
		cmd.Println()
	}

	if e.Context.Fingerprint != "" || e.Context.Reason != "" || e.Context.Recipient != "" {
		cmd.Print("    Context:")
		if e.Context.Fingerprint != "" {
			cmd.Printf(" fingerprint=%s", e.Context.Fingerprint)
		}
		if e.Context.Recipient != "" {
			cmd.Printf(" recipient=%s", e.Context.Recipient)
		}
		if e.Context.Reason != "" {
			cmd.Printf(" reason=%s", e.Context.Reason)
		}
		cmd.Println()
	}

	cmd.Println()
}
