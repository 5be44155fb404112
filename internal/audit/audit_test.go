package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestU_NewEvent_Creation(t *testing.T) {
	event := NewEvent(EventCertIssued, ResultSuccess)

	if event.EventType != EventCertIssued {
		t.Errorf("EventType = %v, want %v", event.EventType, EventCertIssued)
	}
	if event.Result != ResultSuccess {
		t.Errorf("Result = %v, want %v", event.Result, ResultSuccess)
	}
	if event.Timestamp == "" {
		t.Error("Timestamp should not be empty")
	}
	if event.Actor.ID == "" {
		t.Error("Actor.ID should not be empty")
	}
}

func TestU_Event_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   *Event
		wantErr bool
	}{
		{
			name:    "valid event",
			event:   NewEvent(EventCertIssued, ResultSuccess),
			wantErr: false,
		},
		{
			name: "missing event type",
			event: &Event{
				Timestamp: "2026-01-01T00:00:00Z",
				Actor:     Actor{Type: "user", ID: "test"},
				Result:    ResultSuccess,
			},
			wantErr: true,
		},
		{
			name: "missing timestamp",
			event: &Event{
				EventType: EventCertIssued,
				Actor:     Actor{Type: "user", ID: "test"},
				Result:    ResultSuccess,
			},
			wantErr: true,
		},
		{
			name: "missing actor",
			event: &Event{
				EventType: EventCertIssued,
				Timestamp: "2026-01-01T00:00:00Z",
				Result:    ResultSuccess,
			},
			wantErr: true,
		},
		{
			name: "missing result",
			event: &Event{
				EventType: EventCertIssued,
				Timestamp: "2026-01-01T00:00:00Z",
				Actor:     Actor{Type: "user", ID: "test"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestU_Event_CanonicalJSON(t *testing.T) {
	event := NewEvent(EventCertIssued, ResultSuccess)
	event.Hash = "sha256:should-not-appear"

	data, err := event.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}

	if strings.Contains(string(data), "should-not-appear") {
		t.Error("CanonicalJSON() must exclude the Hash field")
	}
}

func TestU_FileWriter_Write(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "journal.jsonl")

	w, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}

	event := NewEvent(EventCertIssued, ResultSuccess).
		WithObject(Object{Type: "certificate", Domain: "example.com"})

	if err := w.Write(event); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if event.HashPrev != GenesisHash {
		t.Errorf("first event HashPrev = %s, want %s", event.HashPrev, GenesisHash)
	}
	if !strings.HasPrefix(event.Hash, HashPrefix) {
		t.Errorf("Hash = %s, want %s prefix", event.Hash, HashPrefix)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestU_FileWriter_Append(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "journal.jsonl")

	// First writer
	w1, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	e1 := NewEvent(EventRunStarted, ResultSuccess)
	if err := w1.Write(e1); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	_ = w1.Close()

	// Second writer must continue the chain
	w2, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() reopen error = %v", err)
	}
	e2 := NewEvent(EventRunCompleted, ResultSuccess)
	if err := w2.Write(e2); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	_ = w2.Close()

	if e2.HashPrev != e1.Hash {
		t.Errorf("chain broken across reopen: prev = %s, want %s", e2.HashPrev, e1.Hash)
	}
}

func TestU_VerifyChain_ValidLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "journal.jsonl")

	w, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := w.Write(NewEvent(EventCertSaved, ResultSuccess)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	_ = w.Close()

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != 5 {
		t.Errorf("VerifyChain() count = %d, want 5", count)
	}
}

func TestU_VerifyChain_Tampering(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "journal.jsonl")

	w, err := NewFileWriter(logPath)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	_ = w.Write(NewEvent(EventCertIssued, ResultSuccess))
	_ = w.Write(NewEvent(EventCertSaved, ResultSuccess))
	_ = w.Write(NewEvent(EventRunCompleted, ResultSuccess))
	_ = w.Close()

	// Flip the type of the second event
	data, _ := os.ReadFile(logPath)
	tampered := strings.Replace(string(data), `"CERT_SAVED"`, `"CERT_FAILED"`, 1)
	if err := os.WriteFile(logPath, []byte(tampered), 0600); err != nil {
		t.Fatalf("failed to tamper log: %v", err)
	}

	count, err := VerifyChain(logPath)
	if err == nil {
		t.Error("VerifyChain() should fail on tampered journal")
	}
	if count != 1 {
		t.Errorf("VerifyChain() count = %d, want 1 (events before tampering)", count)
	}
}

func TestU_NopWriter_Write(t *testing.T) {
	w := NopWriter{}
	if err := w.Write(NewEvent(EventCertIssued, ResultSuccess)); err != nil {
		t.Errorf("NopWriter.Write() error = %v", err)
	}
	if w.LastHash() != GenesisHash {
		t.Errorf("NopWriter.LastHash() = %s, want %s", w.LastHash(), GenesisHash)
	}
}

func TestU_GlobalAudit_InitAndLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "journal.jsonl")

	if err := InitFile(logPath); err != nil {
		t.Fatalf("InitFile() error = %v", err)
	}
	defer func() { _ = Close() }()

	if !Enabled() {
		t.Error("Enabled() = false after InitFile")
	}

	if err := LogCertIssued("example.com", []string{"example.com", "www.example.com"},
		"rsa", 90, "sha256:abc", "2026-11-27T00:00:00Z"); err != nil {
		t.Fatalf("LogCertIssued() error = %v", err)
	}

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != 1 {
		t.Errorf("VerifyChain() count = %d, want 1", count)
	}
}

func TestU_LogHelpers_AllEvents(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "journal.jsonl")

	if err := InitFile(logPath); err != nil {
		t.Fatalf("InitFile() error = %v", err)
	}
	defer func() { _ = Close() }()

	assertNoErr := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("log helper error = %v", err)
		}
	}

	assertNoErr(LogRunStarted([]string{"example.com"}))
	assertNoErr(LogCertIssued("example.com", []string{"example.com"}, "ecc", 90, "sha256:ff", ""))
	assertNoErr(LogCertSaved("example.com", "www.example.com", "/etc/cert/example.com/www.example.com/example.com.www.example.com.crt"))
	assertNoErr(LogCertFailed("broken.org", "issuance rejected"))
	assertNoErr(LogNotifySent("example.com", "ops@example.com", true))
	assertNoErr(LogCronInstalled("example.com", "/etc/cron.d/cert-update-example.com"))
	assertNoErr(LogCronRemoved("example.com", "/etc/cron.d/cert-update-example.com"))
	assertNoErr(LogDomainAdded("example.com", []string{"example.com"}))
	assertNoErr(LogDomainRemoved("example.com"))
	assertNoErr(LogConfigMigrated("/etc/cloudflare/env", "/etc/cloudflare/config.yaml"))
	assertNoErr(LogRunCompleted(2, 1))

	count, err := VerifyChain(logPath)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if count != 11 {
		t.Errorf("VerifyChain() count = %d, want 11", count)
	}

	events, err := ReadEvents(logPath)
	if err != nil {
		t.Fatalf("ReadEvents() error = %v", err)
	}
	if events[len(events)-1].Result != ResultFailure {
		t.Error("RUN_COMPLETED with failures should record a failure result")
	}
}

func TestU_ReadEvents_Empty(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "journal.jsonl")
	if err := os.WriteFile(logPath, nil, 0600); err != nil {
		t.Fatal(err)
	}

	events, err := ReadEvents(logPath)
	if err != nil {
		t.Fatalf("ReadEvents() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("ReadEvents() = %d events, want 0", len(events))
	}
}
