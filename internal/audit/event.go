// Package audit provides a tamper-evident journal of certificate
// lifecycle transitions.
//
// The journal is separate from the operator log and designed for:
//   - Post-incident reconstruction of what was issued, when, and for whom
//   - Tamper evidence via cryptographic hash chaining
//
// Key principles:
//   - Never record secrets (private keys, Origin CA keys, SMTP passwords)
//   - All timestamps in UTC
//   - Hash chain for integrity verification
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// EventType represents the category of journal event.
type EventType string

const (
	// Run lifecycle events
	EventRunStarted   EventType = "RUN_STARTED"
	EventRunCompleted EventType = "RUN_COMPLETED"

	// Certificate events
	EventCertIssued EventType = "CERT_ISSUED"
	EventCertSaved  EventType = "CERT_SAVED"
	EventCertFailed EventType = "CERT_FAILED"

	// Notification events
	EventNotifySent EventType = "NOTIFY_SENT"

	// Schedule events
	EventCronInstalled EventType = "CRON_INSTALLED"
	EventCronRemoved   EventType = "CRON_REMOVED"

	// Configuration events
	EventDomainAdded    EventType = "DOMAIN_ADDED"
	EventDomainRemoved  EventType = "DOMAIN_REMOVED"
	EventConfigMigrated EventType = "CONFIG_MIGRATED"
)

// Result represents the outcome of a journaled operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Actor represents who performed the action.
type Actor struct {
	Type string `json:"type"`           // "user", "cron"
	ID   string `json:"id"`             // username or service identifier
	Host string `json:"host,omitempty"` // hostname where action occurred
}

// Object represents what was acted upon.
type Object struct {
	Type     string `json:"type"`               // "certificate", "config", "cron"
	Domain   string `json:"domain,omitempty"`   // configured domain key
	Hostname string `json:"hostname,omitempty"` // certificate hostname
	Path     string `json:"path,omitempty"`     // file path written or removed
}

// Context provides additional details about the operation.
type Context struct {
	Hostnames   []string `json:"hostnames,omitempty"`   // full SAN list of the request
	CertType    string   `json:"cert_type,omitempty"`   // "rsa" or "ecc"
	Validity    int      `json:"validity,omitempty"`    // requested validity in days
	Fingerprint string   `json:"fingerprint,omitempty"` // SHA-256 certificate fingerprint
	ExpiresAt   string   `json:"expires_at,omitempty"`  // certificate expiry reported by the CA
	Recipient   string   `json:"recipient,omitempty"`   // notification recipient
	Reason      string   `json:"reason,omitempty"`      // failure reason
	Succeeded   int      `json:"succeeded,omitempty"`   // run summary counters
	Failed      int      `json:"failed,omitempty"`
}

// Event represents a single journal entry.
type Event struct {
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     Actor     `json:"actor"`
	Object    Object    `json:"object"`
	Context   Context   `json:"context,omitempty"`
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"` // SHA-256 hash of previous event
	Hash      string    `json:"hash"`      // SHA-256 hash of this event
}

// NewEvent creates a new event with current timestamp and actor info.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows
	}
	if username == "" {
		username = "unknown"
	}

	actorType := "user"
	// Cron jobs run without a controlling terminal; the schedule installs
	// CFCERT_SCHEDULED=1 so runs can be told apart in the journal.
	if os.Getenv("CFCERT_SCHEDULED") != "" {
		actorType = "cron"
	}

	return &Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor: Actor{
			Type: actorType,
			ID:   username,
			Host: hostname,
		},
		Result: result,
	}
}

// WithObject sets the object field.
func (e *Event) WithObject(obj Object) *Event {
	e.Object = obj
	return e
}

// WithContext sets the context field.
func (e *Event) WithContext(ctx Context) *Event {
	e.Context = ctx
	return e
}

// Validate checks that required fields are present.
func (e *Event) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if e.Timestamp == "" {
		return fmt.Errorf("timestamp is required")
	}
	if e.Actor.Type == "" || e.Actor.ID == "" {
		return fmt.Errorf("actor type and id are required")
	}
	if e.Result == "" {
		return fmt.Errorf("result is required")
	}
	return nil
}

// CanonicalJSON returns the event as canonical JSON for hashing.
// Excludes the Hash field to allow hash calculation.
func (e *Event) CanonicalJSON() ([]byte, error) {
	type eventForHash struct {
		EventType EventType `json:"event_type"`
		Timestamp string    `json:"timestamp"`
		Actor     Actor     `json:"actor"`
		Object    Object    `json:"object"`
		Context   Context   `json:"context,omitempty"`
		Result    Result    `json:"result"`
		HashPrev  string    `json:"hash_prev"`
	}

	canonical := eventForHash{
		EventType: e.EventType,
		Timestamp: e.Timestamp,
		Actor:     e.Actor,
		Object:    e.Object,
		Context:   e.Context,
		Result:    e.Result,
		HashPrev:  e.HashPrev,
	}

	return json.Marshal(canonical)
}

// JSON returns the full event as JSON.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
