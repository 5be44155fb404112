package audit

import (
	"fmt"
	"strings"
	"sync"
)

var (
	// globalWriter is the default journal writer.
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex

	// enabled tracks whether journaling is active.
	enabled bool
)

// Init initializes the global journal with the given writer.
// Must be called before any events are logged.
func Init(w Writer) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		enabled = false
		return nil
	}

	globalWriter = w
	enabled = true
	return nil
}

// InitFile initializes the global journal with a file writer.
// An empty path disables journaling.
func InitFile(path string) error {
	if path == "" {
		return Init(nil)
	}

	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}

	return Init(w)
}

// Close closes the global journal writer.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalWriter != nil {
		err := globalWriter.Close()
		globalWriter = NopWriter{}
		enabled = false
		return err
	}
	return nil
}

// Enabled returns whether journaling is active.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return enabled
}

// Log writes an event to the global writer.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	if err := w.Write(event); err != nil {
		return fmt.Errorf("journal write failed: %w", err)
	}
	return nil
}

// LogRunStarted records the start of an issuance run.
func LogRunStarted(domains []string) error {
	event := NewEvent(EventRunStarted, ResultSuccess).
		WithObject(Object{Type: "run"}).
		WithContext(Context{Reason: strings.Join(domains, ",")})
	return Log(event)
}

// LogRunCompleted records the outcome of an issuance run.
func LogRunCompleted(succeeded, failed int) error {
	result := ResultSuccess
	if failed > 0 {
		result = ResultFailure
	}
	event := NewEvent(EventRunCompleted, result).
		WithObject(Object{Type: "run"}).
		WithContext(Context{Succeeded: succeeded, Failed: failed})
	return Log(event)
}

// LogCertIssued records a successful CA issuance for a domain.
func LogCertIssued(domain string, hostnames []string, certType string, validity int, fingerprint, expiresAt string) error {
	event := NewEvent(EventCertIssued, ResultSuccess).
		WithObject(Object{Type: "certificate", Domain: domain}).
		WithContext(Context{
			Hostnames:   hostnames,
			CertType:    certType,
			Validity:    validity,
			Fingerprint: fingerprint,
			ExpiresAt:   expiresAt,
		})
	return Log(event)
}

// LogCertSaved records artifacts persisted for one hostname.
func LogCertSaved(domain, hostname, certPath string) error {
	event := NewEvent(EventCertSaved, ResultSuccess).
		WithObject(Object{
			Type:     "certificate",
			Domain:   domain,
			Hostname: hostname,
			Path:     certPath,
		})
	return Log(event)
}

// LogCertFailed records a failed issuance attempt for a domain.
func LogCertFailed(domain, reason string) error {
	event := NewEvent(EventCertFailed, ResultFailure).
		WithObject(Object{Type: "certificate", Domain: domain}).
		WithContext(Context{Reason: reason})
	return Log(event)
}

// LogNotifySent records a renewal notification.
func LogNotifySent(domain, recipient string, success bool) error {
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	event := NewEvent(EventNotifySent, result).
		WithObject(Object{Type: "notification", Domain: domain}).
		WithContext(Context{Recipient: recipient})
	return Log(event)
}

// LogCronInstalled records an installed schedule entry.
func LogCronInstalled(domain, path string) error {
	event := NewEvent(EventCronInstalled, ResultSuccess).
		WithObject(Object{Type: "cron", Domain: domain, Path: path})
	return Log(event)
}

// LogCronRemoved records a removed schedule entry.
func LogCronRemoved(domain, path string) error {
	event := NewEvent(EventCronRemoved, ResultSuccess).
		WithObject(Object{Type: "cron", Domain: domain, Path: path})
	return Log(event)
}

// LogDomainAdded records a domain added to the configuration.
func LogDomainAdded(domain string, hostnames []string) error {
	event := NewEvent(EventDomainAdded, ResultSuccess).
		WithObject(Object{Type: "config", Domain: domain}).
		WithContext(Context{Hostnames: hostnames})
	return Log(event)
}

// LogDomainRemoved records a domain removed from the configuration.
func LogDomainRemoved(domain string) error {
	event := NewEvent(EventDomainRemoved, ResultSuccess).
		WithObject(Object{Type: "config", Domain: domain})
	return Log(event)
}

// LogConfigMigrated records a v1 to v2 configuration migration.
func LogConfigMigrated(source, target string) error {
	event := NewEvent(EventConfigMigrated, ResultSuccess).
		WithObject(Object{Type: "config", Path: target}).
		WithContext(Context{Reason: "migrated from " + source})
	return Log(event)
}
