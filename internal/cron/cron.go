// Package cron manages the per-domain renewal entries under
// /etc/cron.d. Scheduling is delegated to the OS cron daemon; this
// package only does file bookkeeping.
package cron

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDir is the system cron drop-in directory.
	DefaultDir = "/etc/cron.d"

	// Schedule fires at 03:00 on the 1st of every third month, well
	// inside the default 90-day validity.
	Schedule = "0 3 1 */3 *"

	filePrefix = "cert-update-"
)

// Manager installs and removes renewal entries.
type Manager struct {
	// Dir is the cron drop-in directory. Override for tests or
	// non-root use.
	Dir string

	// Command is the absolute path of the cfcert binary invoked by
	// the entry.
	Command string
}

// NewManager creates a manager writing to dir (DefaultDir when empty).
func NewManager(dir, command string) *Manager {
	if dir == "" {
		dir = DefaultDir
	}
	return &Manager{Dir: dir, Command: command}
}

// EntryPath returns the cron file path for a domain.
func (m *Manager) EntryPath(domain string) string {
	return filepath.Join(m.Dir, filePrefix+sanitizeName(domain))
}

// sanitizeName makes the domain usable as a cron.d file name. cron
// ignores files containing dots, so they are mapped to dashes.
func sanitizeName(domain string) string {
	return strings.ReplaceAll(domain, ".", "-")
}

// Render produces the cron.d file content for a domain.
func (m *Manager) Render(domain, configPath string) string {
	var b strings.Builder
	b.WriteString("# Managed by cfcert; changes are overwritten on the next `cfcert cron install`.\n")
	b.WriteString("CFCERT_SCHEDULED=1\n")
	fmt.Fprintf(&b, "%s root %s update %s --config %s >> /var/log/cfcert.log 2>&1\n",
		Schedule, m.Command, domain, configPath)
	return b.String()
}

// Install writes the entry for a domain. The file is only touched
// when its content differs from what would be written; changed
// reports whether a write happened.
func (m *Manager) Install(domain, configPath string) (path string, changed bool, err error) {
	if err := validDomain(domain); err != nil {
		return "", false, err
	}

	path = m.EntryPath(domain)
	content := m.Render(domain, configPath)

	if existing, err := os.ReadFile(path); err == nil && string(existing) == content {
		return path, false, nil
	}

	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return "", false, fmt.Errorf("failed to create %s: %w", m.Dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", false, fmt.Errorf("failed to write cron entry: %w", err)
	}
	return path, true, nil
}

// Remove deletes the entry for a domain. Removing an absent entry is
// not an error; removed reports whether a file was deleted.
func (m *Manager) Remove(domain string) (path string, removed bool, err error) {
	if err := validDomain(domain); err != nil {
		return "", false, err
	}

	path = m.EntryPath(domain)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return path, false, nil
		}
		return path, false, fmt.Errorf("failed to remove cron entry: %w", err)
	}
	return path, true, nil
}

// Installed reports whether an entry exists for a domain.
func (m *Manager) Installed(domain string) bool {
	if validDomain(domain) != nil {
		return false
	}
	_, err := os.Stat(m.EntryPath(domain))
	return err == nil
}

func validDomain(domain string) error {
	if domain == "" || strings.ContainsAny(domain, "/\\") || strings.Contains(domain, "..") {
		return fmt.Errorf("invalid domain %q for cron entry", domain)
	}
	return nil
}
