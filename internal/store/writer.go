// Package store persists issued certificate artifacts to the
// deterministic directory layout:
//
//	{base}/{domain}/{hostname}/{domain}.{hostname}.{crt,key,fingerprint}
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrWrite indicates a filesystem failure persisting artifacts, or an
// unsafe domain/hostname value rejected before any write.
var ErrWrite = errors.New("artifact write failed")

// Bundle is the set of artifacts produced by one issuance.
type Bundle struct {
	CertificatePEM []byte
	PrivateKeyPEM  []byte
	Fingerprint    string // lowercase hex SHA-256 over the DER bytes
}

// Paths are the files written for one hostname.
type Paths struct {
	Dir         string
	Certificate string
	PrivateKey  string
	Fingerprint string
}

// Writer persists bundles under a base directory.
type Writer struct {
	Base string
}

// NewWriter creates a writer rooted at base.
func NewWriter(base string) *Writer {
	return &Writer{Base: base}
}

// validateSegment rejects values that cannot be used verbatim as one
// path segment. Inputs come from the operator's configuration, but a
// traversal sequence here would escape the certificate tree.
func validateSegment(kind, s string) error {
	if s == "" || s == "." || s == ".." {
		return fmt.Errorf("%w: %s %q is not a valid path segment", ErrWrite, kind, s)
	}
	if strings.ContainsAny(s, "/\\") || strings.Contains(s, "..") {
		return fmt.Errorf("%w: %s %q contains path separators or traversal", ErrWrite, kind, s)
	}
	if strings.HasPrefix(s, ".") {
		return fmt.Errorf("%w: %s %q must not start with a dot", ErrWrite, kind, s)
	}
	return nil
}

// layout computes the artifact paths for a domain/hostname pair.
func (w *Writer) layout(domain, hostname string) (*Paths, error) {
	if err := validateSegment("domain", domain); err != nil {
		return nil, err
	}
	if err := validateSegment("hostname", hostname); err != nil {
		return nil, err
	}

	dir := filepath.Join(w.Base, domain, hostname)
	prefix := filepath.Join(dir, domain+"."+hostname)
	return &Paths{
		Dir:         dir,
		Certificate: prefix + ".crt",
		PrivateKey:  prefix + ".key",
		Fingerprint: prefix + ".fingerprint",
	}, nil
}

// Persist writes the three artifact files for one hostname. Existing
// files are replaced; each file is written to a temp file and renamed
// into place so a crash never leaves a partial artifact behind.
//
// The private key is owner-readable only. The fingerprint file gets a
// trailing newline.
//
// Stale directories from a previous, larger hostname list are NOT
// pruned; that matches the layout's historical behavior and keeps
// Persist free of delete permissions. See `cfcert status` for spotting
// leftovers.
func (w *Writer) Persist(domain, hostname string, b Bundle) (*Paths, error) {
	p, err := w.layout(domain, hostname)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrWrite, p.Dir, err)
	}

	if err := writeFileAtomic(p.Certificate, b.CertificatePEM, 0644); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(p.PrivateKey, b.PrivateKeyPEM, 0600); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(p.Fingerprint, []byte(b.Fingerprint+"\n"), 0644); err != nil {
		return nil, err
	}

	return p, nil
}

// Exists reports whether a certificate artifact is present for the
// pair. Used for the first-run warning: a failed renewal with no
// prior artifact means no fallback certificate exists at all.
func (w *Writer) Exists(domain, hostname string) bool {
	p, err := w.layout(domain, hostname)
	if err != nil {
		return false
	}
	_, err = os.Stat(p.Certificate)
	return err == nil
}

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by a rename.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %v", ErrWrite, dir, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: setting permissions on %s: %v", ErrWrite, path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: writing %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", ErrWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", ErrWrite, path, err)
	}
	return nil
}
