// Package manager drives the per-domain certificate lifecycle:
// resolve configuration, generate key material, request issuance,
// persist artifacts, notify.
package manager

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cksdxz1007/cloudflare-cert/internal/audit"
	"github.com/cksdxz1007/cloudflare-cert/internal/cfapi"
	"github.com/cksdxz1007/cloudflare-cert/internal/config"
	"github.com/cksdxz1007/cloudflare-cert/internal/crypto"
	"github.com/cksdxz1007/cloudflare-cert/internal/notify"
	"github.com/cksdxz1007/cloudflare-cert/internal/store"
	"github.com/cksdxz1007/cloudflare-cert/internal/x509util"
)

// Issuer performs the CA exchange. Satisfied by *cfapi.Client;
// injected so tests can fail individual domains.
type Issuer interface {
	Issue(ctx context.Context, req cfapi.IssueRequest) (*cfapi.Certificate, error)
}

// Notifier delivers renewal notifications. Satisfied by
// *notify.Notifier. Delivery failures never fail a domain.
type Notifier interface {
	Send(n notify.Notice) error
}

// Stage identifies where in the pipeline a domain succeeded or failed.
type Stage string

const (
	StageResolve  Stage = "resolve-config"
	StageGenerate Stage = "generate-key"
	StageIssue    Stage = "issue-certificate"
	StagePersist  Stage = "persist-artifacts"
	StageDone     Stage = "done"
)

// Overrides are per-invocation flag overrides applied on top of the
// resolved configuration. Zero values leave the resolved value alone.
type Overrides struct {
	Hostnames    []string
	CertType     config.CertType
	ValidityDays int
	BaseCertDir  string
}

// DomainResult is the terminal state of one domain's run.
type DomainResult struct {
	Domain    string
	Hostnames []string
	Stage     Stage
	Err       error

	Fingerprint string
	ExpiresAt   string
	Paths       []store.Paths

	// FirstRun is set when no artifacts existed before this run.
	// A failed first run means there is no fallback certificate on
	// disk at all.
	FirstRun bool
}

// Succeeded reports whether the domain reached the terminal success
// state.
func (r *DomainResult) Succeeded() bool { return r.Err == nil }

// Summary aggregates an "all domains" run.
type Summary struct {
	Succeeded int
	Failed    int
	Results   []DomainResult
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d succeeded, %d failed", s.Succeeded, s.Failed)
}

// Manager orchestrates issuance for the domains of one configuration
// snapshot. It holds no state across invocations.
type Manager struct {
	Config   *config.Config
	Issuer   Issuer
	Notifier Notifier // optional
	Log      logrus.FieldLogger
}

// New creates a manager for a loaded configuration.
func New(cfg *config.Config, issuer Issuer) *Manager {
	return &Manager{
		Config: cfg,
		Issuer: issuer,
		Log:    logrus.StandardLogger(),
	}
}

// Run executes the pipeline for a single domain. The returned result
// is terminal; nothing is persisted between stages.
func (m *Manager) Run(ctx context.Context, domain string, ov Overrides) *DomainResult {
	log := m.Log.WithField("domain", domain)
	result := &DomainResult{Domain: domain}

	fail := func(stage Stage, err error) *DomainResult {
		result.Stage = stage
		result.Err = err
		log.WithError(err).Errorf("renewal failed during %s", stage)
		if result.FirstRun {
			log.Warn("no previously issued certificate exists for this domain; " +
				"there is no fallback on disk until a run succeeds")
		}
		_ = audit.LogCertFailed(domain, err.Error())
		return result
	}

	// Resolve
	result.Stage = StageResolve
	resolved, err := m.Config.Resolve(domain)
	if err != nil {
		return fail(StageResolve, err)
	}
	applyOverrides(resolved, ov)
	result.Hostnames = resolved.Hostnames

	writer := store.NewWriter(resolved.BaseCertDir)
	result.FirstRun = true
	for _, hostname := range resolved.Hostnames {
		if writer.Exists(domain, hostname) {
			result.FirstRun = false
			break
		}
	}

	log.WithField("hostnames", resolved.Hostnames).
		Infof("requesting %s certificate valid %d days", resolved.CertType, resolved.ValidityDays)

	// Generate key material. A fresh key every run.
	result.Stage = StageGenerate
	keyPair, err := crypto.GenerateKeyPair(resolved.CertType)
	if err != nil {
		return fail(StageGenerate, err)
	}
	csrPEM, err := x509util.CreateCSR(keyPair.Private, resolved.Hostnames)
	if err != nil {
		return fail(StageGenerate, fmt.Errorf("%w: %v", crypto.ErrKeyGeneration, err))
	}

	// Issue
	result.Stage = StageIssue
	cert, err := m.Issuer.Issue(ctx, cfapi.IssueRequest{
		ServiceKey:   resolved.OriginCAKey,
		Hostnames:    resolved.Hostnames,
		CSR:          string(csrPEM),
		CertType:     resolved.CertType,
		ValidityDays: resolved.ValidityDays,
	})
	if err != nil {
		return fail(StageIssue, err)
	}

	fingerprint, err := x509util.FingerprintPEM([]byte(cert.Certificate))
	if err != nil {
		return fail(StageIssue, fmt.Errorf("CA returned an unusable certificate: %w", err))
	}
	result.Fingerprint = fingerprint
	result.ExpiresAt = cert.ExpiresAt

	_ = audit.LogCertIssued(domain, resolved.Hostnames, string(resolved.CertType),
		resolved.ValidityDays, fingerprint, cert.ExpiresAt)
	log.WithField("fingerprint", fingerprint).Info("certificate issued")

	// Persist one artifact set per hostname.
	result.Stage = StagePersist
	bundle := store.Bundle{
		CertificatePEM: []byte(cert.Certificate),
		PrivateKeyPEM:  keyPair.KeyPEM,
		Fingerprint:    fingerprint,
	}
	for _, hostname := range resolved.Hostnames {
		paths, err := writer.Persist(domain, hostname, bundle)
		if err != nil {
			log.WithError(err).Errorf("the certificate WAS issued at the CA but could not be saved locally "+
				"(hostname %s); do not re-issue blindly, fix the filesystem and re-run", hostname)
			return fail(StagePersist, err)
		}
		result.Paths = append(result.Paths, *paths)
		_ = audit.LogCertSaved(domain, hostname, paths.Certificate)
		log.WithField("hostname", hostname).Infof("artifacts saved to %s", paths.Dir)
	}

	result.Stage = StageDone
	m.sendNotice(log, resolved, result)
	return result
}

// sendNotice delivers the renewal notification when a notifier and a
// recipient are configured. Failures are logged and swallowed.
func (m *Manager) sendNotice(log logrus.FieldLogger, resolved *config.Resolved, result *DomainResult) {
	if m.Notifier == nil || resolved.NotificationEmail == "" {
		return
	}

	var artifacts []string
	for _, p := range result.Paths {
		artifacts = append(artifacts, p.Certificate, p.PrivateKey, p.Fingerprint)
	}

	err := m.Notifier.Send(notify.Notice{
		Domain:      result.Domain,
		Hostnames:   result.Hostnames,
		Fingerprint: result.Fingerprint,
		ExpiresAt:   result.ExpiresAt,
		Artifacts:   artifacts,
		Recipient:   resolved.NotificationEmail,
	})
	_ = audit.LogNotifySent(result.Domain, resolved.NotificationEmail, err == nil)
	if err != nil {
		log.WithError(err).Warn("renewal notification failed (renewal itself succeeded)")
		return
	}
	log.Infof("renewal notification sent to %s", resolved.NotificationEmail)
}

// RunAll executes the pipeline for every configured domain, in file
// order, sequentially. One domain's failure never aborts the others.
func (m *Manager) RunAll(ctx context.Context, ov Overrides) *Summary {
	domains := m.Config.Domains()
	_ = audit.LogRunStarted(domains)

	summary := &Summary{}
	for _, domain := range domains {
		result := m.Run(ctx, domain, ov)
		summary.Results = append(summary.Results, *result)
		if result.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	_ = audit.LogRunCompleted(summary.Succeeded, summary.Failed)
	m.Log.Infof("run complete: %s", summary)
	return summary
}

func applyOverrides(r *config.Resolved, ov Overrides) {
	if len(ov.Hostnames) > 0 {
		r.Hostnames = ov.Hostnames
	}
	if ov.CertType != "" {
		r.CertType = ov.CertType
	}
	if ov.ValidityDays != 0 {
		r.ValidityDays = ov.ValidityDays
	}
	if ov.BaseCertDir != "" {
		r.BaseCertDir = ov.BaseCertDir
	}
}
