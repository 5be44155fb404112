package handler

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cksdxz1007/cloudflare-cert/internal/api/dto"
	"github.com/cksdxz1007/cloudflare-cert/internal/config"
	"github.com/cksdxz1007/cloudflare-cert/internal/store"
)

// DomainHandler serves read-only domain and certificate status. It
// never triggers issuance; renewals stay on the CLI and cron path.
type DomainHandler struct {
	cfg *config.Config
}

// NewDomainHandler creates a new DomainHandler.
func NewDomainHandler(cfg *config.Config) *DomainHandler {
	return &DomainHandler{cfg: cfg}
}

// List handles GET /api/v1/domains
func (h *DomainHandler) List(w http.ResponseWriter, r *http.Request) {
	resp := dto.DomainListResponse{Domains: []dto.DomainSummary{}}
	for _, name := range h.cfg.Domains() {
		resolved, err := h.cfg.Resolve(name)
		if err != nil {
			// Entries that fail validation still appear, without
			// the merged settings.
			resp.Domains = append(resp.Domains, dto.DomainSummary{Domain: name})
			continue
		}
		resp.Domains = append(resp.Domains, dto.DomainSummary{
			Domain:       name,
			Hostnames:    resolved.Hostnames,
			CertType:     string(resolved.CertType),
			ValidityDays: resolved.ValidityDays,
			EnableCron:   resolved.EnableCron,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/domains/{domain}
func (h *DomainHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain")

	resolved, err := h.cfg.Resolve(name)
	if err != nil {
		if errors.Is(err, config.ErrUnknownDomain) {
			respondError(w, http.StatusNotFound, &dto.APIError{
				Code:    "DOMAIN_NOT_FOUND",
				Message: "domain " + name + " is not configured",
			})
			return
		}
		respondError(w, http.StatusUnprocessableEntity, &dto.APIError{
			Code:    "INVALID_DOMAIN_CONFIG",
			Message: err.Error(),
		})
		return
	}

	writer := store.NewWriter(resolved.BaseCertDir)
	now := time.Now()

	resp := dto.DomainStatusResponse{
		Domain:  name,
		CertDir: resolved.BaseCertDir,
	}
	for _, hostname := range resolved.Hostnames {
		status := dto.HostnameStatus{Hostname: hostname}

		artifact, err := writer.Inspect(name, hostname)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Never issued. Issued stays false.
		case err != nil:
			status.Error = err.Error()
		default:
			status.Issued = true
			status.Fingerprint = artifact.ComputedFingerprint
			status.NotBefore = artifact.NotBefore.UTC().Format(time.RFC3339)
			status.NotAfter = artifact.NotAfter.UTC().Format(time.RFC3339)
			status.DaysLeft = artifact.DaysLeft(now)
			status.DNSNames = artifact.DNSNames
			status.Consistent = artifact.FingerprintConsistent()
		}

		resp.Hostnames = append(resp.Hostnames, status)
	}

	respondJSON(w, http.StatusOK, resp)
}
