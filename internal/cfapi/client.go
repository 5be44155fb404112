// Package cfapi implements the Cloudflare client/v4 calls used for
// origin certificate issuance and zone lookups.
package cfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cksdxz1007/cloudflare-cert/internal/config"
)

const (
	// DefaultBaseURL is the Cloudflare client API root.
	DefaultBaseURL = "https://api.cloudflare.com/client/v4"

	// DefaultTimeout bounds each API call. Runs under cron must not
	// hang indefinitely on a stuck connection.
	DefaultTimeout = 30 * time.Second
)

// ErrTransport indicates a network-level failure reaching the CA
// (timeout, DNS, TLS). Potentially transient; the next scheduled run
// is the retry mechanism.
var ErrTransport = errors.New("cloudflare api unreachable")

// ValidValidityDays are the validity values the CA accepts for origin
// certificates, in days.
var ValidValidityDays = []int{7, 30, 90, 365, 730, 1095, 5475}

// ValidateValidityDays rejects validity values outside the accepted
// enumeration before any network call is made.
func ValidateValidityDays(days int) error {
	for _, v := range ValidValidityDays {
		if days == v {
			return nil
		}
	}
	return fmt.Errorf("validity of %d days is not accepted by the CA (accepted: %v)", days, ValidValidityDays)
}

// ResponseError is one error entry from the CA response envelope.
// Code and message are surfaced verbatim for operator diagnosis.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// IssuanceError indicates the CA rejected the request: invalid CSR,
// invalid key, rate limit, bad validity value. Fatal for the domain.
type IssuanceError struct {
	StatusCode int
	Errors     []ResponseError
}

func (e *IssuanceError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("certificate request rejected (HTTP %d)", e.StatusCode)
	}
	parts := make([]string, len(e.Errors))
	for i, re := range e.Errors {
		parts[i] = fmt.Sprintf("%d: %s", re.Code, re.Message)
	}
	return fmt.Sprintf("certificate request rejected (HTTP %d): %s", e.StatusCode, strings.Join(parts, "; "))
}

// Client calls the Cloudflare client API. The zero value is not
// usable; use NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given API root. An empty baseURL
// selects the production Cloudflare endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// IssueRequest holds the parameters for one certificate issuance.
// ServiceKey is the account-level Origin CA key; it is sent as the
// X-Auth-User-Service-Key header, not a bearer token.
type IssueRequest struct {
	ServiceKey   string
	Hostnames    []string
	CSR          string
	CertType     config.CertType
	ValidityDays int
}

// Certificate is the issuance result reported by the CA. The private
// key never leaves the client; only the signed certificate comes back.
type Certificate struct {
	ID                string   `json:"id"`
	Certificate       string   `json:"certificate"`
	Hostnames         []string `json:"hostnames"`
	ExpiresAt         string   `json:"expires_at"`
	RequestType       string   `json:"request_type"`
	RequestedValidity int      `json:"requested_validity"`
}

// envelope is the Cloudflare v4 response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Errors  []ResponseError `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

// requestType maps the configured cert type to the CA request_type.
func requestType(t config.CertType) (string, error) {
	switch t {
	case config.CertTypeRSA:
		return "origin-rsa", nil
	case config.CertTypeECC:
		return "origin-ecc", nil
	default:
		return "", fmt.Errorf("unsupported cert type %q", t)
	}
}

// Issue submits a CSR and returns the signed certificate.
//
// One synchronous POST, no retries: retry policy belongs to the
// scheduling layer (the next cron cycle).
func (c *Client) Issue(ctx context.Context, req IssueRequest) (*Certificate, error) {
	if req.ServiceKey == "" {
		return nil, fmt.Errorf("origin CA key is required")
	}
	if len(req.Hostnames) == 0 {
		return nil, fmt.Errorf("at least one hostname is required")
	}
	if req.CSR == "" {
		return nil, fmt.Errorf("csr is required")
	}
	reqType, err := requestType(req.CertType)
	if err != nil {
		return nil, err
	}
	if err := ValidateValidityDays(req.ValidityDays); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{
		"hostnames":          req.Hostnames,
		"requested_validity": req.ValidityDays,
		"request_type":       reqType,
		"csr":                req.CSR,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/certificates", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Auth-User-Service-Key", req.ServiceKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, err
	}

	var cert Certificate
	if err := json.Unmarshal(env.Result, &cert); err != nil {
		return nil, fmt.Errorf("failed to decode issuance result: %w", err)
	}
	if cert.Certificate == "" {
		return nil, &IssuanceError{
			StatusCode: resp.StatusCode,
			Errors:     []ResponseError{{Message: "response contained no certificate"}},
		}
	}

	return &cert, nil
}

// decodeEnvelope reads a v4 response and converts rejections into
// IssuanceError with the CA's codes and messages intact.
func decodeEnvelope(resp *http.Response) (*envelope, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &IssuanceError{StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		return nil, &IssuanceError{StatusCode: resp.StatusCode, Errors: env.Errors}
	}
	return &env, nil
}
