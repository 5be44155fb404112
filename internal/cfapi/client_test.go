package cfapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/cksdxz1007/cloudflare-cert/internal/config"
)

const testCertPEM = "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"

func validIssueRequest() IssueRequest {
	return IssueRequest{
		ServiceKey:   "v1.0-test-key",
		Hostnames:    []string{"example.com", "www.example.com"},
		CSR:          "-----BEGIN CERTIFICATE REQUEST-----\nMIIB\n-----END CERTIFICATE REQUEST-----\n",
		CertType:     config.CertTypeRSA,
		ValidityDays: 90,
	}
}

func TestU_ValidateValidityDays(t *testing.T) {
	for _, days := range ValidValidityDays {
		if err := ValidateValidityDays(days); err != nil {
			t.Errorf("ValidateValidityDays(%d) = %v, want nil", days, err)
		}
	}
	for _, days := range []int{0, -1, 1, 60, 91, 10000} {
		if err := ValidateValidityDays(days); err == nil {
			t.Errorf("ValidateValidityDays(%d) = nil, want error", days)
		}
	}
}

func TestU_Issue_InvalidValidity_NoNetworkCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	req := validIssueRequest()
	req.ValidityDays = 60

	_, err := client.Issue(context.Background(), req)
	if err == nil {
		t.Fatal("Issue() with invalid validity should fail")
	}
	if calls != 0 {
		t.Errorf("Issue() made %d network calls, want 0", calls)
	}
}

func TestU_Issue_RequestShape(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Auth-User-Service-Key")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"errors":  []any{},
			"result": map[string]any{
				"id":                 "cert-id-1",
				"certificate":        testCertPEM,
				"hostnames":          []string{"example.com", "www.example.com"},
				"expires_at":         "2026-11-27T00:00:00Z",
				"request_type":       "origin-rsa",
				"requested_validity": 90,
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	cert, err := client.Issue(context.Background(), validIssueRequest())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if gotPath != "/certificates" {
		t.Errorf("path = %q, want /certificates", gotPath)
	}
	if gotKey != "v1.0-test-key" {
		t.Errorf("X-Auth-User-Service-Key = %q", gotKey)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["request_type"] != "origin-rsa" {
		t.Errorf("request_type = %v, want origin-rsa", gotBody["request_type"])
	}
	if gotBody["requested_validity"] != float64(90) {
		t.Errorf("requested_validity = %v, want 90", gotBody["requested_validity"])
	}
	wantHosts := []any{"example.com", "www.example.com"}
	if !reflect.DeepEqual(gotBody["hostnames"], wantHosts) {
		t.Errorf("hostnames = %v, want %v", gotBody["hostnames"], wantHosts)
	}

	if cert.ID != "cert-id-1" {
		t.Errorf("cert.ID = %q", cert.ID)
	}
	if cert.Certificate != testCertPEM {
		t.Errorf("cert.Certificate = %q", cert.Certificate)
	}
	if cert.ExpiresAt != "2026-11-27T00:00:00Z" {
		t.Errorf("cert.ExpiresAt = %q", cert.ExpiresAt)
	}
}

func TestU_Issue_ECCRequestType(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotType, _ = body["request_type"].(string)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result":  map[string]any{"certificate": testCertPEM},
		})
	}))
	defer srv.Close()

	req := validIssueRequest()
	req.CertType = config.CertTypeECC
	if _, err := NewClient(srv.URL).Issue(context.Background(), req); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if gotType != "origin-ecc" {
		t.Errorf("request_type = %q, want origin-ecc", gotType)
	}
}

func TestU_Issue_CARejection_VerbatimErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors": []map[string]any{
				{"code": 1010, "message": "Invalid CSR: key too small"},
			},
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Issue(context.Background(), validIssueRequest())

	var issErr *IssuanceError
	if !errors.As(err, &issErr) {
		t.Fatalf("Issue() error = %v, want *IssuanceError", err)
	}
	if issErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", issErr.StatusCode)
	}
	if len(issErr.Errors) != 1 || issErr.Errors[0].Code != 1010 {
		t.Errorf("Errors = %+v, want code 1010 preserved", issErr.Errors)
	}
	if !strings.Contains(err.Error(), "Invalid CSR: key too small") {
		t.Errorf("error message should carry the CA message verbatim: %v", err)
	}
}

func TestU_Issue_SuccessFalseWith200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 1100, "message": "rate limited"}},
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Issue(context.Background(), validIssueRequest())
	var issErr *IssuanceError
	if !errors.As(err, &issErr) {
		t.Fatalf("Issue() error = %v, want *IssuanceError", err)
	}
}

func TestU_Issue_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // no listener anymore

	_, err := NewClient(srv.URL).Issue(context.Background(), validIssueRequest())
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Issue() error = %v, want ErrTransport", err)
	}
}

func TestU_LookupZoneID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer scoped-token" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("name"); got != "example.com" {
			t.Errorf("name = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": []map[string]any{
				{"id": "zone123", "name": "example.com", "status": "active"},
			},
		})
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL).LookupZoneID(context.Background(), "scoped-token", "example.com")
	if err != nil {
		t.Fatalf("LookupZoneID() error = %v", err)
	}
	if id != "zone123" {
		t.Errorf("LookupZoneID() = %q, want zone123", id)
	}
}

func TestU_LookupZoneID_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": []any{}})
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).LookupZoneID(context.Background(), "tok", "missing.example"); err == nil {
		t.Error("LookupZoneID() should fail when no zone matches")
	}
}

func TestU_LookupZoneID_RequiresToken(t *testing.T) {
	if _, err := NewClient("http://unused").LookupZoneID(context.Background(), "", "example.com"); err == nil {
		t.Error("LookupZoneID() without token should fail")
	}
}
