package cfapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Zone is the subset of the zone object used for lookups.
type Zone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// LookupZoneID resolves a zone name to its id using the scoped
// read-only API token (Authorization: Bearer). This is informational
// metadata for the configuration; issuance never requires it.
func (c *Client) LookupZoneID(ctx context.Context, token, name string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("zone lookup requires an API token (CF_API_TOKEN)")
	}
	if name == "" {
		return "", fmt.Errorf("zone name is required")
	}

	u := c.baseURL + "/zones?name=" + url.QueryEscape(name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return "", err
	}

	var zones []Zone
	if err := json.Unmarshal(env.Result, &zones); err != nil {
		return "", fmt.Errorf("failed to decode zone list: %w", err)
	}
	if len(zones) == 0 {
		return "", fmt.Errorf("no zone found for %q", name)
	}
	return zones[0].ID, nil
}
