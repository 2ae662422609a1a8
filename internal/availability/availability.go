// Package availability is the boundary to the availability-check
// collaborator. The pipeline only calls it for records whose availability
// flag was not populated by the search collaborator.
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/scenefetch/scenefetch/internal/record"
)

// Checker reports whether a record's dataset is ready for download on the
// provider backend.
type Checker interface {
	Available(ctx context.Context, r *record.Record) (bool, error)
}

// HTTPChecker queries an availability service over HTTP.
type HTTPChecker struct {
	client  *http.Client
	baseURL string
}

func NewHTTPChecker(baseURL string, httpClient *http.Client) *HTTPChecker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &HTTPChecker{client: httpClient, baseURL: baseURL}
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

func (c *HTTPChecker) Available(ctx context.Context, r *record.Record) (bool, error) {
	q := url.Values{}
	q.Set("entity_id", r.EntityID)
	q.Set("product_group", string(r.Group))

	endpoint := fmt.Sprintf("%s/availability?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("url: %s, status: %d", endpoint, resp.StatusCode)
	}

	var out availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	return out.Available, nil
}
