// Package espa talks to the Landsat processing order backend: the item-status
// endpoint that hands out per-item download handles, and the checksum blob
// download those handles point at.
package espa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is an order item-status API client.
type Client struct {
	client   *http.Client
	baseURL  string
	username string
	password string
}

// NewClient creates a new item-status API client. An httpClient of nil falls
// back to a client with a sane timeout.
func NewClient(baseURL, username, password string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		client:   httpClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
	}
}

type itemStatus struct {
	Name             string `json:"name"`
	Status           string `json:"status"`
	ProductDloadURL  string `json:"product_dload_url"`
	CksumDownloadURL string `json:"cksum_download_url"`
}

type itemStatusResponse map[string][]itemStatus

// ItemStatus returns the download handle for one entity of an order.
type Item struct {
	Status      string
	ProductURL  string
	ChecksumURL string
}

// ItemStatus queries the item-status endpoint for an order and returns the
// handle for the given entity, or an error when the entity is not part of the
// order's response.
func (c *Client) ItemStatus(ctx context.Context, orderID, entityID string) (*Item, error) {
	url := fmt.Sprintf("%s/item-status/%s", c.baseURL, orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("url: %s, status: %d", url, resp.StatusCode)
	}

	var status itemStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, items := range status {
		for _, item := range items {
			if item.Name == entityID {
				return &Item{
					Status:      item.Status,
					ProductURL:  item.ProductDloadURL,
					ChecksumURL: item.CksumDownloadURL,
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("entity %s not found in order %s", entityID, orderID)
}

// FetchChecksum downloads a checksum blob and returns the first
// whitespace-delimited token, which is the digest. The rest of the blob
// (usually the product file name) is ignored.
func (c *Client) FetchChecksum(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("url: %s, status: %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read checksum blob: %w", err)
	}

	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return "", fmt.Errorf("empty checksum blob from %s", url)
	}

	return fields[0], nil
}
