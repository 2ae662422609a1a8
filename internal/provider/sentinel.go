package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/scenefetch/scenefetch/internal/record"
	"github.com/scenefetch/scenefetch/internal/session"
)

// hubHosts maps a hub name onto its OData root.
var hubHosts = map[string]string{
	session.HubOperational: "https://apihub.copernicus.eu/apihub",
	session.HubS5P:         "https://s5phub.copernicus.eu/dhus",
	session.HubGNSS:        "https://scihub.copernicus.eu/gnss",
}

// Sentinel derives OData product URLs against the record's resolved hub.
type Sentinel struct {
	client *http.Client
}

func NewSentinel(client *http.Client) *Sentinel {
	return &Sentinel{client: client}
}

func (p *Sentinel) Group() record.Group { return record.GroupSentinel }

func (p *Sentinel) Assemble(r *record.Record) ([]string, []string) {
	host, ok := hubHosts[r.Hub]
	if !ok || r.EntityID == "" || r.RecordID == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/odata/v1/Products('%s')/$value", host, r.EntityID)

	return []string{url}, []string{r.RecordID + ".zip"}
}

// checksumURL is the OData checksum endpoint next to the product entity.
func (p *Sentinel) checksumURL(r *record.Record) string {
	host, ok := hubHosts[r.Hub]
	if !ok || r.EntityID == "" {
		return ""
	}

	return fmt.Sprintf("%s/odata/v1/Products('%s')/Checksum/Value/$value", host, r.EntityID)
}

// ResolveChecksum fetches the product digest from the hub. The request is
// authenticated with the record's resolved hub credential.
func (p *Sentinel) ResolveChecksum(ctx context.Context, r *record.Record) (string, error) {
	url := p.checksumURL(r)
	if url == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	if r.Credential != nil {
		req.SetBasicAuth(r.Credential.User, r.Credential.Secret)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch checksum: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &record.NetworkError{Operation: "fetch_checksum", StatusCode: resp.StatusCode, APIMessage: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read checksum: %w", err)
	}

	return strings.TrimSpace(string(body)), nil
}
