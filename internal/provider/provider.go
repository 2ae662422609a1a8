// Package provider implements the per-group derivation rules: one Provider
// per product group covers URL and filename assembly and reference digest
// resolution. Unresolvable records yield the missing marker, never a batch
// error.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/scenefetch/scenefetch/internal/espa"
	"github.com/scenefetch/scenefetch/internal/record"
)

// Provider derives dataset URLs, destination file names and reference digests
// for one product group.
type Provider interface {
	Group() record.Group

	// Assemble returns the ordered source URLs and matching destination file
	// names for a record. Both slices are nil (the missing marker) when the
	// record cannot be resolved; that is not an error.
	Assemble(r *record.Record) (urls, files []string)

	// ResolveChecksum fetches the reference digest for a record, or returns
	// "" when the provider has none. Fetch failures are returned so the
	// caller can degrade to unverified transfer.
	ResolveChecksum(ctx context.Context, r *record.Record) (string, error)
}

// OrderResolver is implemented by providers whose products need a server-side
// processing order resolved before assembly.
type OrderResolver interface {
	ResolveOrder(ctx context.Context, r *record.Record) error
}

// Registry dispatches records onto their group's provider.
type Registry struct {
	providers map[record.Group]Provider
}

// NewRegistry builds the default provider set. The espa client may be nil
// when no Landsat ordering backend is configured; ordered Landsat records
// then resolve to the missing marker.
func NewRegistry(httpClient *http.Client, espaClient *espa.Client) *Registry {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	providers := []Provider{
		NewSentinel(httpClient),
		NewLandsat(espaClient),
		NewModis(),
		NewSrtm(),
	}

	reg := &Registry{providers: make(map[record.Group]Provider, len(providers))}
	for _, p := range providers {
		reg.providers[p.Group()] = p
	}

	return reg
}

// NewRegistryWith builds a registry from an explicit provider set.
func NewRegistryWith(providers ...Provider) *Registry {
	reg := &Registry{providers: make(map[record.Group]Provider, len(providers))}
	for _, p := range providers {
		reg.providers[p.Group()] = p
	}

	return reg
}

// For returns the provider for a product group.
func (reg *Registry) For(g record.Group) (Provider, bool) {
	p, ok := reg.providers[g]
	return p, ok
}
