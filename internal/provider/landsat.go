package provider

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/scenefetch/scenefetch/internal/espa"
	"github.com/scenefetch/scenefetch/internal/record"
)

const landsatCollectionBase = "https://landsatlook.usgs.gov/data/collection02"

// Landsat derives direct collection URLs for raw "l1" products and uses the
// order item-status backend for levels that need server-side processing.
type Landsat struct {
	espa *espa.Client
}

func NewLandsat(espaClient *espa.Client) *Landsat {
	return &Landsat{espa: espaClient}
}

func (p *Landsat) Group() record.Group { return record.GroupLandsat }

// ResolveOrder queries the item-status endpoint and attaches the per-item
// handle to the record. Only called for the subset of records that actually
// require ordering.
func (p *Landsat) ResolveOrder(ctx context.Context, r *record.Record) error {
	if !r.RequiresOrder() {
		return nil
	}

	if p.espa == nil {
		return &record.UnresolvedError{RecordID: r.RecordID, Reason: "no ordering backend configured"}
	}

	if r.OrderID == "" {
		return &record.UnresolvedError{RecordID: r.RecordID, Reason: "record has no order id"}
	}

	item, err := p.espa.ItemStatus(ctx, r.OrderID, r.EntityID)
	if err != nil {
		return fmt.Errorf("failed to resolve order item: %w", err)
	}

	r.Item = &record.ItemHandle{
		Status:      item.Status,
		ProductURL:  item.ProductURL,
		ChecksumURL: item.ChecksumURL,
	}

	return nil
}

func (p *Landsat) Assemble(r *record.Record) ([]string, []string) {
	if r.RequiresOrder() {
		if !r.Item.Ready() {
			return nil, nil
		}

		file := path.Base(r.Item.ProductURL)
		if file == "." || file == "/" {
			file = r.RecordID + ".tar.gz"
		}

		return []string{r.Item.ProductURL}, []string{file}
	}

	if r.EntityID == "" || r.RecordID == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/%s", landsatCollectionBase, r.EntityID)
	if !strings.HasSuffix(url, ".tar.gz") {
		url += ".tar.gz"
	}

	return []string{url}, []string{r.RecordID + ".tar.gz"}
}

// ResolveChecksum fetches the checksum blob for ordered products and takes
// its first whitespace-delimited token. Raw products carry no digest.
func (p *Landsat) ResolveChecksum(ctx context.Context, r *record.Record) (string, error) {
	if !r.RequiresOrder() || r.Item == nil || r.Item.ChecksumURL == "" {
		return "", nil
	}

	if p.espa == nil {
		return "", nil
	}

	digest, err := p.espa.FetchChecksum(ctx, r.Item.ChecksumURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch checksum blob: %w", err)
	}

	return digest, nil
}
