package provider

import (
	"context"
	"fmt"

	"github.com/scenefetch/scenefetch/internal/record"
)

const modisArchiveBase = "https://e4ftl01.cr.usgs.gov/MOLT"

// Modis derives LP DAAC archive URLs. Auth is handled at the host level, so
// records carry no credential and no reference digest.
type Modis struct{}

func NewModis() *Modis { return &Modis{} }

func (p *Modis) Group() record.Group { return record.GroupModis }

func (p *Modis) Assemble(r *record.Record) ([]string, []string) {
	if r.Product == "" || r.EntityID == "" || r.RecordID == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/%s/%s.hdf", modisArchiveBase, r.Product, r.EntityID)

	return []string{url}, []string{r.RecordID + ".hdf"}
}

func (p *Modis) ResolveChecksum(_ context.Context, _ *record.Record) (string, error) {
	return "", nil
}
