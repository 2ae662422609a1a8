package provider

import (
	"context"
	"fmt"

	"github.com/scenefetch/scenefetch/internal/record"
)

const srtmMeasuresBase = "https://e4ftl01.cr.usgs.gov/MEASURES/SRTMGL1.003/2000.02.11"

// Srtm derives earth-data measures URLs. Transfers authenticate with the
// single earth-data credential resolved from the session.
type Srtm struct{}

func NewSrtm() *Srtm { return &Srtm{} }

func (p *Srtm) Group() record.Group { return record.GroupSrtm }

func (p *Srtm) Assemble(r *record.Record) ([]string, []string) {
	if r.EntityID == "" || r.RecordID == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/%s.SRTMGL1.hgt.zip", srtmMeasuresBase, r.EntityID)

	return []string{url}, []string{r.RecordID + ".hgt.zip"}
}

func (p *Srtm) ResolveChecksum(_ context.Context, _ *record.Record) (string, error) {
	return "", nil
}
