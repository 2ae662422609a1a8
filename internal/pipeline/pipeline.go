// Package pipeline orchestrates a batch: availability filtering, credential
// and checksum resolution, URL assembly, directory creation, the retrying
// download of every available record, and the merge of per-record results
// back into the collection.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scenefetch/scenefetch/internal/availability"
	"github.com/scenefetch/scenefetch/internal/downloader"
	"github.com/scenefetch/scenefetch/internal/geotable"
	"github.com/scenefetch/scenefetch/internal/logctx"
	"github.com/scenefetch/scenefetch/internal/provider"
	"github.com/scenefetch/scenefetch/internal/record"
	"github.com/scenefetch/scenefetch/internal/session"
	"github.com/scenefetch/scenefetch/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const dirPerm = 0755

// Options are the caller-facing knobs of a batch run.
type Options struct {
	OutputDir       string
	VerifyChecksums bool

	// Force is accepted for interface compatibility but has no
	// skip-if-already-downloaded semantics yet.
	Force bool

	AsGeotable  bool
	HubSelector string
	MaxParallel int
}

// Pipeline runs batches against a fixed set of collaborators.
type Pipeline struct {
	session    *session.Session
	registry   *provider.Registry
	downloader *downloader.Downloader
	checker    availability.Checker
	converter  geotable.Converter
	tel        *telemetry.Telemetry
	opts       Options
}

func New(
	sess *session.Session,
	registry *provider.Registry,
	dl *downloader.Downloader,
	checker availability.Checker,
	converter geotable.Converter,
	tel *telemetry.Telemetry,
	opts Options,
) *Pipeline {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 1
	}

	return &Pipeline{
		session:    sess,
		registry:   registry,
		downloader: dl,
		checker:    checker,
		converter:  converter,
		tel:        tel,
		opts:       opts,
	}
}

// Run processes the collection and returns it with dataset_file populated.
// Records keep their order and caller columns; unavailable records keep the
// missing marker. Only a missing session or an unusable output directory is
// fatal.
func (p *Pipeline) Run(ctx context.Context, col record.Collection) (record.Collection, error) {
	logger := logctx.LoggerFromContext(ctx)

	if err := p.resolveAvailability(ctx, col); err != nil {
		return nil, err
	}

	available := col.Available()

	switch {
	case len(available) == 0:
		logger.Warn("no records are available for download; returning missing markers for all records")

		return col, nil
	case len(available) < len(col):
		logger.Warn("some records are not available for download and will be skipped",
			"available", len(available), "total", len(col))
	}

	// Auth is the batch-fatal precondition: fail before any per-record work.
	if err := p.session.Validate(available, p.opts.HubSelector); err != nil {
		return nil, err
	}

	p.labelRecords(col)

	for _, r := range available {
		cred, err := p.session.Resolve(r, p.opts.HubSelector)
		if err != nil {
			return nil, err
		}

		r.Credential = cred
	}

	p.resolveOrders(ctx, available)
	p.resolveChecksums(ctx, available)

	if err := p.assemble(ctx, available); err != nil {
		return nil, err
	}

	if err := p.download(ctx, available); err != nil {
		return nil, err
	}

	if p.opts.AsGeotable && p.converter != nil {
		if err := p.converter.Convert(ctx, col); err != nil {
			logger.Error("failed to convert collection to geotable", "err", err)
		}
	}

	return col, nil
}

// resolveAvailability fills unset availability flags through the checker
// collaborator. A checker failure marks the record unavailable rather than
// failing the batch.
func (p *Pipeline) resolveAvailability(ctx context.Context, col record.Collection) error {
	logger := logctx.LoggerFromContext(ctx)

	for _, r := range col {
		if r.DownloadAvailable != nil {
			continue
		}

		var avail bool

		if p.checker != nil {
			ok, err := p.checker.Available(ctx, r)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				logger.Error("availability check failed, treating record as unavailable",
					"record_id", r.RecordID, "err", err)
			} else {
				avail = ok
			}
		} else {
			logger.Warn("no availability checker configured, treating record as unavailable",
				"record_id", r.RecordID)
		}

		r.DownloadAvailable = &avail
	}

	return nil
}

// labelRecords assigns the stable "[Dataset i/n]" progress label over the
// whole collection.
func (p *Pipeline) labelRecords(col record.Collection) {
	for i, r := range col {
		r.ItemIndex = i + 1
		r.ProgressLabel = fmt.Sprintf("[Dataset %d/%d]", i+1, len(col))
	}
}

// resolveOrders runs the extra item-status round for the subset of records
// that require server-side processing. Failures leave the handle unset; the
// record then resolves to the missing marker at assembly.
func (p *Pipeline) resolveOrders(ctx context.Context, records []*record.Record) {
	logger := logctx.LoggerFromContext(ctx)

	for _, r := range records {
		if !r.RequiresOrder() {
			continue
		}

		prov, ok := p.registry.For(r.Group)
		if !ok {
			continue
		}

		resolver, ok := prov.(provider.OrderResolver)
		if !ok {
			continue
		}

		if err := resolver.ResolveOrder(ctx, r); err != nil {
			logger.Error("failed to resolve processing order", "record_id", r.RecordID, "err", err)
		}
	}
}

// resolveChecksums fetches reference digests for the available records.
// Verification is best-effort: a fetch failure degrades to "no digest" and
// the transfer proceeds unverified.
func (p *Pipeline) resolveChecksums(ctx context.Context, records []*record.Record) {
	logger := logctx.LoggerFromContext(ctx)

	if !p.opts.VerifyChecksums {
		return
	}

	for _, r := range records {
		prov, ok := p.registry.For(r.Group)
		if !ok {
			continue
		}

		digest, err := prov.ResolveChecksum(ctx, r)
		if err != nil {
			logger.Warn("failed to resolve reference digest, skipping verification",
				"record_id", r.RecordID, "err", err)

			continue
		}

		r.Checksum = digest
	}
}

// assemble derives URLs and destination names and creates the per-product
// output directories. Creation is idempotent; pre-existing directories are
// fine.
func (p *Pipeline) assemble(ctx context.Context, records []*record.Record) error {
	logger := logctx.LoggerFromContext(ctx)

	for _, r := range records {
		prov, ok := p.registry.For(r.Group)
		if !ok {
			logger.Warn("no provider for product group, record stays unresolved",
				"record_id", r.RecordID, "product_group", string(r.Group))

			continue
		}

		urls, files := prov.Assemble(r)
		if err := r.SetDatasets(urls, files); err != nil {
			return err
		}

		if urls == nil {
			logger.Warn("could not derive dataset url or filename",
				"record_id", r.RecordID, "product_group", string(r.Group))

			continue
		}

		r.Directory = filepath.Join(p.opts.OutputDir, r.Product)
		if err := os.MkdirAll(r.Directory, dirPerm); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	return nil
}

// download runs the per-record downloads with bounded parallelism and writes
// the per-record result: the ordered subsequence of written paths, or the
// missing marker when nothing succeeded.
func (p *Pipeline) download(ctx context.Context, records []*record.Record) error {
	wg, ctx := errgroup.WithContext(ctx)

	sem := make(chan struct{}, p.opts.MaxParallel)

	for _, r := range records {
		if r.DatasetURLs == nil {
			r.DatasetFiles = nil

			continue
		}

		sem <- struct{}{}

		wg.Go(func() error {
			defer func() { <-sem }() // release the slot

			return p.tel.InstrumentDownload(ctx, func(ctx context.Context) error {
				logger := logctx.LoggerFromContext(ctx)
				logger.Info("downloading record", "label", r.ProgressLabel, "record_id", r.RecordID, "files", len(r.DatasetURLs))

				written, err := p.downloader.DownloadRecord(ctx, r)
				if err != nil {
					return err
				}

				if len(written) == 0 {
					r.DatasetFiles = nil
				} else {
					r.DatasetFiles = written
				}

				return nil
			})
		})
	}

	if err := wg.Wait(); err != nil {
		return fmt.Errorf("download batch interrupted: %w", err)
	}

	return nil
}
