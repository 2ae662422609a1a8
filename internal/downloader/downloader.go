// Package downloader runs the per-pair retry state machine. Every (record,
// file-index) pair moves PENDING -> ATTEMPTING -> {SUCCEEDED, RETRYING,
// FAILED} in isolation: one pair exhausting its attempts never aborts sibling
// pairs or records.
package downloader

import (
	"context"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/scenefetch/scenefetch/internal/checksum"
	"github.com/scenefetch/scenefetch/internal/downloader/progress"
	"github.com/scenefetch/scenefetch/internal/logctx"
	"github.com/scenefetch/scenefetch/internal/record"
	"github.com/scenefetch/scenefetch/internal/telemetry"
)

const (
	// DefaultMaxAttempts is the per-pair attempt cap.
	DefaultMaxAttempts = 3

	progressInterval = int64(100 * 1024 * 1024) // 100MB
)

// State is the retry state machine state of one pair.
type State int

const (
	Pending State = iota
	Attempting
	Succeeded
	Retrying
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Attempting:
		return "attempting"
	case Succeeded:
		return "succeeded"
	case Retrying:
		return "retrying"
	case Failed:
		return "failed"
	}

	return "unknown"
}

// Pair is one downloadable unit: a source URL, a destination path, and the
// verification and auth state it carries.
type Pair struct {
	ID         PairID
	URL        string
	Path       string
	Digest     string // reference digest, "" skips verification
	Credential *record.Credential
	Label      string // human-readable progress label
}

// Downloader transfers pairs with bounded retries and digest verification.
type Downloader struct {
	client         *http.Client
	maxAttempts    int
	retryDelay     time.Duration
	attemptTimeout time.Duration
	observers      []Observer
	tel            *telemetry.Telemetry
}

func New(client *http.Client, maxAttempts int, retryDelay, attemptTimeout time.Duration, tel *telemetry.Telemetry, observers ...Observer) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}

	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Downloader{
		client:         client,
		maxAttempts:    maxAttempts,
		retryDelay:     retryDelay,
		attemptTimeout: attemptTimeout,
		observers:      observers,
		tel:            tel,
	}
}

func (d *Downloader) notifyRetry(pair PairID, attempt, remaining int) {
	d.tel.RecordRetry()

	for _, o := range d.observers {
		o.OnRetry(pair, attempt, remaining)
	}
}

func (d *Downloader) notifyFailure(pair PairID, reason error) {
	for _, o := range d.observers {
		o.OnFailure(pair, reason)
	}
}

func (d *Downloader) notifySuccess(pair PairID, path string) {
	for _, o := range d.observers {
		o.OnSuccess(pair, path)
	}
}

// DownloadRecord downloads all of a record's files and returns the ordered
// subsequence of destination paths that were actually written. Per-pair
// failures are reported through the observers, never returned; only context
// cancellation escapes.
func (d *Downloader) DownloadRecord(ctx context.Context, r *record.Record) ([]string, error) {
	total := len(r.DatasetURLs)

	var written []string

	for i := 0; i < total; i++ {
		pair := Pair{
			ID:         PairID{RecordID: r.RecordID, FileIndex: i},
			URL:        r.DatasetURLs[i],
			Path:       filepath.Join(r.Directory, r.DatasetFiles[i]),
			Digest:     r.Checksum,
			Credential: r.Credential,
			Label:      r.ProgressLabel,
		}

		if total > 1 && len(pair.Label) > 0 {
			// "[Dataset i/n]" becomes "[Dataset i/n | File j/m]".
			pair.Label = fmt.Sprintf("%s | File %d/%d]", pair.Label[:len(pair.Label)-1], i+1, total)
		}

		path, err := d.DownloadPair(ctx, pair)
		if err != nil {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}

			continue
		}

		written = append(written, path)
	}

	return written, nil
}

// DownloadPair runs the retry state machine for one pair. Pairs with an
// unresolved URL or path fail immediately without a network call.
func (d *Downloader) DownloadPair(ctx context.Context, p Pair) (string, error) {
	logger := logctx.LoggerFromContext(ctx).With("record_id", p.ID.RecordID, "file_index", p.ID.FileIndex)

	if p.URL == "" || p.Path == "" {
		err := &record.UnresolvedError{RecordID: p.ID.RecordID, Reason: "url or filename not resolved"}
		d.notifyFailure(p.ID, err)

		return "", err
	}

	state := Pending

	for attempt := 1; ; attempt++ {
		state = Attempting

		start := time.Now()
		err := d.attempt(ctx, p)

		if err == nil {
			state = Succeeded

			logger.Debug("pair state transition", "state", state.String(), "attempt", attempt)
			d.tel.RecordDownload("success", time.Since(start))
			d.notifySuccess(p.ID, p.Path)

			return p.Path, nil
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if attempt >= d.maxAttempts {
			state = Failed

			logger.Debug("pair state transition", "state", state.String(), "attempt", attempt)
			d.tel.RecordDownload("error", time.Since(start))
			d.notifyFailure(p.ID, err)

			return "", err
		}

		state = Retrying

		logger.Warn("download attempt failed", "label", p.Label, "state", state.String(), "attempt", attempt, "err", err)
		d.notifyRetry(p.ID, attempt, d.maxAttempts-attempt)

		// The delay blocks only this pair; sibling pairs keep going.
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(d.retryDelay):
		}
	}
}

// attempt performs a single transfer with optional digest verification. Any
// partially written file is removed before returning an error so retries
// start clean.
func (d *Downloader) attempt(ctx context.Context, p Pair) (err error) {
	if d.attemptTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, d.attemptTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if p.Credential != nil {
		req.SetBasicAuth(p.Credential.User, p.Credential.Secret)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return &record.NetworkError{Operation: "download", APIMessage: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &record.NetworkError{Operation: "download", StatusCode: resp.StatusCode, APIMessage: resp.Status}
	}

	out, err := os.Create(p.Path)
	if err != nil {
		return fmt.Errorf("failed to create target file: %w", err)
	}

	defer func() {
		out.Close()

		if err != nil {
			os.Remove(p.Path)
		}
	}()

	var hasher hash.Hash

	var dst io.Writer = out

	if p.Digest != "" {
		hasher, err = checksum.Hasher(p.Digest)
		if err != nil {
			return fmt.Errorf("cannot verify: %w", err)
		}

		dst = io.MultiWriter(out, hasher)
	}

	written, err := d.copyWithProgress(ctx, dst, resp.Body, p, resp.ContentLength)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	d.tel.AddBytes(written)

	if hasher != nil && !checksum.Equal(hasher.Sum(nil), p.Digest) {
		return &record.ChecksumError{
			Path:      p.Path,
			Reference: p.Digest,
			Computed:  fmt.Sprintf("%x", hasher.Sum(nil)),
		}
	}

	return nil
}

func (d *Downloader) copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, p Pair, totalBytes int64) (int64, error) {
	logger := logctx.LoggerFromContext(ctx)

	progressCb := func(written int64, total int64) {
		if total > 0 {
			logger.Debug("download progress",
				"label", p.Label,
				"downloaded", humanize.Bytes(uint64(written)),
				"total", humanize.Bytes(uint64(total)),
				"percent", humanize.FtoaWithDigits(float64(written)*100/float64(total), 2))
		} else {
			logger.Debug("download progress", "label", p.Label, "downloaded", humanize.Bytes(uint64(written)))
		}
	}

	pr := progress.NewReader(src, totalBytes, progressInterval, progressCb)

	return io.Copy(dst, pr)
}
