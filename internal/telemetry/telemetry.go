// Package telemetry wires the OpenTelemetry meter and tracer with a
// Prometheus exporter. All methods are nil-safe so the pipeline can run
// without telemetry configured.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

const meterName = "scenefetch"

// Telemetry holds the metric instruments and tracer for a batch run.
type Telemetry struct {
	meterProvider *sdkmetric.MeterProvider
	tracer        trace.Tracer
	meter         metric.Meter

	downloadsTotal   metric.Int64Counter
	retriesTotal     metric.Int64Counter
	bytesTotal       metric.Int64Counter
	downloadDuration metric.Float64Histogram
	activeDownloads  metric.Int64UpDownCounter
}

// New sets up the Prometheus exporter, meter, tracer and runtime
// instrumentation.
func New() (*Telemetry, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		return nil, fmt.Errorf("failed to start runtime instrumentation: %w", err)
	}

	t := &Telemetry{
		meterProvider: mp,
		tracer:        otel.Tracer(meterName),
		meter:         mp.Meter(meterName),
	}

	if err := t.initInstruments(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Telemetry) initInstruments() error {
	var err error

	if t.downloadsTotal, err = t.meter.Int64Counter("downloads_total",
		metric.WithDescription("Completed dataset file downloads by status")); err != nil {
		return err
	}

	if t.retriesTotal, err = t.meter.Int64Counter("download_retries_total",
		metric.WithDescription("Download attempts that were retried")); err != nil {
		return err
	}

	if t.bytesTotal, err = t.meter.Int64Counter("downloaded_bytes_total",
		metric.WithDescription("Bytes written to disk by the downloader")); err != nil {
		return err
	}

	if t.downloadDuration, err = t.meter.Float64Histogram("download_duration_seconds",
		metric.WithDescription("Per-file download duration")); err != nil {
		return err
	}

	if t.activeDownloads, err = t.meter.Int64UpDownCounter("active_downloads",
		metric.WithDescription("Downloads currently in flight")); err != nil {
		return err
	}

	return nil
}

// Handler exposes the Prometheus scrape endpoint.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.Handler()
}

// Shutdown flushes the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.meterProvider == nil {
		return nil
	}

	return t.meterProvider.Shutdown(ctx)
}

// RecordDownload records one finished download. Status is a bounded set
// ("success", "error"); high-cardinality values like paths stay in logs.
func (t *Telemetry) RecordDownload(status string, duration time.Duration) {
	if t == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("status", status))
	t.downloadsTotal.Add(context.Background(), 1, attrs)
	t.downloadDuration.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordRetry records one retried attempt.
func (t *Telemetry) RecordRetry() {
	if t == nil {
		return
	}

	t.retriesTotal.Add(context.Background(), 1)
}

// AddBytes records bytes written to disk.
func (t *Telemetry) AddBytes(n int64) {
	if t == nil {
		return
	}

	t.bytesTotal.Add(context.Background(), n)
}

// InstrumentDownload wraps a per-record download in a span and the active
// download gauge.
func (t *Telemetry) InstrumentDownload(ctx context.Context, fn func(ctx context.Context) error) error {
	if t == nil || t.tracer == nil {
		return fn(ctx)
	}

	t.activeDownloads.Add(ctx, 1)
	defer t.activeDownloads.Add(ctx, -1)

	ctx, span := t.tracer.Start(ctx, "download_record")
	defer span.End()

	span.SetAttributes(attribute.String("component", "downloader"))

	err := fn(ctx)
	if err != nil {
		span.SetAttributes(attribute.Bool("error", true))
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}
