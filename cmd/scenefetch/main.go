package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/scenefetch/scenefetch/internal/availability"
	"github.com/scenefetch/scenefetch/internal/config"
	"github.com/scenefetch/scenefetch/internal/downloader"
	"github.com/scenefetch/scenefetch/internal/espa"
	"github.com/scenefetch/scenefetch/internal/http/rest"
	"github.com/scenefetch/scenefetch/internal/logctx"
	"github.com/scenefetch/scenefetch/internal/notifier"
	"github.com/scenefetch/scenefetch/internal/pipeline"
	"github.com/scenefetch/scenefetch/internal/provider"
	"github.com/scenefetch/scenefetch/internal/record"
	"github.com/scenefetch/scenefetch/internal/session"
	"github.com/scenefetch/scenefetch/internal/storage/sqlite"
	"github.com/scenefetch/scenefetch/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}),
	))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("scenefetch starting...", "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New()
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer tel.Shutdown(context.Background())

	// =========================================================================
	// Start Database
	database, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		logger.Error("DB error", "err", err)

		return err
	}
	defer database.Close()

	journal := sqlite.NewJournal(database)

	// =========================================================================
	// Load Records
	col, err := loadCollection(cfg.RecordsPath)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	logger.Info("loaded record collection", "records", len(col))

	// =========================================================================
	// Build Session & Providers
	sess := buildSession(cfg)

	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	espaClient := espa.NewClient(cfg.EspaBaseURL, cfg.Earthdata.Username, cfg.Earthdata.Password, httpClient)
	registry := provider.NewRegistry(httpClient, espaClient)

	var checker availability.Checker
	if cfg.AvailabilityBaseURL != "" {
		checker = availability.NewHTTPChecker(cfg.AvailabilityBaseURL, httpClient)
	}

	// =========================================================================
	// Start Downloader
	observers := []downloader.Observer{
		downloader.NewSlogObserver(ctx),
		downloader.NewJournalObserver(ctx, journal),
	}

	if cfg.WebhookURL != "" {
		observers = append(observers, notifier.NewDownloadEvents(ctx, &notifier.WebhookNotifier{WebhookURL: cfg.WebhookURL}))
	}

	dl := downloader.New(httpClient, cfg.MaxAttempts, cfg.RetryDelay, cfg.AttemptTimeout, tel, observers...)

	// =========================================================================
	// Start Status API
	serverErrors := make(chan error, 1)

	server := setupServer(ctx, journal, tel, cfg)

	go func() {
		logger.Info("Initializing status API", "host", cfg.Web.BindAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// =========================================================================
	// Run Pipeline
	p := pipeline.New(sess, registry, dl, checker, nil, tel, pipeline.Options{
		OutputDir:       cfg.OutputDir,
		VerifyChecksums: cfg.VerifyChecksums,
		Force:           cfg.Force,
		AsGeotable:      cfg.AsGeotable,
		HubSelector:     cfg.HubSelector,
		MaxParallel:     cfg.MaxParallel,
	})

	done := make(chan error, 1)

	go func() {
		result, err := p.Run(ctx, col)
		if err != nil {
			done <- err

			return
		}

		done <- writeCollection(cfg.ResultPath, result)
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case err := <-done:
		shutdownServer(ctx, server, cfg.Web.ShutdownTimeout)

		if err != nil {
			return fmt.Errorf("pipeline error: %w", err)
		}

		logger.Info("batch finished", "result_path", cfg.ResultPath)

		return nil
	case <-ctx.Done():
		logger.Info("start shutdown")
		shutdownServer(context.Background(), server, cfg.Web.ShutdownTimeout)

		return ctx.Err()
	}
}

// buildSession populates the explicit credential store from configuration.
// The Copernicus credential serves all three Sentinel hubs.
func buildSession(cfg *config.Config) *session.Session {
	sess := session.New()

	if cfg.Copernicus.Username != "" {
		cred := record.Credential{User: cfg.Copernicus.Username, Secret: cfg.Copernicus.Password}
		sess.Set(session.HubOperational, cred)
		sess.Set(session.HubS5P, cred)
		sess.Set(session.HubGNSS, cred)
	}

	if cfg.Earthdata.Username != "" {
		sess.Set(session.ProviderEarthdata, record.Credential{User: cfg.Earthdata.Username, Secret: cfg.Earthdata.Password})
	}

	return sess
}

func setupServer(ctx context.Context, journal *sqlite.Journal, tel *telemetry.Telemetry, cfg *config.Config) *http.Server {
	r := chi.NewRouter()
	r.Mount("/", rest.NewStatusHandler(journal, tel).Routes())

	return &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      r,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

func shutdownServer(ctx context.Context, server *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("failed to gracefully shutdown the server", "err", err)

		_ = server.Close()
	}
}

// loadCollection reads the record collection produced by the search
// collaborator. Keys this pipeline does not interpret are preserved in Extra.
func loadCollection(path string) (record.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []map[string]any
	if err := json.NewDecoder(f).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	col := make(record.Collection, 0, len(rows))

	for _, row := range rows {
		r := &record.Record{Extra: make(map[string]any)}

		for k, v := range row {
			switch k {
			case "product":
				r.Product, _ = v.(string)
			case "product_group":
				s, _ := v.(string)

				g, err := record.ParseGroup(s)
				if err != nil {
					return nil, err
				}

				r.Group = g
			case "entity_id":
				r.EntityID, _ = v.(string)
			case "record_id":
				r.RecordID, _ = v.(string)
			case "level":
				r.Level, _ = v.(string)
			case "summary":
				r.Summary, _ = v.(string)
			case "order_id":
				r.OrderID, _ = v.(string)
			case "gnss":
				r.GNSS, _ = v.(bool)
			case "download_available":
				if b, ok := v.(bool); ok {
					avail := b
					r.DownloadAvailable = &avail
				}
			default:
				r.Extra[k] = v
			}
		}

		col = append(col, r)
	}

	return col, nil
}

func writeCollection(path string, col record.Collection) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	if err := enc.Encode(col.Rows()); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	return nil
}
