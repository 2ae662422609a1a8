package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/scenefetch/scenefetch/internal/logctx"
	"github.com/scenefetch/scenefetch/internal/storage"
	"github.com/scenefetch/scenefetch/internal/telemetry"
)

const defaultJournalLimit = 50

// StatusHandler exposes health, metrics and the download journal while a
// batch runs.
type StatusHandler struct {
	journal   storage.JournalReader
	telemetry *telemetry.Telemetry
}

func NewStatusHandler(journal storage.JournalReader, tel *telemetry.Telemetry) *StatusHandler {
	return &StatusHandler{journal: journal, telemetry: tel}
}

func (h *StatusHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", h.health)
	r.Get("/journal", h.recentOutcomes)

	if h.telemetry != nil {
		r.Handle("/metrics", h.telemetry.Handler())
	}

	return r
}

func (h *StatusHandler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *StatusHandler) recentOutcomes(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	limit := defaultJournalLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	if h.journal == nil {
		http.Error(w, "journal not configured", http.StatusNotFound)

		return
	}

	outcomes, err := h.journal.Recent(limit)
	if err != nil {
		logger.Error("failed to read journal", "err", err)
		http.Error(w, "failed to read journal", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(outcomes)
}
