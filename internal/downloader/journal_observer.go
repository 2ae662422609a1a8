package downloader

import (
	"context"
	"sync"
	"time"

	"github.com/scenefetch/scenefetch/internal/logctx"
	"github.com/scenefetch/scenefetch/internal/storage"
)

// JournalObserver persists terminal pair states into the download journal,
// counting attempts from the retry notices it saw along the way.
type JournalObserver struct {
	ctx     context.Context
	journal storage.JournalWriter

	mu      sync.Mutex
	retries map[PairID]int
}

func NewJournalObserver(ctx context.Context, journal storage.JournalWriter) *JournalObserver {
	return &JournalObserver{
		ctx:     ctx,
		journal: journal,
		retries: make(map[PairID]int),
	}
}

func (o *JournalObserver) OnRetry(pair PairID, _, _ int) {
	o.mu.Lock()
	o.retries[pair]++
	o.mu.Unlock()
}

func (o *JournalObserver) OnFailure(pair PairID, _ error) {
	o.record(pair, "", "failed")
}

func (o *JournalObserver) OnSuccess(pair PairID, path string) {
	o.record(pair, path, "succeeded")
}

func (o *JournalObserver) record(pair PairID, path, status string) {
	o.mu.Lock()
	attempts := o.retries[pair] + 1
	delete(o.retries, pair)
	o.mu.Unlock()

	err := o.journal.Record(storage.Outcome{
		RecordID:    pair.RecordID,
		FileIndex:   pair.FileIndex,
		Path:        path,
		Status:      status,
		Attempts:    attempts,
		CompletedAt: time.Now(),
	})
	if err != nil {
		logctx.LoggerFromContext(o.ctx).Error("failed to journal download outcome",
			"record_id", pair.RecordID, "file_index", pair.FileIndex, "err", err)
	}
}
