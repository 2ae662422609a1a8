package downloader

import (
	"context"

	"github.com/scenefetch/scenefetch/internal/logctx"
)

// PairID identifies one (record, file-index) unit, the atomic granularity of
// the retry state machine.
type PairID struct {
	RecordID  string
	FileIndex int
}

// Observer receives the retry state machine's events. Implementations must
// be safe for concurrent use; pairs from different records are downloaded in
// parallel.
type Observer interface {
	OnRetry(pair PairID, attempt, remaining int)
	OnFailure(pair PairID, reason error)
	OnSuccess(pair PairID, path string)
}

// SlogObserver reports state machine events as log lines.
type SlogObserver struct {
	ctx context.Context
}

func NewSlogObserver(ctx context.Context) *SlogObserver {
	return &SlogObserver{ctx: ctx}
}

func (o *SlogObserver) OnRetry(pair PairID, attempt, remaining int) {
	logctx.LoggerFromContext(o.ctx).Warn("retrying download",
		"record_id", pair.RecordID, "file_index", pair.FileIndex,
		"attempt", attempt, "remaining_attempts", remaining)
}

func (o *SlogObserver) OnFailure(pair PairID, reason error) {
	logctx.LoggerFromContext(o.ctx).Error("download failed",
		"record_id", pair.RecordID, "file_index", pair.FileIndex, "err", reason)
}

func (o *SlogObserver) OnSuccess(pair PairID, path string) {
	logctx.LoggerFromContext(o.ctx).Info("download succeeded",
		"record_id", pair.RecordID, "file_index", pair.FileIndex, "path", path)
}
