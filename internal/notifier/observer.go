package notifier

import (
	"context"
	"fmt"

	"github.com/scenefetch/scenefetch/internal/downloader"
	"github.com/scenefetch/scenefetch/internal/logctx"
)

// DownloadEvents bridges downloader state machine events to a Notifier.
// Retries are log noise, not notices, so only terminal states notify.
type DownloadEvents struct {
	ctx      context.Context
	notifier Notifier
}

func NewDownloadEvents(ctx context.Context, n Notifier) *DownloadEvents {
	return &DownloadEvents{ctx: ctx, notifier: n}
}

func (e *DownloadEvents) OnRetry(_ downloader.PairID, _, _ int) {}

func (e *DownloadEvents) OnFailure(pair downloader.PairID, reason error) {
	e.send(fmt.Sprintf("❌ Download failed for record %s (file %d): %v", pair.RecordID, pair.FileIndex, reason))
}

func (e *DownloadEvents) OnSuccess(pair downloader.PairID, path string) {
	e.send("✅ Download finished: " + path)
}

func (e *DownloadEvents) send(content string) {
	if err := e.notifier.Notify(content); err != nil {
		logctx.LoggerFromContext(e.ctx).Error("failed to send notification", "err", err)
	}
}
