package progress

import "io"

// Reader wraps an io.Reader and reports cumulative progress via a callback.
type Reader struct {
	Reader         io.Reader
	Total          int64
	OnProgress     func(written int64, total int64)
	totalRead      int64 // cumulative total
	lastReport     int64 // bytes since last report
	reportInterval int64 // bytes
}

func NewReader(r io.Reader, total int64, interval int64, cb func(written int64, total int64)) *Reader {
	return &Reader{
		Reader:         r,
		Total:          total,
		OnProgress:     cb,
		reportInterval: interval,
	}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	if n > 0 {
		pr.totalRead += int64(n)
		pr.lastReport += int64(n)
		if pr.lastReport >= pr.reportInterval {
			pr.OnProgress(pr.totalRead, pr.Total)
			pr.lastReport = 0
		}
	}
	return n, err
}
