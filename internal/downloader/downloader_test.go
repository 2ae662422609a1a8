package downloader_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/scenefetch/scenefetch/internal/downloader"
	"github.com/scenefetch/scenefetch/internal/logctx"
	"github.com/scenefetch/scenefetch/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver captures state machine events for assertions.
type recordingObserver struct {
	mu        sync.Mutex
	retries   []downloader.PairID
	failures  map[downloader.PairID]error
	successes map[downloader.PairID]string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		failures:  make(map[downloader.PairID]error),
		successes: make(map[downloader.PairID]string),
	}
}

func (o *recordingObserver) OnRetry(pair downloader.PairID, _, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retries = append(o.retries, pair)
}

func (o *recordingObserver) OnFailure(pair downloader.PairID, reason error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[pair] = reason
}

func (o *recordingObserver) OnSuccess(pair downloader.PairID, path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.successes[pair] = path
}

func newDownloader(obs ...downloader.Observer) *downloader.Downloader {
	return downloader.New(http.DefaultClient, 3, 0, 0, nil, obs...)
}

func TestDownloadPair_SucceedsOnAttemptK(t *testing.T) {
	tests := []struct {
		name         string
		failuresLeft int32
	}{
		{"first attempt", 0},
		{"second attempt", 1},
		{"third attempt", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32

			remaining := tt.failuresLeft
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)

				if atomic.AddInt32(&remaining, -1) >= 0 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}

				fmt.Fprint(w, "payload")
			}))
			defer ts.Close()

			obs := newRecordingObserver()
			d := newDownloader(obs)

			path := filepath.Join(t.TempDir(), "out.zip")
			pair := downloader.Pair{
				ID:   downloader.PairID{RecordID: "r1", FileIndex: 0},
				URL:  ts.URL,
				Path: path,
			}

			got, err := d.DownloadPair(context.Background(), pair)
			require.NoError(t, err)
			assert.Equal(t, path, got)

			// Transport is invoked exactly k times for the pair.
			assert.Equal(t, tt.failuresLeft+1, atomic.LoadInt32(&calls))
			assert.Len(t, obs.retries, int(tt.failuresLeft))
			assert.Equal(t, path, obs.successes[pair.ID])

			body, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "payload", string(body))
		})
	}
}

func TestDownloadPair_FailsAfterThreeAttempts(t *testing.T) {
	var calls int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	obs := newRecordingObserver()
	d := newDownloader(obs)

	pair := downloader.Pair{
		ID:   downloader.PairID{RecordID: "r1", FileIndex: 0},
		URL:  ts.URL,
		Path: filepath.Join(t.TempDir(), "out.zip"),
	}

	_, err := d.DownloadPair(context.Background(), pair)
	require.Error(t, err)

	var netErr *record.NetworkError
	assert.ErrorAs(t, err, &netErr)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, obs.retries, 2)
	assert.Contains(t, obs.failures, pair.ID)
	assert.NoFileExists(t, pair.Path)
}

func TestDownloadPair_ChecksumMismatchIsRetried(t *testing.T) {
	var calls int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, "corrupted payload")
	}))
	defer ts.Close()

	obs := newRecordingObserver()
	d := newDownloader(obs)

	pair := downloader.Pair{
		ID:     downloader.PairID{RecordID: "r1", FileIndex: 0},
		URL:    ts.URL,
		Path:   filepath.Join(t.TempDir(), "out.zip"),
		Digest: "00000000000000000000000000000000",
	}

	_, err := d.DownloadPair(context.Background(), pair)
	require.Error(t, err)

	var csErr *record.ChecksumError
	assert.ErrorAs(t, err, &csErr)

	// Mismatch is treated like a transport failure: full retry cycle.
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	// Partial files never survive a failed pair.
	assert.NoFileExists(t, pair.Path)
}

func TestDownloadPair_VerifiesMatchingDigest(t *testing.T) {
	payload := []byte("verified payload")

	sum := md5.Sum(payload)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer ts.Close()

	d := newDownloader()

	pair := downloader.Pair{
		ID:     downloader.PairID{RecordID: "r1", FileIndex: 0},
		URL:    ts.URL,
		Path:   filepath.Join(t.TempDir(), "out.zip"),
		Digest: hex.EncodeToString(sum[:]),
	}

	got, err := d.DownloadPair(context.Background(), pair)
	require.NoError(t, err)
	assert.FileExists(t, got)
}

func TestDownloadPair_UnresolvedFailsWithoutNetworkCall(t *testing.T) {
	var calls int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	obs := newRecordingObserver()
	d := newDownloader(obs)

	pair := downloader.Pair{ID: downloader.PairID{RecordID: "r1", FileIndex: 0}}

	_, err := d.DownloadPair(context.Background(), pair)
	require.Error(t, err)

	var unresolved *record.UnresolvedError
	assert.ErrorAs(t, err, &unresolved)
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Empty(t, obs.retries)
	assert.Contains(t, obs.failures, pair.ID)
}

func TestDownloadPair_PassesCredential(t *testing.T) {
	var gotUser, gotPass string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		fmt.Fprint(w, "payload")
	}))
	defer ts.Close()

	d := newDownloader()

	pair := downloader.Pair{
		ID:         downloader.PairID{RecordID: "r1", FileIndex: 0},
		URL:        ts.URL,
		Path:       filepath.Join(t.TempDir(), "out.zip"),
		Credential: &record.Credential{User: "cop", Secret: "sec"},
	}

	_, err := d.DownloadPair(context.Background(), pair)
	require.NoError(t, err)
	assert.Equal(t, "cop", gotUser)
	assert.Equal(t, "sec", gotPass)
}

// One file exhausting its attempts never aborts sibling files of the same
// record: the result is the ordered subsequence of written paths.
func TestDownloadRecord_SiblingIsolation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		fmt.Fprint(w, "payload")
	}))
	defer ts.Close()

	obs := newRecordingObserver()
	d := newDownloader(obs)

	dir := t.TempDir()
	r := &record.Record{
		RecordID:      "r1",
		Directory:     dir,
		ProgressLabel: "[Dataset 1/1]",
	}
	require.NoError(t, r.SetDatasets(
		[]string{ts.URL + "/good", ts.URL + "/bad", ts.URL + "/good2"},
		[]string{"a.zip", "b.zip", "c.zip"},
	))

	written, err := d.DownloadRecord(context.Background(), r)
	require.NoError(t, err)

	require.Len(t, written, 2)
	assert.Equal(t, filepath.Join(dir, "a.zip"), written[0])
	assert.Equal(t, filepath.Join(dir, "c.zip"), written[1])

	assert.Contains(t, obs.failures, downloader.PairID{RecordID: "r1", FileIndex: 1})
}

// A multi-file record extends the record label with the file position:
// "[Dataset i/n]" becomes "[Dataset i/n | File j/m]".
func TestDownloadRecord_ExtendsProgressLabelPerFile(t *testing.T) {
	var failedOnce sync.Map

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fail each file's first attempt so the retry warning carries the label.
		if _, loaded := failedOnce.LoadOrStore(r.URL.Path, true); !loaded {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		fmt.Fprint(w, "payload")
	}))
	defer ts.Close()

	var buf bytes.Buffer

	ctx := logctx.WithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	d := newDownloader()

	r := &record.Record{
		RecordID:      "r1",
		Directory:     t.TempDir(),
		ProgressLabel: "[Dataset 2/3]",
	}
	require.NoError(t, r.SetDatasets(
		[]string{ts.URL + "/a", ts.URL + "/b"},
		[]string{"a.zip", "b.zip"},
	))

	written, err := d.DownloadRecord(ctx, r)
	require.NoError(t, err)
	require.Len(t, written, 2)

	var labels []string

	dec := json.NewDecoder(&buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))

		if entry["msg"] == "download attempt failed" {
			labels = append(labels, fmt.Sprint(entry["label"]))
		}
	}

	assert.Equal(t, []string{"[Dataset 2/3 | File 1/2]", "[Dataset 2/3 | File 2/2]"}, labels)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state downloader.State
		want  string
	}{
		{downloader.Pending, "pending"},
		{downloader.Attempting, "attempting"},
		{downloader.Succeeded, "succeeded"},
		{downloader.Retrying, "retrying"},
		{downloader.Failed, "failed"},
		{downloader.State(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
