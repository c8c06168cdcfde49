package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/audiosync/internal/analyzer"
	"github.com/driftwatch/audiosync/internal/avsync"
	"github.com/driftwatch/audiosync/internal/config"
	"github.com/driftwatch/audiosync/internal/engine"
	"github.com/driftwatch/audiosync/internal/media"
	"github.com/driftwatch/audiosync/internal/results"
)

type stubEstimator struct {
	release chan struct{}
}

func (e *stubEstimator) Estimate(context.Context, string, string, float64) (analyzer.Measurement, error) {
	if e.release != nil {
		<-e.release
	}
	start, end := 42.0, 44.0
	return analyzer.Measurement{StartDelayMs: &start, EndDelayMs: &end}, nil
}

type stubProber struct {
	info media.ProbeInfo
	err  error
}

func (p stubProber) Probe(context.Context, string) (media.ProbeInfo, error) {
	return p.info, p.err
}

type testServer struct {
	*Server
	estimator *stubEstimator
	store     *results.Store
}

func newTestServer(t *testing.T, opts ...Option) testServer {
	t.Helper()
	estimator := &stubEstimator{}
	store := results.NewStore(nil)
	eng := engine.New(estimator, store)
	return testServer{
		Server:    NewServer(eng, store, opts...),
		estimator: estimator,
		store:     store,
	}
}

func startBody(t *testing.T, videos ...string) *bytes.Reader {
	t.Helper()
	payload, err := json.Marshal(avsync.Request{
		Mode:       avsync.ModeMovie,
		AudioFile:  "/media/movie.flac",
		VideoFiles: videos,
	})
	require.NoError(t, err)
	return bytes.NewReader(payload)
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body *bytes.Reader) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func waitForState(t *testing.T, ts testServer, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec, body := doJSON(t, ts.Handler(), http.MethodGet, "/api/sync/status", nil)
		return rec.Code == http.StatusOK && body["state"] == want
	}, 3*time.Second, 10*time.Millisecond)
}

func TestSyncStartRunsToCompletion(t *testing.T) {
	ts := newTestServer(t)

	rec, body := doJSON(t, ts.Handler(), http.MethodPost, "/api/sync/start", startBody(t, "/v/a.mkv", "/v/b.mkv"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotEmpty(t, body["run_id"])
	assert.EqualValues(t, 2, body["total"])

	waitForState(t, ts, "completed")

	rec, _ = doJSON(t, ts.Handler(), http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []avsync.BatchRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, body["run_id"], runs[0].ID)
	assert.Len(t, runs[0].Results, 2)
}

func TestSyncStartRejectsInvalidRequest(t *testing.T) {
	ts := newTestServer(t)

	payload, _ := json.Marshal(avsync.Request{Mode: avsync.ModeMovie})
	rec, _ := doJSON(t, ts.Handler(), http.MethodPost, "/api/sync/start", bytes.NewReader(payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, ts.Handler(), http.MethodPost, "/api/sync/start", bytes.NewReader([]byte("{broken")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncStartConflictsWhileRunning(t *testing.T) {
	ts := newTestServer(t)
	ts.estimator.release = make(chan struct{})

	rec, _ := doJSON(t, ts.Handler(), http.MethodPost, "/api/sync/start", startBody(t, "/v/a.mkv"))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, _ = doJSON(t, ts.Handler(), http.MethodPost, "/api/sync/start", startBody(t, "/v/b.mkv"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(ts.estimator.release)
	waitForState(t, ts, "completed")
}

func TestSyncCancel(t *testing.T) {
	ts := newTestServer(t)
	ts.estimator.release = make(chan struct{})

	rec, _ := doJSON(t, ts.Handler(), http.MethodPost, "/api/sync/start", startBody(t, "/v/a.mkv", "/v/b.mkv"))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec, body := doJSON(t, ts.Handler(), http.MethodPost, "/api/sync/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])

	close(ts.estimator.release)
	waitForState(t, ts, "canceled")
}

func TestSyncStatusIdle(t *testing.T) {
	ts := newTestServer(t)

	rec, body := doJSON(t, ts.Handler(), http.MethodGet, "/api/sync/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", body["state"])
}

func TestSyncStreamDeliversEventsUntilDone(t *testing.T) {
	ts := newTestServer(t)
	server := httptest.NewServer(ts.Handler())
	defer server.Close()

	rec, _ := doJSON(t, ts.Handler(), http.MethodPost, "/api/sync/start", startBody(t, "/v/a.mkv"))
	require.Equal(t, http.StatusAccepted, rec.Code)

	resp, err := http.Get(server.URL + "/api/sync/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event engine.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		types = append(types, string(event.Type))
	}

	require.NotEmpty(t, types)
	assert.Equal(t, "done", types[len(types)-1])
	assert.Contains(t, types, "file_start")
	assert.Contains(t, types, "result")
	assert.Contains(t, types, "progress")
}

func TestSyncStreamWithoutRun(t *testing.T) {
	ts := newTestServer(t)
	rec, _ := doJSON(t, ts.Handler(), http.MethodGet, "/api/sync/stream", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.mkv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ts := newTestServer(t)

	rec, _ := doJSON(t, ts.Handler(), http.MethodGet, "/api/files?dir="+dir, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var files []avsync.MediaFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "a.mkv", files[0].Name)

	rec, _ = doJSON(t, ts.Handler(), http.MethodGet, "/api/files?dir="+dir+"&kind=audio", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Len(t, files, 2)

	rec, _ = doJSON(t, ts.Handler(), http.MethodGet, "/api/files", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, ts.Handler(), http.MethodGet, "/api/files?dir="+dir+"&kind=subtitle", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProbe(t *testing.T) {
	duration := 5400.0
	ts := newTestServer(t, WithProber(stubProber{
		info: media.ProbeInfo{HasAudio: true, HasVideo: true, DurationSeconds: &duration},
	}))

	rec, body := doJSON(t, ts.Handler(), http.MethodGet, "/api/probe?path=/media/a.mkv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["has_audio"])

	rec, _ = doJSON(t, ts.Handler(), http.MethodGet, "/api/probe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProbeNotConfigured(t *testing.T) {
	ts := newTestServer(t)
	rec, _ := doJSON(t, ts.Handler(), http.MethodGet, "/api/probe?path=/media/a.mkv", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHistoryEntryOperations(t *testing.T) {
	ts := newTestServer(t)
	ts.store.AppendRun(avsync.BatchRun{ID: "run-1", Mode: avsync.ModeMovie})

	rec, _ := doJSON(t, ts.Handler(), http.MethodGet, "/api/history/run-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, ts.Handler(), http.MethodGet, "/api/history/run-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, ts.Handler(), http.MethodDelete, "/api/history/run-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.store.Runs())

	ts.store.AppendRun(avsync.BatchRun{ID: "run-3"})
	rec, _ = doJSON(t, ts.Handler(), http.MethodDelete, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.store.Runs())
}

func TestExportCSV(t *testing.T) {
	ts := newTestServer(t)
	start := 10.0
	ts.store.ReplaceCurrent([]avsync.Result{{
		VideoFile:    "a.mkv",
		AudioFile:    "a.flac",
		StartDelayMs: &start,
		EndDelayMs:   &start,
	}})

	rec, _ := doJSON(t, ts.Handler(), http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sync-results.csv")
	assert.Contains(t, rec.Body.String(), "a.mkv,a.flac,10.0,10.0")

	rec, _ = doJSON(t, ts.Handler(), http.MethodGet, "/api/export?scope=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := config.NewRuntimeSettingsStore(path, config.RuntimeSettings{SegmentDuration: 300})
	require.NoError(t, err)

	var applied config.RuntimeSettings
	ts := newTestServer(t,
		WithRuntimeSettingsStore(store),
		WithRuntimeSettingsApplier(func(next config.RuntimeSettings) error {
			applied = next
			return nil
		}),
	)

	rec, body := doJSON(t, ts.Handler(), http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 300, body["segment_duration"])

	payload, _ := json.Marshal(config.RuntimeSettings{SegmentDuration: 120})
	rec, body = doJSON(t, ts.Handler(), http.MethodPut, "/api/settings", bytes.NewReader(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 120, body["segment_duration"])
	assert.InDelta(t, 120.0, applied.SegmentDuration, 1e-9)

	payload, _ = json.Marshal(config.RuntimeSettings{SegmentDuration: -1})
	rec, _ = doJSON(t, ts.Handler(), http.MethodPut, "/api/settings", bytes.NewReader(payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsNotConfigured(t *testing.T) {
	ts := newTestServer(t)
	rec, _ := doJSON(t, ts.Handler(), http.MethodGet, "/api/settings", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestShutdownWithoutListen(t *testing.T) {
	ts := newTestServer(t)
	assert.NoError(t, ts.Shutdown(context.Background()))
}

