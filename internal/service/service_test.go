package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/audiosync/internal/analyzer"
	"github.com/driftwatch/audiosync/internal/config"
	"github.com/driftwatch/audiosync/internal/engine"
	"github.com/driftwatch/audiosync/internal/results"
)

type fixedEstimator struct{ delayMs float64 }

func (f fixedEstimator) Estimate(context.Context, string, string, float64) (analyzer.Measurement, error) {
	start, end := f.delayMs, f.delayMs
	return analyzer.Measurement{StartDelayMs: &start, EndDelayMs: &end}, nil
}

func watchConfig(t *testing.T) config.Config {
	t.Helper()
	videoDir := t.TempDir()
	audioDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(videoDir, "Show.S01E01.mkv"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(audioDir, "Show.S01E01.flac"), []byte("x"), 0o644))

	return config.Config{
		Analysis: config.AnalysisConfig{SegmentDuration: 300, SampleRate: 8000},
		Watch: config.WatchConfig{
			VideoDir:     videoDir,
			AudioDir:     audioDir,
			MatchPattern: `S(\d+)E(\d+)`,
			CronExpr:     "0 3 * * *",
		},
	}
}

func TestWatchService_ScheduleRegistersCronJob(t *testing.T) {
	c := cron.New()
	svc := NewWatchService(watchConfig(t), engine.New(fixedEstimator{}, results.NewStore(nil)), c)

	require.NoError(t, svc.Schedule(context.Background()))
	assert.Len(t, c.Entries(), 1)
}

func TestWatchService_DisabledWithoutFolders(t *testing.T) {
	c := cron.New()
	cfg := config.Config{Watch: config.WatchConfig{CronExpr: "0 3 * * *"}}
	svc := NewWatchService(cfg, engine.New(fixedEstimator{}, results.NewStore(nil)), c)

	require.NoError(t, svc.Schedule(context.Background()))
	assert.Empty(t, c.Entries())
}

func TestWatchService_RejectsBadCronExpr(t *testing.T) {
	cfg := watchConfig(t)
	cfg.Watch.CronExpr = "not a schedule"
	svc := NewWatchService(cfg, engine.New(fixedEstimator{}, results.NewStore(nil)), cron.New())

	assert.Error(t, svc.Schedule(context.Background()))
}

func TestWatchService_RunLandsInHistory(t *testing.T) {
	store := results.NewStore(nil)
	svc := NewWatchService(watchConfig(t), engine.New(fixedEstimator{delayMs: 25}, store), cron.New())

	svc.runOnce(context.Background())

	require.Eventually(t, func() bool {
		return len(store.Runs()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	runs := store.Runs()
	require.Len(t, runs[0].Results, 1)
	assert.True(t, runs[0].Results[0].OK())
}
