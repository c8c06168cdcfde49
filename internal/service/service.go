// Package service runs scheduled sync checks over configured watch
// folders, so drift in a growing library is caught without manual runs.
package service

import (
	"context"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/driftwatch/audiosync/internal/avsync"
	"github.com/driftwatch/audiosync/internal/config"
	"github.com/driftwatch/audiosync/internal/engine"
	"github.com/driftwatch/audiosync/pkg/log"
)

type WatchService struct {
	cfg    config.Config
	engine *engine.Engine
	cron   *cron.Cron
}

func NewWatchService(cfg config.Config, eng *engine.Engine, c *cron.Cron) WatchService {
	return WatchService{
		cfg:    cfg,
		engine: eng,
		cron:   c,
	}
}

var singleflightGroup singleflight.Group

// Schedule registers the watch run on the service's cron. A no-op when
// the watch folders are not configured.
func (s WatchService) Schedule(ctx context.Context) error {
	if !s.cfg.Watch.Enabled() {
		log.Info("Watch folders not configured, scheduled sync checks disabled")
		return nil
	}
	log.Info("Scheduling sync checks for %s (cron %q)", s.cfg.Watch.VideoDir, s.cfg.Watch.CronExpr)

	runFunc := func() {
		_, _, _ = singleflightGroup.Do("watch-run", func() (any, error) {
			s.runOnce(ctx)
			return nil, nil
		})
	}
	_, err := s.cron.AddFunc(s.cfg.Watch.CronExpr, runFunc)
	return err
}

// runOnce drives one series run over the watch folders and drains its
// event stream, so scheduled runs land in history like manual ones.
func (s WatchService) runOnce(ctx context.Context) {
	run, err := s.engine.Start(ctx, avsync.Request{
		Mode:            avsync.ModeSeries,
		VideoFolder:     s.cfg.Watch.VideoDir,
		AudioFolder:     s.cfg.Watch.AudioDir,
		MatchPattern:    s.cfg.Watch.MatchPattern,
		SegmentDuration: s.cfg.Analysis.SegmentDuration,
	})
	if err != nil {
		if avsync.IsErrorType(err, avsync.ErrRunActive) {
			log.Warn("Skipping scheduled sync check: a run is already active")
			return
		}
		log.Error("Failed to start scheduled sync check: %v", err)
		return
	}

	for event := range run.Events() {
		switch event.Type {
		case engine.EventDone:
			s.logSummary(event.Results)
		case engine.EventCanceled:
			log.Warn("Scheduled sync check canceled after %d result(s)", len(event.Results))
		case engine.EventFailed:
			log.Error("Scheduled sync check failed: %s", event.Error)
		}
	}
}

func (s WatchService) logSummary(results []avsync.Result) {
	var failed, outliers int
	for _, result := range results {
		if !result.OK() {
			failed++
		}
		if avsync.ResultIsOutlier(result) {
			outliers++
		}
	}
	log.Info("Scheduled sync check finished: %d file(s), %d failed, %d outlier(s)",
		len(results), failed, outliers)
}
