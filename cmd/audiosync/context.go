package main

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/driftwatch/audiosync/internal/analyzer"
	"github.com/driftwatch/audiosync/internal/config"
	"github.com/driftwatch/audiosync/internal/engine"
	"github.com/driftwatch/audiosync/internal/media"
	"github.com/driftwatch/audiosync/internal/persistence"
	"github.com/driftwatch/audiosync/internal/results"
	"github.com/driftwatch/audiosync/pkg/log"
)

// commandContext lazily builds the shared pieces commands need, after
// flags have been parsed.
type commandContext struct {
	envFile *string

	cfg *config.Config
}

func newCommandContext(envFile *string) *commandContext {
	return &commandContext{envFile: envFile}
}

// ensureConfig loads the .env file (when present), persisted runtime
// settings and the environment into one Config.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}

	if c.envFile != nil && *c.envFile != "" {
		if err := godotenv.Load(*c.envFile); err != nil {
			return nil, err
		}
	} else {
		_ = godotenv.Load() // missing .env is fine
	}

	opts := make([]config.Option, 0, 1)
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	settingsPath := config.RuntimeSettingsFilePath(dataDir)
	if settings, err := config.LoadRuntimeSettingsFile(settingsPath); err == nil {
		opts = append(opts, config.WithRuntimeSettings(settings))
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		return nil, err
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) tool() (media.Tool, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return media.Tool{}, err
	}
	return media.NewTool(cfg.Media.FfmpegCmd, cfg.Media.FfprobeCmd), nil
}

// openStore builds the result store over the sqlite history database in
// the data dir. The returned close func releases the database.
func (c *commandContext) openStore() (*results.Store, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}

	backend, err := persistence.NewSQLiteStore(filepath.Join(cfg.System.DataDir, "history.db"))
	if err != nil {
		return nil, nil, err
	}
	store := results.NewStore(backend)
	return store, func() { _ = backend.Close() }, nil
}

func (c *commandContext) buildEngine(store *results.Store) (*engine.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	tool, err := c.tool()
	if err != nil {
		return nil, err
	}
	est := analyzer.New(tool, cfg.Analysis.SampleRate)
	return engine.New(est, store, engine.WithDefaultSegment(cfg.Analysis.SegmentDuration)), nil
}
