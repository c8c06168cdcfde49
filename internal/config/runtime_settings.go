package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/driftwatch/audiosync/internal/avsync"
)

// RuntimeSettingsFileName is the settings file inside the data dir.
const RuntimeSettingsFileName = "settings.json"

// RuntimeSettings are the knobs a user may change at runtime without
// restarting the process. They override the env-derived defaults.
type RuntimeSettings struct {
	SegmentDuration float64 `json:"segment_duration"`
	MatchPattern    string  `json:"match_pattern"`
	CronExpr        string  `json:"cron_expr"`
}

func RuntimeSettingsFilePath(dataDir string) string {
	return getEnvString("SETTINGS_FILE", filepath.Join(dataDir, RuntimeSettingsFileName))
}

func (s RuntimeSettings) Validate() error {
	if s.SegmentDuration <= 0 {
		return fmt.Errorf("segment_duration must be positive")
	}
	if strings.TrimSpace(s.MatchPattern) != "" {
		if err := avsync.CheckPattern(s.MatchPattern); err != nil {
			return fmt.Errorf("invalid match_pattern: %w", err)
		}
	}
	if strings.TrimSpace(s.CronExpr) != "" {
		if _, err := cron.ParseStandard(s.CronExpr); err != nil {
			return fmt.Errorf("invalid cron_expr: %w", err)
		}
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		SegmentDuration: c.Analysis.SegmentDuration,
		MatchPattern:    c.Watch.MatchPattern,
		CronExpr:        c.Watch.CronExpr,
	}
}

// WithRuntimeSettings applies persisted settings on top of the
// env-derived config. Empty fields keep their defaults.
func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if settings.SegmentDuration > 0 {
			c.Analysis.SegmentDuration = settings.SegmentDuration
		}
		if strings.TrimSpace(settings.MatchPattern) != "" {
			c.Watch.MatchPattern = settings.MatchPattern
		}
		if strings.TrimSpace(settings.CronExpr) != "" {
			c.Watch.CronExpr = settings.CronExpr
		}
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// RuntimeSettingsStore serves reads and validated, persisted updates of
// the runtime settings.
type RuntimeSettingsStore struct {
	path string

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
