package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/driftwatch/audiosync/internal/analyzer"
)

// Config holds all application configuration.
// Supports environment variables with sensible defaults.
//
// Environment Variables:
// Media Tools:
// - FFMPEG_CMD: ffmpeg executable (default: ffmpeg)
// - FFPROBE_CMD: ffprobe executable (default: ffprobe)
//
// Analysis:
// - SEGMENT_DURATION: excerpt length in seconds (default: 300)
// - SAMPLE_RATE: analysis sample rate in Hz (default: 8000)
//
// Watch Folders (scheduled runs; disabled unless both dirs are set):
// - WATCH_VIDEO_DIR: video folder to scan on schedule
// - WATCH_AUDIO_DIR: reference audio folder
// - MATCH_PATTERN: episode pairing pattern (default: S(\d+)E(\d+))
// - CRON_EXPR: schedule (default: 0 3 * * *)
//
// System Configuration:
// - DATA_DIR: history database and settings location (default: data)
// - HTTP_ADDR: listen address for the HTTP server (default: :8080)
// - LOG_LEVEL: debug|info|warn|error (default: info)

type Config struct {
	Media    MediaToolsConfig `json:"media"`
	Analysis AnalysisConfig   `json:"analysis"`
	Watch    WatchConfig      `json:"watch"`
	System   SystemConfig     `json:"system"`
}

// MediaToolsConfig names the external decoders.
type MediaToolsConfig struct {
	FfmpegCmd  string `json:"ffmpeg_cmd"`
	FfprobeCmd string `json:"ffprobe_cmd"`
}

// AnalysisConfig tunes the offset analyzer.
type AnalysisConfig struct {
	SegmentDuration float64 `json:"segment_duration"`
	SampleRate      int     `json:"sample_rate"`
}

// WatchConfig drives the cron-scheduled series runs.
type WatchConfig struct {
	VideoDir     string `json:"video_dir"`
	AudioDir     string `json:"audio_dir"`
	MatchPattern string `json:"match_pattern"`
	CronExpr     string `json:"cron_expr"`
}

// Enabled reports whether scheduled runs have enough configuration to
// operate.
func (c WatchConfig) Enabled() bool {
	return c.VideoDir != "" && c.AudioDir != ""
}

// SystemConfig holds the host-level settings.
type SystemConfig struct {
	DataDir  string `json:"data_dir"`
	HTTPAddr string `json:"http_addr"`
	LogLevel string `json:"log_level"`
}

// Option is a function type for configuring Config.
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Media: MediaToolsConfig{
			FfmpegCmd:  getEnvString("FFMPEG_CMD", "ffmpeg"),
			FfprobeCmd: getEnvString("FFPROBE_CMD", "ffprobe"),
		},
		Analysis: AnalysisConfig{
			SegmentDuration: getEnvFloat("SEGMENT_DURATION", analyzer.DefaultSegmentSeconds),
			SampleRate:      getEnvInt("SAMPLE_RATE", analyzer.DefaultSampleRate),
		},
		Watch: WatchConfig{
			VideoDir:     getEnvString("WATCH_VIDEO_DIR", ""),
			AudioDir:     getEnvString("WATCH_AUDIO_DIR", ""),
			MatchPattern: getEnvString("MATCH_PATTERN", `S(\d+)E(\d+)`),
			CronExpr:     getEnvString("CRON_EXPR", "0 3 * * *"),
		},
		System: SystemConfig{
			DataDir:  getEnvString("DATA_DIR", "data"),
			HTTPAddr: getEnvString("HTTP_ADDR", ":8080"),
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// validate checks if all required configuration is properly set.
func (c *Config) validate() error {
	if c.Analysis.SegmentDuration <= 0 {
		return fmt.Errorf("SEGMENT_DURATION must be positive")
	}
	if c.Analysis.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
