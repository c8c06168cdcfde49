package avsync

import (
	"strings"
	"time"
)

// Kind tells videos and reference audio tracks apart in a working set.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Mode selects how videos are paired with reference audio.
type Mode string

const (
	// ModeMovie pairs one reference audio file against every video.
	ModeMovie Mode = "movie"
	// ModeSeries pairs each video with the audio file sharing its
	// season/episode key.
	ModeSeries Mode = "series"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMovie:
		return ModeMovie, true
	case ModeSeries:
		return ModeSeries, true
	default:
		return "", false
	}
}

// MediaFile is one entry of a working set. ID is session-scoped;
// Path is the durable key used for all lookups.
type MediaFile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Kind      Kind   `json:"type"`
	SizeBytes *int64 `json:"size,omitempty"`
}

// Request describes one synchronization batch.
type Request struct {
	Mode            Mode     `json:"mode"`
	VideoFolder     string   `json:"video_folder,omitempty"`
	AudioFolder     string   `json:"audio_folder,omitempty"`
	AudioFile       string   `json:"audio_file,omitempty"`
	VideoFiles      []string `json:"video_files,omitempty"`
	SegmentDuration float64  `json:"segment_duration"`
	MatchPattern    string   `json:"match_pattern,omitempty"`
}

// Validate rejects structurally invalid requests before any run state is
// created. Per-file problems are never raised here; they surface as
// per-result errors during the run.
func (r Request) Validate() error {
	switch r.Mode {
	case ModeMovie:
		if strings.TrimSpace(r.AudioFile) == "" {
			return NewError(ErrValidation, "movie mode requires an audio file")
		}
		if strings.TrimSpace(r.VideoFolder) == "" && len(r.VideoFiles) == 0 {
			return NewError(ErrValidation, "movie mode requires a video folder or explicit video files")
		}
	case ModeSeries:
		if strings.TrimSpace(r.VideoFolder) == "" {
			return NewError(ErrValidation, "series mode requires a video folder")
		}
		if strings.TrimSpace(r.AudioFolder) == "" {
			return NewError(ErrValidation, "series mode requires an audio folder")
		}
		if strings.TrimSpace(r.MatchPattern) == "" {
			return NewError(ErrValidation, "series mode requires a match pattern")
		}
	default:
		return NewError(ErrValidation, "unknown sync mode: "+string(r.Mode))
	}
	if r.SegmentDuration < 0 {
		return NewError(ErrValidation, "segment duration must not be negative")
	}
	return nil
}

// Result is the measured offset for one video/audio pair. A nil delay
// means the analyzer could not produce an estimate for that excerpt.
// Results are immutable once emitted.
type Result struct {
	VideoFile    string   `json:"video_file"`
	AudioFile    string   `json:"audio_file"`
	StartDelayMs *float64 `json:"start_delay_ms"`
	EndDelayMs   *float64 `json:"end_delay_ms"`
	ElapsedMs    int64    `json:"elapsed_ms,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// OK reports whether the pair was analyzed without a recorded fault.
func (r Result) OK() bool {
	return r.Error == ""
}

// BatchRun is one completed (or canceled) run kept in history.
// Entries are immutable after creation.
type BatchRun struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Mode      Mode      `json:"mode"`
	FileCount int       `json:"file_count"`
	Results   []Result  `json:"results"`
}

// CloneResults returns an independent copy of a result slice so stored
// batches cannot be mutated through shared backing arrays.
func CloneResults(results []Result) []Result {
	if results == nil {
		return nil
	}
	ret := make([]Result, len(results))
	copy(ret, results)
	for i := range ret {
		ret[i].StartDelayMs = cloneFloat(ret[i].StartDelayMs)
		ret[i].EndDelayMs = cloneFloat(ret[i].EndDelayMs)
	}
	return ret
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	tmp := *v
	return &tmp
}
