package analyzer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/driftwatch/audiosync/internal/media"
	"github.com/driftwatch/audiosync/internal/avsync"
	"github.com/driftwatch/audiosync/pkg/log"
)

const (
	// DefaultSampleRate is the analysis rate. 8 kHz keeps decode and
	// correlation fast while preserving millisecond-scale peaks.
	DefaultSampleRate = 8000

	// DefaultSegmentSeconds is the excerpt length when a request does
	// not specify one.
	DefaultSegmentSeconds = 300.0
)

// Analyzer is the ffmpeg-backed Estimator. It decodes short PCM excerpts
// near the start and end of both files and cross-correlates them.
type Analyzer struct {
	tool       media.Tool
	sampleRate int
}

func New(tool media.Tool, sampleRate int) *Analyzer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Analyzer{
		tool:       tool,
		sampleRate: sampleRate,
	}
}

// Estimate measures the delay at both ends of the media. The start
// measurement uses excerpts from offset zero; the end measurement uses
// excerpts anchored at duration-segment and is corrected by the file
// duration difference so both values share one reference frame.
func (a *Analyzer) Estimate(ctx context.Context, videoPath, audioPath string, segmentSec float64) (Measurement, error) {
	if segmentSec <= 0 {
		segmentSec = DefaultSegmentSeconds
	}

	videoStart, err := a.tool.ExtractPCM(ctx, videoPath, 0, segmentSec, a.sampleRate)
	if err != nil {
		return Measurement{}, avsync.WrapError(err, avsync.ErrAnalyzer,
			fmt.Sprintf("failed to load start of video %s", filepath.Base(videoPath)))
	}
	audioStart, err := a.tool.ExtractPCM(ctx, audioPath, 0, segmentSec, a.sampleRate)
	if err != nil {
		return Measurement{}, avsync.WrapError(err, avsync.ErrAnalyzer,
			fmt.Sprintf("failed to load start of audio %s", filepath.Base(audioPath)))
	}

	minStart := min(len(videoStart), len(audioStart))
	if minStart <= a.sampleRate {
		// Less than one second of overlap is not enough signal.
		return Measurement{Detail: "insufficient audio at start for analysis"}, nil
	}
	startDelay := estimateOffsetMs(videoStart[:minStart], audioStart[:minStart], a.sampleRate)
	ret := Measurement{StartDelayMs: &startDelay}

	videoDur, err := a.tool.Duration(ctx, videoPath)
	if err != nil {
		log.Debug("duration probe failed for %s: %v", videoPath, err)
		ret.Detail = "could not determine durations for end analysis"
		return ret, nil
	}
	audioDur, err := a.tool.Duration(ctx, audioPath)
	if err != nil {
		log.Debug("duration probe failed for %s: %v", audioPath, err)
		ret.Detail = "could not determine durations for end analysis"
		return ret, nil
	}

	videoEnd, err := a.tool.ExtractPCM(ctx, videoPath, endOffset(videoDur, segmentSec), segmentSec, a.sampleRate)
	if err != nil {
		ret.Detail = fmt.Sprintf("failed to load end of video %s", filepath.Base(videoPath))
		return ret, nil
	}
	audioEnd, err := a.tool.ExtractPCM(ctx, audioPath, endOffset(audioDur, segmentSec), segmentSec, a.sampleRate)
	if err != nil {
		ret.Detail = fmt.Sprintf("failed to load end of audio %s", filepath.Base(audioPath))
		return ret, nil
	}

	minEnd := min(len(videoEnd), len(audioEnd))
	if minEnd <= a.sampleRate {
		ret.Detail = "insufficient audio at end for analysis"
		return ret, nil
	}

	rawEnd := estimateOffsetMs(videoEnd[:minEnd], audioEnd[:minEnd], a.sampleRate)
	endDelay := correctedEndDelay(rawEnd, videoDur, audioDur)
	ret.EndDelayMs = &endDelay
	return ret, nil
}

func endOffset(durationSec, segmentSec float64) float64 {
	return max(0, durationSec-segmentSec)
}

// correctedEndDelay removes the artificial shift the end excerpts pick up
// when the two files are not the same length: both excerpts are anchored
// relative to their own file's end, so the raw lag folds in the duration
// difference.
func correctedEndDelay(rawDelayMs, videoDurationSec, audioDurationSec float64) float64 {
	return rawDelayMs + (videoDurationSec-audioDurationSec)*1000.0
}
