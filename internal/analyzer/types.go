// Package analyzer estimates the time offset between a video's embedded
// audio track and an external reference audio track by cross-correlating
// short excerpts near the start and end of both files.
package analyzer

import "context"

// Measurement is the outcome of analyzing one pair. A nil delay means the
// corresponding excerpt could not be extracted or correlated; Detail then
// carries the diagnostic. Positive delay means the reference audio lags
// the video track; the same convention holds for both measurements so
// their difference is meaningful.
type Measurement struct {
	StartDelayMs *float64
	EndDelayMs   *float64
	Detail       string
}

// Estimator is the contract the orchestrator consumes. Implementations
// return an error only for unrecoverable I/O failure (unreadable file);
// expected absence of a usable signal yields nil delays plus Detail.
type Estimator interface {
	Estimate(ctx context.Context, videoPath, audioPath string, segmentSec float64) (Measurement, error)
}
