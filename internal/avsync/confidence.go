package avsync

import "math"

// Confidence grades how much the start-of-file and end-of-file offset
// estimates agree. Agreement is evidence the detected delay is a genuine
// constant sync error rather than noise or drift.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Fixed policy, matching the reference thresholds.
const (
	highConfidenceDiffMs = 50.0
	outlierDiffMs        = 500.0
)

// Classify grades a pair of delay measurements. A missing measurement is
// always low confidence.
func Classify(startDelayMs, endDelayMs *float64) Confidence {
	if startDelayMs == nil || endDelayMs == nil {
		return ConfidenceLow
	}
	diff := math.Abs(*startDelayMs - *endDelayMs)
	switch {
	case diff < highConfidenceDiffMs:
		return ConfidenceHigh
	case diff < outlierDiffMs:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// IsOutlier flags results whose estimates disagree enough (or are
// missing) to warrant manual review. It is a coarser signal than
// Classify and is evaluated independently: a diff of exactly 500 ms is
// medium confidence but not an outlier.
func IsOutlier(startDelayMs, endDelayMs *float64) bool {
	if startDelayMs == nil || endDelayMs == nil {
		return true
	}
	return math.Abs(*startDelayMs-*endDelayMs) > outlierDiffMs
}

// ClassifyResult is Classify applied to a Result.
func ClassifyResult(r Result) Confidence {
	return Classify(r.StartDelayMs, r.EndDelayMs)
}

// ResultIsOutlier is IsOutlier applied to a Result.
func ResultIsOutlier(r Result) bool {
	return IsOutlier(r.StartDelayMs, r.EndDelayMs)
}
