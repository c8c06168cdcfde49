package avsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		start *float64
		end   *float64
		want  Confidence
	}{
		{name: "identical is high", start: ptr(1234.5), end: ptr(1234.5), want: ConfidenceHigh},
		{name: "zero diff at zero", start: ptr(0), end: ptr(0), want: ConfidenceHigh},
		{name: "just under high threshold", start: ptr(0), end: ptr(49.9), want: ConfidenceHigh},
		{name: "at high threshold", start: ptr(0), end: ptr(50), want: ConfidenceMedium},
		{name: "mid range", start: ptr(100), end: ptr(420), want: ConfidenceMedium},
		{name: "at outlier threshold", start: ptr(0), end: ptr(500), want: ConfidenceMedium},
		{name: "beyond outlier threshold", start: ptr(0), end: ptr(600), want: ConfidenceLow},
		{name: "negative delays", start: ptr(-100), end: ptr(-130), want: ConfidenceHigh},
		{name: "missing start", start: nil, end: ptr(10), want: ConfidenceLow},
		{name: "missing end", start: ptr(10), end: nil, want: ConfidenceLow},
		{name: "both missing", start: nil, end: nil, want: ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.start, tt.end))
		})
	}
}

func TestIsOutlier(t *testing.T) {
	assert.False(t, IsOutlier(ptr(0), ptr(0)))
	assert.False(t, IsOutlier(ptr(0), ptr(500)))
	assert.True(t, IsOutlier(ptr(0), ptr(500.1)))
	assert.True(t, IsOutlier(nil, ptr(42)))
	assert.True(t, IsOutlier(ptr(42), nil))
	assert.True(t, IsOutlier(nil, nil))
}

func TestClassifyResultHelpers(t *testing.T) {
	ok := Result{StartDelayMs: ptr(120), EndDelayMs: ptr(140)}
	assert.Equal(t, ConfidenceHigh, ClassifyResult(ok))
	assert.False(t, ResultIsOutlier(ok))

	missing := Result{StartDelayMs: ptr(120)}
	assert.Equal(t, ConfidenceLow, ClassifyResult(missing))
	assert.True(t, ResultIsOutlier(missing))
}
