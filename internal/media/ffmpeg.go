package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/driftwatch/audiosync/pkg/log"
)

// Tool wraps the ffmpeg/ffprobe binaries. Commands are configurable so
// containerized deployments can point at their own builds.
type Tool struct {
	ffmpegCmd  string
	ffprobeCmd string
}

func NewTool(ffmpegCmd, ffprobeCmd string) Tool {
	if ffmpegCmd == "" {
		ffmpegCmd = "ffmpeg"
	}
	if ffprobeCmd == "" {
		ffprobeCmd = "ffprobe"
	}
	return Tool{
		ffmpegCmd:  ffmpegCmd,
		ffprobeCmd: ffprobeCmd,
	}
}

// ExtractPCM decodes a mono PCM excerpt of the file's audio track.
// offsetSec seeks before decoding; durationSec <= 0 reads to EOF.
// Samples are normalized to [-1, 1).
func (t Tool) ExtractPCM(ctx context.Context, path string, offsetSec, durationSec float64, sampleRate int) ([]float64, error) {
	cmdPath, err := exec.LookPath(t.ffmpegCmd)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, cmdPath, t.extractPCMArgs(path, offsetSec, durationSec, sampleRate)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		log.Debug("ffmpeg failed for %s: %v", path, err)
		return nil, fmt.Errorf("ffmpeg decode %s: %w (%s)", path, err, firstLine(stderr.String()))
	}

	return decodeS16LE(output), nil
}

func (t Tool) extractPCMArgs(path string, offsetSec, durationSec float64, sampleRate int) []string {
	args := make([]string, 0, 16)
	if offsetSec > 0 {
		args = append(args, "-ss", formatSeconds(offsetSec))
	}
	args = append(args, "-i", path)
	if durationSec > 0 {
		args = append(args, "-t", formatSeconds(durationSec))
	}
	args = append(args,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-",
	)
	return args
}

// Duration returns the container duration in seconds.
func (t Tool) Duration(ctx context.Context, path string) (float64, error) {
	cmdPath, err := exec.LookPath(t.ffprobeCmd)
	if err != nil {
		return 0, fmt.Errorf("ffprobe not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, cmdPath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %s: %w", path, err)
	}

	text := strings.TrimSpace(string(output))
	if text == "" || text == "N/A" {
		return 0, fmt.Errorf("no duration reported for %s", path)
	}
	duration, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q for %s: %w", text, path, err)
	}
	return duration, nil
}

// decodeS16LE converts little-endian signed 16-bit PCM into normalized
// float64 samples. A trailing odd byte is dropped.
func decodeS16LE(raw []byte) []float64 {
	samples := make([]float64, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		v := int16(binary.LittleEndian.Uint16(raw[i : i+2]))
		samples = append(samples, float64(v)/32768.0)
	}
	return samples
}

func formatSeconds(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
