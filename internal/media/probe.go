package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// ProbeInfo summarizes a media file for pre-run annotation: which stream
// kinds it carries and how long it runs. DurationSeconds is nil when the
// container does not report one.
type ProbeInfo struct {
	HasAudio        bool     `json:"has_audio"`
	HasVideo        bool     `json:"has_video"`
	DurationSeconds *float64 `json:"duration,omitempty"`
}

// Probe inspects a file with ffprobe. The engine itself does not need
// this; the host uses it to annotate working sets before a run.
func (t Tool) Probe(ctx context.Context, path string) (ProbeInfo, error) {
	cmdPath, err := exec.LookPath(t.ffprobeCmd)
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("ffprobe not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, cmdPath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-show_streams",
		"-of", "json",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	ret, err := parseProbeOutput(output)
	if err != nil {
		return ProbeInfo{}, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
	}
	return ret, nil
}

func parseProbeOutput(output []byte) (ProbeInfo, error) {
	var probeResult struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probeResult); err != nil {
		return ProbeInfo{}, err
	}

	var ret ProbeInfo
	for _, stream := range probeResult.Streams {
		switch stream.CodecType {
		case "audio":
			ret.HasAudio = true
		case "video":
			ret.HasVideo = true
		}
	}
	if probeResult.Format.Duration != "" {
		if duration, err := strconv.ParseFloat(probeResult.Format.Duration, 64); err == nil {
			ret.DurationSeconds = &duration
		}
	}
	return ret, nil
}
