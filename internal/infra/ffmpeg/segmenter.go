package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
	"github.com/odysseus-analytics/ingest-service/internal/domain/port"
)

// scdet reports each detected cut on stderr as "lavfi.scd.time: <seconds>".
var sceneTimeRe = regexp.MustCompile(`lavfi\.scd\.time:\s*([0-9.]+)`)

// Segmenter detects scene boundaries with ffmpeg's scdet filter. The
// threshold lives on scdet's 0-100 score scale; higher values mean fewer,
// longer scenes.
type Segmenter struct {
	logger *zap.Logger
}

func NewSegmenter(logger *zap.Logger) *Segmenter {
	return &Segmenter{logger: logger}
}

func (s *Segmenter) DetectScenes(ctx context.Context, videoPath string, threshold float64) ([]entity.Scene, float64, error) {
	duration, err := ProbeDuration(ctx, videoPath)
	if err != nil {
		return nil, 0, &port.DecodeError{Path: videoPath, Err: err}
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-nostats",
		"-i", videoPath,
		"-vf", fmt.Sprintf("scdet=threshold=%g", threshold),
		"-an",
		"-f", "null", "-",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, 0, &port.DecodeError{
			Path: videoPath,
			Err:  fmt.Errorf("ffmpeg scdet: %w: %s", err, string(output)),
		}
	}

	var boundaries []float64
	for _, match := range sceneTimeRe.FindAllStringSubmatch(string(output), -1) {
		t, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		boundaries = append(boundaries, t)
	}

	scenes := entity.ScenesFromBoundaries(boundaries, duration)
	s.logger.Info("scene detection complete",
		zap.String("video_path", videoPath),
		zap.Float64("duration_sec", duration),
		zap.Int("scene_count", len(scenes)),
	)
	return scenes, duration, nil
}
