package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/odysseus-analytics/ingest-service/internal/domain/port"
)

const framePattern = "frame-%06d.jpg"

// FrameExtractor samples still frames uniformly in time with ffmpeg's fps
// filter. Frame files carry a monotonically increasing zero-padded index
// starting at 1, so the timestamp of frame i is (i-1)/rate.
type FrameExtractor struct {
	logger *zap.Logger
}

func NewFrameExtractor(logger *zap.Logger) *FrameExtractor {
	return &FrameExtractor{logger: logger}
}

func (e *FrameExtractor) ExtractFrames(ctx context.Context, videoPath string, rateHz float64, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &port.MaterializationError{Op: "extract_frames", Path: videoPath, Err: err}
	}

	// A prior run at a higher rate may have left frames past the index
	// range this run overwrites; they must not survive into the glob.
	stale, err := filepath.Glob(filepath.Join(outputDir, "frame-*.jpg"))
	if err != nil {
		return nil, &port.MaterializationError{Op: "extract_frames", Path: videoPath, Err: err}
	}
	for _, p := range stale {
		if err := os.Remove(p); err != nil {
			return nil, &port.MaterializationError{
				Op:   "extract_frames",
				Path: videoPath,
				Err:  fmt.Errorf("remove stale frame %s: %w", p, err),
			}
		}
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-nostats",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%g", rateHz),
		"-y",
		filepath.Join(outputDir, framePattern),
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &port.MaterializationError{
			Op:     "extract_frames",
			Path:   videoPath,
			Output: string(output),
			Err:    fmt.Errorf("ffmpeg fps=%g: %w", rateHz, err),
		}
	}

	frames, err := filepath.Glob(filepath.Join(outputDir, "frame-*.jpg"))
	if err != nil {
		return nil, &port.MaterializationError{Op: "extract_frames", Path: videoPath, Err: err}
	}
	if len(frames) == 0 {
		return nil, &port.MaterializationError{
			Op:   "extract_frames",
			Path: videoPath,
			Err:  fmt.Errorf("no frames extracted"),
		}
	}
	sort.Strings(frames)

	e.logger.Info("frames extracted",
		zap.String("video_path", videoPath),
		zap.Int("count", len(frames)),
		zap.Float64("rate_hz", rateHz),
	)
	return frames, nil
}
