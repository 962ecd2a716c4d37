package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
	"github.com/odysseus-analytics/ingest-service/internal/domain/port"
)

// ClipFileName is the naming contract for clip files: a pure function of
// the video's basename and the 1-based scene index, so re-materializing a
// video overwrites its old clips instead of duplicating them.
func ClipFileName(videoBase string, sceneIndex int) string {
	return fmt.Sprintf("%s-%03d.mp4", videoBase, sceneIndex)
}

// VideoBase strips the extension from a video file path.
func VideoBase(videoPath string) string {
	base := filepath.Base(videoPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Splitter materializes one clip file per scene via stream copy.
type Splitter struct {
	logger *zap.Logger
}

func NewSplitter(logger *zap.Logger) *Splitter {
	return &Splitter{logger: logger}
}

func (s *Splitter) SplitClips(ctx context.Context, videoPath string, scenes []entity.Scene, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &port.MaterializationError{Op: "split_clips", Path: videoPath, Err: err}
	}

	base := VideoBase(videoPath)
	paths := make([]string, 0, len(scenes))
	for i, scene := range scenes {
		clipPath := filepath.Join(outputDir, ClipFileName(base, i+1))
		cmd := exec.CommandContext(ctx, "ffmpeg",
			"-hide_banner", "-nostats",
			"-ss", fmt.Sprintf("%.3f", scene.StartSec),
			"-to", fmt.Sprintf("%.3f", scene.EndSec),
			"-i", videoPath,
			"-c", "copy",
			"-y",
			clipPath,
		)
		output, err := cmd.CombinedOutput()
		if err != nil {
			return nil, &port.MaterializationError{
				Op:     "split_clips",
				Path:   videoPath,
				Output: string(output),
				Err:    fmt.Errorf("scene %d [%.3f, %.3f): %w", i+1, scene.StartSec, scene.EndSec, err),
			}
		}
		paths = append(paths, clipPath)
	}

	s.logger.Info("clips written",
		zap.String("video_path", videoPath),
		zap.Int("count", len(paths)),
		zap.String("output_dir", outputDir),
	)
	return paths, nil
}
