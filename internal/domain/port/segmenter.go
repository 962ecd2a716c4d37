package port

import (
	"context"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
)

// Segmenter detects scene boundaries in a local video. The returned scenes
// partition [0, duration) ordered by start time; a video with no detected
// boundaries yields exactly one scene spanning the whole duration. A video
// that cannot be opened fails with *DecodeError.
type Segmenter interface {
	DetectScenes(ctx context.Context, localPath string, threshold float64) ([]entity.Scene, float64, error)
}
