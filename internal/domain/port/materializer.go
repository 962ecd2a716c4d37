package port

import (
	"context"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
)

// Splitter writes one clip file per scene into outputDir. Filenames are a
// pure function of the video's basename and the 1-based scene index, so a
// re-run overwrites instead of duplicating. Returned paths are ordered by
// scene index. Failures are *MaterializationError; any partial output is
// invalid and must not be catalogued.
type Splitter interface {
	SplitClips(ctx context.Context, localPath string, scenes []entity.Scene, outputDir string) ([]string, error)
}

// FrameExtractor samples still frames uniformly in time at rateHz and
// writes them into outputDir with a monotonically increasing zero-padded
// index. Returned paths are in index order.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, localPath string, rateHz float64, outputDir string) ([]string, error)
}
