package port

import (
	"context"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
)

// Catalog is the durable record of videos and their artifacts; the single
// source of truth for what has been processed. Implementations touch only
// the store, never the filesystem.
type Catalog interface {
	// FindVideoBySource returns (nil, nil) when the URL is not catalogued.
	FindVideoBySource(ctx context.Context, sourceURL string) (*entity.Video, error)

	// InsertVideo relies on the store's unique constraint, not a prior
	// existence check, and returns ErrDuplicateSource on collision.
	InsertVideo(ctx context.Context, video *entity.Video) (int64, error)

	SetStatus(ctx context.Context, videoID int64, status entity.VideoStatus) error

	// ReplaceClips atomically swaps the video's clip rows for the given
	// batch: prior rows are purged and the batch inserted in one
	// transaction, so a re-run never leaves duplicates or a partial batch.
	ReplaceClips(ctx context.Context, videoID int64, clips []entity.Clip) error

	// ReplaceKeyframes has the same all-or-nothing contract as ReplaceClips.
	ReplaceKeyframes(ctx context.Context, videoID int64, frames []entity.Keyframe) error

	// CountArtifacts reports the stored clip and keyframe row counts.
	CountArtifacts(ctx context.Context, videoID int64) (clips, frames int64, err error)
}
