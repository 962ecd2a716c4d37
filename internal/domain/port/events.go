package port

import (
	"context"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
)

// StatusPublisher emits terminal status transitions for downstream
// consumers. Publishing is best-effort; the pipeline never fails a video
// because an event could not be delivered.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, event entity.VideoStatusEvent) error
}

// FailureNotifier tells the operator that a video entered failed status.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, sourceURL, step, errorMsg string) error
}
