package usecase

import (
	"context"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
)

// NopStatusPublisher stands in when no message broker is configured.
type NopStatusPublisher struct{}

func (NopStatusPublisher) PublishStatus(context.Context, entity.VideoStatusEvent) error { return nil }

// NopFailureNotifier stands in when no SMTP host is configured.
type NopFailureNotifier struct{}

func (NopFailureNotifier) NotifyFailure(_ context.Context, _, _, _ string) error { return nil }
