package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
	"github.com/odysseus-analytics/ingest-service/internal/domain/port"
	"github.com/odysseus-analytics/ingest-service/internal/infra/metrics"
)

// IngestVideoUseCase drives one source reference through the full
// pipeline: acquire, register, detect scenes, materialize clips and
// keyframes, record the artifacts, flip the status. It owns every status
// transition; no other component writes to the catalog.
type IngestVideoUseCase struct {
	catalog   port.Catalog
	acquirer  port.Acquirer
	segmenter port.Segmenter
	splitter  port.Splitter
	extractor port.FrameExtractor
	publisher port.StatusPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	cfg       IngestConfig
	runID     uuid.UUID
}

type IngestConfig struct {
	ClipsDir       string
	FramesDir      string
	SceneThreshold float64
	FrameRateHz    float64
	StepTimeout    time.Duration
	AcquireTimeout time.Duration
}

func NewIngestVideoUseCase(
	catalog port.Catalog,
	acquirer port.Acquirer,
	segmenter port.Segmenter,
	splitter port.Splitter,
	extractor port.FrameExtractor,
	publisher port.StatusPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg IngestConfig,
) *IngestVideoUseCase {
	return &IngestVideoUseCase{
		catalog:   catalog,
		acquirer:  acquirer,
		segmenter: segmenter,
		splitter:  splitter,
		extractor: extractor,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
		runID:     uuid.New(),
	}
}

// Execute ingests one source reference. An already processed source is a
// no-op; a source left in any other state is re-run from scene detection
// onward without re-acquisition.
func (uc *IngestVideoUseCase) Execute(ctx context.Context, sourceURL string) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "IngestVideoUseCase.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("video.source_url", sourceURL))

	log := uc.logger.With(
		zap.String("source_url", sourceURL),
		zap.String("run_id", uc.runID.String()),
	)

	existing, err := uc.catalog.FindVideoBySource(ctx, sourceURL)
	if err != nil {
		return fmt.Errorf("idempotence check for %s: %w", sourceURL, err)
	}
	if existing != nil {
		if existing.Terminal() {
			log.Info("source already processed, skipping")
			metrics.SourcesSkippedTotal.Inc()
			return nil
		}
		log.Info("resuming previously catalogued video",
			zap.Int64("video_id", existing.ID),
			zap.String("prior_status", string(existing.Status)),
		)
		return uc.process(ctx, existing, log)
	}

	// Acquisition happens before the row exists: a video is never
	// catalogued without local content.
	acquireCtx, cancel := uc.boundedCtx(ctx, uc.cfg.AcquireTimeout)
	ctxAcq, spanAcq := tracer.Start(acquireCtx, "acquire")
	start := time.Now()
	localPath, title, err := uc.acquirer.Acquire(ctxAcq, sourceURL)
	spanAcq.End()
	cancel()
	metrics.StepDuration.WithLabelValues("acquire").Observe(time.Since(start).Seconds())
	if err != nil {
		log.Error("acquisition failed", zap.Error(err))
		uc.publishEvent(ctx, entity.VideoStatusEvent{
			RunID:        uc.runID,
			SourceURL:    sourceURL,
			Status:       entity.StatusFailed,
			FailedStep:   "acquire",
			ErrorMessage: err.Error(),
		})
		return fmt.Errorf("acquire %s: %w", sourceURL, err)
	}

	video := entity.NewVideo(sourceURL, title, localPath)
	if _, err := uc.catalog.InsertVideo(ctx, video); err != nil {
		if errors.Is(err, port.ErrDuplicateSource) {
			// Lost the insert race: another worker claimed this source
			// between the existence check and the insert.
			log.Info("source claimed by another worker, skipping")
			metrics.SourcesSkippedTotal.Inc()
			return nil
		}
		return fmt.Errorf("register video %s: %w", sourceURL, err)
	}
	log.Info("video registered",
		zap.Int64("video_id", video.ID),
		zap.String("local_path", localPath),
	)

	return uc.process(ctx, video, log)
}

// process runs scene detection onward for a video that already has a row
// and local content. Re-runs are safe: clip and keyframe rows are replaced
// wholesale and artifact filenames are deterministic.
func (uc *IngestVideoUseCase) process(ctx context.Context, video *entity.Video, log *zap.Logger) error {
	tracer := otel.Tracer("usecase")
	log = log.With(zap.Int64("video_id", video.ID))

	video.MarkProcessing()
	if err := uc.catalog.SetStatus(ctx, video.ID, video.Status); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	stepCtx, cancel := uc.boundedCtx(ctx, uc.cfg.StepTimeout)
	ctxSeg, spanSeg := tracer.Start(stepCtx, "detect_scenes")
	start := time.Now()
	scenes, duration, err := uc.segmenter.DetectScenes(ctxSeg, video.LocalPath, uc.cfg.SceneThreshold)
	spanSeg.End()
	cancel()
	metrics.StepDuration.WithLabelValues("detect_scenes").Observe(time.Since(start).Seconds())
	if err != nil {
		return uc.fail(ctx, video, "detect_scenes", err, log)
	}
	if err := entity.ValidatePartition(scenes, duration); err != nil {
		return uc.fail(ctx, video, "detect_scenes", err, log)
	}

	base := strings.TrimSuffix(filepath.Base(video.LocalPath), filepath.Ext(video.LocalPath))
	clipDir := filepath.Join(uc.cfg.ClipsDir, base)
	frameDir := filepath.Join(uc.cfg.FramesDir, base)

	// Splitting and frame extraction are independent read-only consumers
	// of the source file and run concurrently.
	var (
		wg         sync.WaitGroup
		clipPaths  []string
		framePaths []string
		splitErr   error
		extractErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		splitCtx, cancel := uc.boundedCtx(ctx, uc.cfg.StepTimeout)
		defer cancel()
		c, span := tracer.Start(splitCtx, "split_clips")
		defer span.End()
		start := time.Now()
		clipPaths, splitErr = uc.splitter.SplitClips(c, video.LocalPath, scenes, clipDir)
		metrics.StepDuration.WithLabelValues("split_clips").Observe(time.Since(start).Seconds())
	}()
	go func() {
		defer wg.Done()
		extractCtx, cancel := uc.boundedCtx(ctx, uc.cfg.StepTimeout)
		defer cancel()
		c, span := tracer.Start(extractCtx, "extract_frames")
		defer span.End()
		start := time.Now()
		framePaths, extractErr = uc.extractor.ExtractFrames(c, video.LocalPath, uc.cfg.FrameRateHz, frameDir)
		metrics.StepDuration.WithLabelValues("extract_frames").Observe(time.Since(start).Seconds())
	}()
	wg.Wait()

	if splitErr != nil {
		return uc.fail(ctx, video, "split_clips", splitErr, log)
	}
	if extractErr != nil {
		return uc.fail(ctx, video, "extract_frames", extractErr, log)
	}
	if len(clipPaths) != len(scenes) {
		return uc.fail(ctx, video, "split_clips",
			fmt.Errorf("materialized %d clips for %d scenes", len(clipPaths), len(scenes)), log)
	}

	clips := make([]entity.Clip, len(scenes))
	for i, scene := range scenes {
		clips[i] = entity.Clip{
			VideoID:      video.ID,
			LocalPath:    clipPaths[i],
			StartTimeSec: scene.StartSec,
			EndTimeSec:   scene.EndSec,
		}
	}
	frames := make([]entity.Keyframe, len(framePaths))
	for i, p := range framePaths {
		frames[i] = entity.Keyframe{
			VideoID:      video.ID,
			LocalPath:    p,
			TimestampSec: float64(i) / uc.cfg.FrameRateHz,
		}
	}

	if err := uc.catalog.ReplaceClips(ctx, video.ID, clips); err != nil {
		return uc.fail(ctx, video, "record_clips", err, log)
	}
	if err := uc.catalog.ReplaceKeyframes(ctx, video.ID, frames); err != nil {
		return uc.fail(ctx, video, "record_keyframes", err, log)
	}

	video.MarkProcessed()
	if err := uc.catalog.SetStatus(ctx, video.ID, video.Status); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	metrics.VideosProcessedTotal.WithLabelValues("processed").Inc()
	metrics.ClipsWrittenTotal.Add(float64(len(clips)))
	metrics.FramesExtractedTotal.Add(float64(len(frames)))

	uc.publishEvent(ctx, entity.VideoStatusEvent{
		RunID:       uc.runID,
		VideoID:     video.ID,
		SourceURL:   video.SourceURL,
		Status:      entity.StatusProcessed,
		LocalPath:   video.LocalPath,
		ClipCount:   len(clips),
		FrameCount:  len(frames),
		DurationSec: duration,
	})

	log.Info("video processed",
		zap.Int("clip_count", len(clips)),
		zap.Int("frame_count", len(frames)),
		zap.Float64("duration_sec", duration),
	)
	return nil
}

// fail records the failed status, emits the failure event and operator
// notification, and returns the step error with full context. The status
// write is best-effort: if the store is down too, both errors surface.
func (uc *IngestVideoUseCase) fail(ctx context.Context, video *entity.Video, step string, stepErr error, log *zap.Logger) error {
	log.Error("pipeline step failed",
		zap.String("step", step),
		zap.Error(stepErr),
	)

	// The failed status must land even when the step error was a run
	// cancellation, so the write uses a detached context.
	statusCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	video.MarkFailed()
	if err := uc.catalog.SetStatus(statusCtx, video.ID, video.Status); err != nil {
		log.Error("failed to record failed status", zap.Error(err))
		return fmt.Errorf("process %s: %s: %v (additionally: %w)", video.SourceURL, step, stepErr, err)
	}

	metrics.VideosProcessedTotal.WithLabelValues("failed").Inc()

	uc.publishEvent(statusCtx, entity.VideoStatusEvent{
		RunID:        uc.runID,
		VideoID:      video.ID,
		SourceURL:    video.SourceURL,
		Status:       entity.StatusFailed,
		FailedStep:   step,
		ErrorMessage: stepErr.Error(),
	})
	if err := uc.notifier.NotifyFailure(statusCtx, video.SourceURL, step, stepErr.Error()); err != nil {
		log.Warn("failure notification not delivered", zap.Error(err))
	}

	return fmt.Errorf("process %s: %s: %w", video.SourceURL, step, stepErr)
}

func (uc *IngestVideoUseCase) publishEvent(ctx context.Context, event entity.VideoStatusEvent) {
	if err := uc.publisher.PublishStatus(ctx, event); err != nil {
		uc.logger.Warn("status event not published",
			zap.String("source_url", event.SourceURL),
			zap.Error(err),
		)
	}
}

func (uc *IngestVideoUseCase) boundedCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
