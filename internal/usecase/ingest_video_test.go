package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
	"github.com/odysseus-analytics/ingest-service/internal/domain/port"
	"github.com/odysseus-analytics/ingest-service/internal/usecase"
)

// fakeCatalog is an in-memory port.Catalog honoring the same contracts as
// the postgres implementation: unique source URLs, all-or-nothing batches.
type fakeCatalog struct {
	mu     sync.Mutex
	nextID int64
	videos map[string]*entity.Video
	clips  map[int64][]entity.Clip
	frames map[int64][]entity.Keyframe

	findErr   error
	insertErr error
	clipsErr  error
	framesErr error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		videos: make(map[string]*entity.Video),
		clips:  make(map[int64][]entity.Clip),
		frames: make(map[int64][]entity.Keyframe),
	}
}

func (c *fakeCatalog) FindVideoBySource(_ context.Context, sourceURL string) (*entity.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.findErr != nil {
		return nil, c.findErr
	}
	v, ok := c.videos[sourceURL]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (c *fakeCatalog) InsertVideo(_ context.Context, video *entity.Video) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.insertErr != nil {
		return 0, c.insertErr
	}
	if _, exists := c.videos[video.SourceURL]; exists {
		return 0, fmt.Errorf("insert video: %w", port.ErrDuplicateSource)
	}
	c.nextID++
	video.ID = c.nextID
	copied := *video
	c.videos[video.SourceURL] = &copied
	return video.ID, nil
}

func (c *fakeCatalog) SetStatus(ctx context.Context, videoID int64, status entity.VideoStatus) error {
	// A cancelled context fails the write, as a real connection would.
	if err := ctx.Err(); err != nil {
		return &port.CatalogError{Op: "set_status", Err: err}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.videos {
		if v.ID == videoID {
			v.Status = status
			return nil
		}
	}
	return &port.CatalogError{Op: "set_status", Err: fmt.Errorf("video %d not found", videoID)}
}

func (c *fakeCatalog) ReplaceClips(_ context.Context, videoID int64, clips []entity.Clip) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clipsErr != nil {
		// All-or-nothing: a failed batch stores no rows at all.
		return c.clipsErr
	}
	c.clips[videoID] = append([]entity.Clip(nil), clips...)
	return nil
}

func (c *fakeCatalog) ReplaceKeyframes(_ context.Context, videoID int64, frames []entity.Keyframe) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.framesErr != nil {
		return c.framesErr
	}
	c.frames[videoID] = append([]entity.Keyframe(nil), frames...)
	return nil
}

func (c *fakeCatalog) CountArtifacts(_ context.Context, videoID int64) (int64, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.clips[videoID])), int64(len(c.frames[videoID])), nil
}

func (c *fakeCatalog) status(sourceURL string) entity.VideoStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.videos[sourceURL]; ok {
		return v.Status
	}
	return ""
}

type fakeAcquirer struct {
	calls atomic.Int32
	errs  map[string]error
}

func (a *fakeAcquirer) Acquire(_ context.Context, sourceURL string) (string, string, error) {
	a.calls.Add(1)
	if err, ok := a.errs[sourceURL]; ok {
		return "", "", err
	}
	return "/data/raw/clip1.mp4", "clip1", nil
}

type fakeSegmenter struct {
	calls    atomic.Int32
	scenes   []entity.Scene
	duration float64
	err      error
}

func (s *fakeSegmenter) DetectScenes(context.Context, string, float64) ([]entity.Scene, float64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.scenes, s.duration, nil
}

type fakeSplitter struct {
	calls atomic.Int32
	err   error
}

func (s *fakeSplitter) SplitClips(_ context.Context, _ string, scenes []entity.Scene, outputDir string) ([]string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	paths := make([]string, len(scenes))
	for i := range scenes {
		paths[i] = fmt.Sprintf("%s/clip1-%03d.mp4", outputDir, i+1)
	}
	return paths, nil
}

type fakeExtractor struct {
	calls      atomic.Int32
	frameCount int
	err        error
}

func (e *fakeExtractor) ExtractFrames(_ context.Context, _ string, _ float64, outputDir string) ([]string, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	paths := make([]string, e.frameCount)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s/frame-%06d.jpg", outputDir, i+1)
	}
	return paths, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string // failed step per call
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, _, step, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, step)
	return nil
}

type fixture struct {
	catalog   *fakeCatalog
	acquirer  *fakeAcquirer
	segmenter *fakeSegmenter
	splitter  *fakeSplitter
	extractor *fakeExtractor
	notifier  *fakeNotifier
	uc        *usecase.IngestVideoUseCase
}

const sourceURL = "https://example.org/clip1.mp4"

func testConfig() usecase.IngestConfig {
	return usecase.IngestConfig{
		ClipsDir:       "/data/clips",
		FramesDir:      "/data/frames",
		SceneThreshold: 27.0,
		FrameRateHz:    2,
		StepTimeout:    time.Minute,
		AcquireTimeout: time.Minute,
	}
}

func newFixture() *fixture {
	f := &fixture{
		catalog:  newFakeCatalog(),
		acquirer: &fakeAcquirer{},
		segmenter: &fakeSegmenter{
			scenes:   []entity.Scene{{StartSec: 0, EndSec: 4.0}, {StartSec: 4.0, EndSec: 10.0}},
			duration: 10.0,
		},
		splitter:  &fakeSplitter{},
		extractor: &fakeExtractor{frameCount: 20},
		notifier:  &fakeNotifier{},
	}
	f.uc = usecase.NewIngestVideoUseCase(
		f.catalog, f.acquirer, f.segmenter, f.splitter, f.extractor,
		usecase.NopStatusPublisher{}, f.notifier,
		zap.NewNop(),
		testConfig(),
	)
	return f
}

func TestExampleScenario(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.uc.Execute(context.Background(), sourceURL))

	video, err := f.catalog.FindVideoBySource(context.Background(), sourceURL)
	require.NoError(t, err)
	require.NotNil(t, video)
	assert.Equal(t, entity.StatusProcessed, video.Status)

	clips := f.catalog.clips[video.ID]
	require.Len(t, clips, 2)
	assert.Equal(t, 0.0, clips[0].StartTimeSec)
	assert.Equal(t, 4.0, clips[0].EndTimeSec)
	assert.Equal(t, 4.0, clips[1].StartTimeSec)
	assert.Equal(t, 10.0, clips[1].EndTimeSec)

	frames := f.catalog.frames[video.ID]
	require.Len(t, frames, 20)
	for i, frame := range frames {
		assert.Equal(t, float64(i)*0.5, frame.TimestampSec)
	}
	assert.Equal(t, 9.5, frames[19].TimestampSec)
}

func TestResubmitProcessedIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.uc.Execute(ctx, sourceURL))
	require.NoError(t, f.uc.Execute(ctx, sourceURL))
	require.NoError(t, f.uc.Execute(ctx, sourceURL))

	assert.Equal(t, int32(1), f.acquirer.calls.Load(), "one acquisition ever")
	assert.Equal(t, int32(1), f.segmenter.calls.Load(), "one segmentation ever")
	assert.Equal(t, int32(1), f.splitter.calls.Load())
	assert.Equal(t, int32(1), f.extractor.calls.Load())

	video, _ := f.catalog.FindVideoBySource(ctx, sourceURL)
	clips, frames, err := f.catalog.CountArtifacts(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), clips)
	assert.Equal(t, int64(20), frames)
}

func TestInsertClaimLostToConcurrentWorker(t *testing.T) {
	f := newFixture()
	// The source is absent at check time but claimed by the time this
	// worker inserts, as happens between concurrent workers.
	f.catalog.insertErr = fmt.Errorf("insert video: %w", port.ErrDuplicateSource)

	require.NoError(t, f.uc.Execute(context.Background(), sourceURL))

	assert.Equal(t, int32(1), f.acquirer.calls.Load())
	assert.Zero(t, f.segmenter.calls.Load(), "the losing worker must not process")
}

func TestAcquisitionFailureLeavesCatalogUnchanged(t *testing.T) {
	f := newFixture()
	f.acquirer.errs = map[string]error{
		sourceURL: &port.AcquisitionError{
			SourceURL: sourceURL,
			Kind:      port.AcquireNetwork,
			Err:       fmt.Errorf("connection reset"),
		},
	}

	err := f.uc.Execute(context.Background(), sourceURL)
	require.Error(t, err)

	var acqErr *port.AcquisitionError
	assert.ErrorAs(t, err, &acqErr)

	video, findErr := f.catalog.FindVideoBySource(context.Background(), sourceURL)
	require.NoError(t, findErr)
	assert.Nil(t, video, "no row without local content")
	assert.Zero(t, f.segmenter.calls.Load())
}

func TestMaterializationFailureMarksFailed(t *testing.T) {
	f := newFixture()
	f.splitter.err = &port.MaterializationError{
		Op:   "split_clips",
		Path: "/data/raw/clip1.mp4",
		Err:  fmt.Errorf("exit status 1"),
	}

	err := f.uc.Execute(context.Background(), sourceURL)
	require.Error(t, err)
	assert.Equal(t, entity.StatusFailed, f.catalog.status(sourceURL))

	video, _ := f.catalog.FindVideoBySource(context.Background(), sourceURL)
	clips, _, _ := f.catalog.CountArtifacts(context.Background(), video.ID)
	assert.Zero(t, clips, "partial output must not be catalogued")
	assert.Equal(t, []string{"split_clips"}, f.notifier.calls)
}

func TestKeyframeBatchFailureNeverYieldsProcessed(t *testing.T) {
	f := newFixture()
	f.catalog.framesErr = &port.CatalogError{Op: "replace_keyframes", Err: fmt.Errorf("connection lost")}

	err := f.uc.Execute(context.Background(), sourceURL)
	require.Error(t, err)
	assert.Equal(t, entity.StatusFailed, f.catalog.status(sourceURL))

	video, _ := f.catalog.FindVideoBySource(context.Background(), sourceURL)
	_, frames, _ := f.catalog.CountArtifacts(context.Background(), video.ID)
	assert.Zero(t, frames, "failed batch stores no rows")
}

func TestDecodeFailureMarksFailed(t *testing.T) {
	f := newFixture()
	f.segmenter.err = &port.DecodeError{Path: "/data/raw/clip1.mp4", Err: fmt.Errorf("moov atom not found")}

	err := f.uc.Execute(context.Background(), sourceURL)
	require.Error(t, err)

	var decErr *port.DecodeError
	assert.ErrorAs(t, err, &decErr)
	assert.Equal(t, entity.StatusFailed, f.catalog.status(sourceURL))
	assert.Zero(t, f.splitter.calls.Load())
	assert.Zero(t, f.extractor.calls.Load())
}

func TestRecoveryFromFailedRun(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// First attempt fails during splitting.
	f.splitter.err = &port.MaterializationError{Op: "split_clips", Err: fmt.Errorf("exit status 1")}
	require.Error(t, f.uc.Execute(ctx, sourceURL))
	require.Equal(t, entity.StatusFailed, f.catalog.status(sourceURL))

	// Re-run: no re-acquisition, ends processed with clean-run row counts.
	f.splitter.err = nil
	require.NoError(t, f.uc.Execute(ctx, sourceURL))

	assert.Equal(t, int32(1), f.acquirer.calls.Load(), "local path is known, no second acquisition")
	assert.Equal(t, entity.StatusProcessed, f.catalog.status(sourceURL))

	video, _ := f.catalog.FindVideoBySource(ctx, sourceURL)
	clips, frames, err := f.catalog.CountArtifacts(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), clips, "re-run leaves no duplicate clip rows")
	assert.Equal(t, int64(20), frames, "re-run leaves no duplicate keyframe rows")
}

func TestRunnerIsolatesPerVideoFailures(t *testing.T) {
	f := newFixture()
	badSource := "https://example.org/removed.mp4"
	f.acquirer.errs = map[string]error{
		badSource: &port.AcquisitionError{
			SourceURL: badSource,
			Kind:      port.AcquireUnavailable,
			Err:       fmt.Errorf("video unavailable"),
		},
	}

	runner := usecase.NewRunner(f.uc, 2, zap.NewNop())
	err := runner.Run(context.Background(), []string{badSource, sourceURL})
	require.NoError(t, err, "a per-video failure does not fail the run")

	assert.Equal(t, entity.StatusProcessed, f.catalog.status(sourceURL))
}

func TestRunnerStopsOnCatalogError(t *testing.T) {
	f := newFixture()
	f.catalog.findErr = &port.CatalogError{Op: "find_video", Err: fmt.Errorf("store unreachable")}

	runner := usecase.NewRunner(f.uc, 1, zap.NewNop())
	err := runner.Run(context.Background(), []string{sourceURL, "https://example.org/clip2.mp4"})
	require.Error(t, err)

	var catErr *port.CatalogError
	assert.ErrorAs(t, err, &catErr)
	assert.Zero(t, f.acquirer.calls.Load())
}

// blockingSegmenter parks until its context is cancelled, standing in for
// an external tool that outlives the run.
type blockingSegmenter struct {
	started chan struct{}
}

func (s *blockingSegmenter) DetectScenes(ctx context.Context, _ string, _ float64) ([]entity.Scene, float64, error) {
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, 0, ctx.Err()
}

func TestCancelledRunEndsFailedNeverProcessed(t *testing.T) {
	f := newFixture()
	seg := &blockingSegmenter{started: make(chan struct{}, 1)}
	uc := usecase.NewIngestVideoUseCase(
		f.catalog, f.acquirer, seg, f.splitter, f.extractor,
		usecase.NopStatusPublisher{}, f.notifier,
		zap.NewNop(),
		testConfig(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- uc.Execute(ctx, sourceURL) }()

	<-seg.started
	cancel()

	err := <-errCh
	require.Error(t, err)
	// The failed status must land even though the run context is gone.
	assert.Equal(t, entity.StatusFailed, f.catalog.status(sourceURL))
	assert.Zero(t, f.splitter.calls.Load())
	assert.Zero(t, f.extractor.calls.Load())
}

func TestRunnerDrainsOnCancellation(t *testing.T) {
	f := newFixture()
	seg := &blockingSegmenter{started: make(chan struct{}, 1)}
	uc := usecase.NewIngestVideoUseCase(
		f.catalog, f.acquirer, seg, f.splitter, f.extractor,
		usecase.NopStatusPublisher{}, f.notifier,
		zap.NewNop(),
		testConfig(),
	)
	runner := usecase.NewRunner(uc, 1, zap.NewNop())

	sources := []string{
		sourceURL,
		"https://example.org/clip2.mp4",
		"https://example.org/clip3.mp4",
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx, sources) }()

	<-seg.started
	cancel()

	err := <-errCh
	require.ErrorIs(t, err, context.Canceled)

	// The in-flight video ends failed; the rest were never dispatched and
	// nothing is left processed.
	assert.Equal(t, entity.StatusFailed, f.catalog.status(sourceURL))
	for _, src := range sources[1:] {
		v, findErr := f.catalog.FindVideoBySource(context.Background(), src)
		require.NoError(t, findErr)
		assert.Nil(t, v)
	}
	for _, v := range f.catalog.videos {
		assert.NotEqual(t, entity.StatusProcessed, v.Status)
	}
}
