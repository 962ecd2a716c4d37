package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/odysseus-analytics/ingest-service/internal/domain/port"
	"github.com/odysseus-analytics/ingest-service/internal/infra/config"
	"github.com/odysseus-analytics/ingest-service/internal/infra/email"
	"github.com/odysseus-analytics/ingest-service/internal/infra/ffmpeg"
	"github.com/odysseus-analytics/ingest-service/internal/infra/metrics"
	miniostorage "github.com/odysseus-analytics/ingest-service/internal/infra/minio"
	"github.com/odysseus-analytics/ingest-service/internal/infra/postgres"
	"github.com/odysseus-analytics/ingest-service/internal/infra/rabbitmq"
	"github.com/odysseus-analytics/ingest-service/internal/infra/tracing"
	"github.com/odysseus-analytics/ingest-service/internal/infra/ytdlp"
	"github.com/odysseus-analytics/ingest-service/internal/usecase"
	"github.com/odysseus-analytics/ingest-service/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "odysseus-ingest-service: %v\n", err)
		os.Exit(1)
	}
}

// run holds all the deferred cleanup so a failing exit still closes the
// pool, flushes traces and syncs the logger before main exits non-zero.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting odysseus-ingest-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.Init(ctx, cfg.JaegerEndpoint, "odysseus-ingest-service")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	// Catalog
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL(), "migrations"); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	catalog := postgres.NewCatalog(pool)

	// Optional object storage for s3:// sources
	var store ytdlp.ObjectStore
	if cfg.MinIOEndpoint != "" {
		objectStore, err := miniostorage.NewObjectStore(miniostorage.StorageConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return fmt.Errorf("create object store client: %w", err)
		}
		store = objectStore
	}

	// Optional status-event publishing
	var publisher port.StatusPublisher = usecase.NopStatusPublisher{}
	if cfg.RabbitMQURL != "" {
		statusPub, err := rabbitmq.NewStatusPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.StatusQueue)
		if err != nil {
			return fmt.Errorf("create status publisher: %w", err)
		}
		defer statusPub.Close()
		publisher = statusPub
	}

	// Optional operator notification
	var notifier port.FailureNotifier = usecase.NopFailureNotifier{}
	if cfg.SMTPHost != "" && cfg.NotificationTo != "" {
		notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.NotificationTo, log)
	}

	uc := usecase.NewIngestVideoUseCase(
		catalog,
		ytdlp.NewAcquirer(cfg.RawVideoDir, store, log),
		ffmpeg.NewSegmenter(log),
		ffmpeg.NewSplitter(log),
		ffmpeg.NewFrameExtractor(log),
		publisher,
		notifier,
		log,
		usecase.IngestConfig{
			ClipsDir:       cfg.ClipsDir,
			FramesDir:      cfg.FramesDir,
			SceneThreshold: cfg.SceneThreshold,
			FrameRateHz:    cfg.FrameRateHz,
			StepTimeout:    cfg.StepTimeout,
			AcquireTimeout: cfg.AcquireTimeout,
		},
	)

	metricsSrv := metrics.Serve(cfg.MetricsPort, log)

	sources, err := cfg.SourceList()
	if err != nil {
		return fmt.Errorf("load source list: %w", err)
	}
	if len(sources) == 0 {
		log.Warn("no sources configured, nothing to do")
	}

	// Graceful shutdown: in-flight external tools are killed through the
	// context; affected videos end failed, never processed.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	runner := usecase.NewRunner(uc, cfg.WorkerCount, log)
	runErr := runner.Run(ctx, sources)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	if runErr != nil {
		log.Error("run ended with error", zap.Error(runErr))
		return runErr
	}

	log.Info("odysseus-ingest-service stopped")
	return nil
}
