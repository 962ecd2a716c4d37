package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/odysseus-analytics/ingest-service/internal/domain/port"
	"github.com/odysseus-analytics/ingest-service/internal/infra/metrics"
)

// Runner fans a bounded list of source references out to a pool of
// workers. Videos are independent, so workers coordinate only through the
// catalog's insert-claim; per-video failures never stop the run. A catalog
// failure does: with the store down no progress can be recorded.
type Runner struct {
	uc      *IngestVideoUseCase
	workers int
	logger  *zap.Logger
}

func NewRunner(uc *IngestVideoUseCase, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{uc: uc, workers: workers, logger: logger}
}

func (r *Runner) Run(ctx context.Context, sources []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	refs := make(chan string)
	var (
		wg         sync.WaitGroup
		failed     atomic.Int64
		catalogErr atomic.Pointer[port.CatalogError]
	)

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			log := r.logger.With(zap.Int("worker_id", id))
			for ref := range refs {
				metrics.ActiveWorkers.Inc()
				err := r.uc.Execute(ctx, ref)
				metrics.ActiveWorkers.Dec()
				if err == nil {
					continue
				}
				failed.Add(1)
				log.Error("source not ingested", zap.String("source_url", ref), zap.Error(err))

				var ce *port.CatalogError
				if errors.As(err, &ce) {
					catalogErr.Store(ce)
					cancel()
					return
				}
			}
		}(i)
	}

	r.logger.Info("run started",
		zap.Int("workers", r.workers),
		zap.Int("sources", len(sources)),
	)

feed:
	for _, ref := range sources {
		select {
		case refs <- ref:
		case <-ctx.Done():
			break feed
		}
	}
	close(refs)
	wg.Wait()

	if ce := catalogErr.Load(); ce != nil {
		return ce
	}
	r.logger.Info("run finished", zap.Int64("failed", failed.Load()))
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
