package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VideosProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "odysseus_videos_processed_total",
		Help: "Total number of videos that reached a terminal outcome, by outcome",
	}, []string{"outcome"})

	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odysseus_pipeline_step_duration_seconds",
		Help:    "Duration of each pipeline step",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"step"})

	ClipsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odysseus_clips_written_total",
		Help: "Total number of clip files materialized across all videos",
	})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odysseus_frames_extracted_total",
		Help: "Total number of keyframes extracted across all videos",
	})

	SourcesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "odysseus_sources_skipped_total",
		Help: "Total number of source references skipped because they were already catalogued",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "odysseus_active_workers",
		Help: "Number of workers currently processing a video",
	})
)
