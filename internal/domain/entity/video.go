package entity

import "time"

type VideoStatus string

const (
	StatusUnprocessed VideoStatus = "unprocessed"
	StatusDownloading VideoStatus = "downloading"
	StatusProcessing  VideoStatus = "processing"
	StatusProcessed   VideoStatus = "processed"
	StatusFailed      VideoStatus = "failed"
)

// Video is one catalogued source. Identity is the source URL: the catalog
// enforces a unique constraint on it, and the pipeline never acquires the
// same URL twice.
type Video struct {
	ID           int64
	SourceURL    string
	Title        string
	LocalPath    string
	DownloadDate time.Time
	Status       VideoStatus
}

func NewVideo(sourceURL, title, localPath string) *Video {
	return &Video{
		SourceURL:    sourceURL,
		Title:        title,
		LocalPath:    localPath,
		DownloadDate: time.Now().UTC(),
		Status:       StatusUnprocessed,
	}
}

func (v *Video) MarkProcessing() { v.Status = StatusProcessing }
func (v *Video) MarkProcessed()  { v.Status = StatusProcessed }
func (v *Video) MarkFailed()     { v.Status = StatusFailed }

// Terminal reports whether the pipeline has nothing left to do for this
// video. Only processed is terminal: a failed video stays eligible for a
// re-run.
func (v *Video) Terminal() bool { return v.Status == StatusProcessed }

// Clip is one materialized scene of its parent video. Rows are written in a
// single batch after splitting succeeds and are immutable afterwards.
type Clip struct {
	ID           int64
	VideoID      int64
	LocalPath    string
	StartTimeSec float64
	EndTimeSec   float64
}

// Keyframe is a still image sampled at a fixed rate, video-scoped and
// independent of scene boundaries.
type Keyframe struct {
	ID           int64
	VideoID      int64
	LocalPath    string
	TimestampSec float64
}
