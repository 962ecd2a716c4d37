package entity

import "github.com/google/uuid"

// VideoStatusEvent is published when a video reaches a terminal outcome for
// the current run (processed or failed).
type VideoStatusEvent struct {
	RunID        uuid.UUID   `json:"run_id"`
	VideoID      int64       `json:"video_id,omitempty"`
	SourceURL    string      `json:"source_url"`
	Status       VideoStatus `json:"status"`
	LocalPath    string      `json:"local_path,omitempty"`
	ClipCount    int         `json:"clip_count,omitempty"`
	FrameCount   int         `json:"frame_count,omitempty"`
	DurationSec  float64     `json:"duration_seconds,omitempty"`
	FailedStep   string      `json:"failed_step,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}
