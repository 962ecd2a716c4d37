package port

import (
	"errors"
	"fmt"
)

// ErrDuplicateSource is returned by Catalog.InsertVideo when the source URL
// is already catalogued. It doubles as the atomic claim signal between
// concurrent workers: whoever loses the insert race skips the video.
var ErrDuplicateSource = errors.New("source url already catalogued")

// AcquireFailure classifies why an acquisition failed. Network failures are
// worth re-running later; a missing source usually is not.
type AcquireFailure string

const (
	AcquireNetwork     AcquireFailure = "network"
	AcquireUnavailable AcquireFailure = "source_unavailable"
	AcquireStorage     AcquireFailure = "local_storage"
)

// AcquisitionError wraps a failed fetch of a source reference.
type AcquisitionError struct {
	SourceURL string
	Kind      AcquireFailure
	Err       error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquire %s: %s: %v", e.SourceURL, e.Kind, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// DecodeError means the local video could not be opened or decoded. Fatal
// for that video; retrying without a new source file cannot help.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// MaterializationError wraps an external transcoder failure while producing
// clip or frame files. Partial output left behind must not be catalogued.
type MaterializationError struct {
	Op     string // "split_clips" or "extract_frames"
	Path   string
	Output string // combined tool output, for diagnostics
	Err    error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("%s %s: %v: %s", e.Op, e.Path, e.Err, e.Output)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

// CatalogError wraps a durable-store failure. If the store stays down no
// progress can be recorded, so the caller treats this as fatal for the run.
type CatalogError struct {
	Op  string
	Err error
}

func (e *CatalogError) Error() string { return fmt.Sprintf("catalog %s: %v", e.Op, e.Err) }
func (e *CatalogError) Unwrap() error { return e.Err }
