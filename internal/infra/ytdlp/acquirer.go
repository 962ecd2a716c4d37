package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/odysseus-analytics/ingest-service/internal/domain/port"
	"github.com/odysseus-analytics/ingest-service/internal/infra/ffmpeg"
)

// ObjectStore fetches s3:// source references; nil disables them.
type ObjectStore interface {
	FetchObject(ctx context.Context, bucket, key, destPath string) error
}

// Acquirer downloads http(s) sources with yt-dlp and s3 sources from
// object storage. Downloads always overwrite any prior partial file, and
// the result is ffprobe-validated before it is reported as acquired.
type Acquirer struct {
	rawDir string
	store  ObjectStore
	logger *zap.Logger
}

func NewAcquirer(rawDir string, store ObjectStore, logger *zap.Logger) *Acquirer {
	return &Acquirer{rawDir: rawDir, store: store, logger: logger}
}

func (a *Acquirer) Acquire(ctx context.Context, sourceURL string) (string, string, error) {
	if err := os.MkdirAll(a.rawDir, 0o755); err != nil {
		return "", "", &port.AcquisitionError{SourceURL: sourceURL, Kind: port.AcquireStorage, Err: err}
	}

	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return "", "", &port.AcquisitionError{
			SourceURL: sourceURL,
			Kind:      port.AcquireUnavailable,
			Err:       fmt.Errorf("parse source url: %w", err),
		}
	}

	var localPath string
	switch parsed.Scheme {
	case "s3":
		localPath, err = a.acquireFromObjectStore(ctx, sourceURL, parsed)
	case "http", "https":
		localPath, err = a.acquireWithYtdlp(ctx, sourceURL)
	default:
		err = &port.AcquisitionError{
			SourceURL: sourceURL,
			Kind:      port.AcquireUnavailable,
			Err:       fmt.Errorf("unsupported scheme %q", parsed.Scheme),
		}
	}
	if err != nil {
		return "", "", err
	}

	// A download that finished but cannot be decoded is a truncated or
	// corrupt artifact, not a success.
	if _, err := ffmpeg.ProbeDuration(ctx, localPath); err != nil {
		_ = os.Remove(localPath)
		return "", "", &port.AcquisitionError{
			SourceURL: sourceURL,
			Kind:      port.AcquireNetwork,
			Err:       fmt.Errorf("downloaded artifact not decodable: %w", err),
		}
	}

	title := ffmpeg.VideoBase(localPath)
	a.logger.Info("source acquired",
		zap.String("source_url", sourceURL),
		zap.String("local_path", localPath),
	)
	return localPath, title, nil
}

func (a *Acquirer) acquireFromObjectStore(ctx context.Context, sourceURL string, parsed *url.URL) (string, error) {
	if a.store == nil {
		return "", &port.AcquisitionError{
			SourceURL: sourceURL,
			Kind:      port.AcquireUnavailable,
			Err:       fmt.Errorf("object storage not configured"),
		}
	}
	bucket := parsed.Host
	key := strings.TrimPrefix(parsed.Path, "/")
	destPath := filepath.Join(a.rawDir, filepath.Base(key))
	if err := a.store.FetchObject(ctx, bucket, key, destPath); err != nil {
		return "", &port.AcquisitionError{SourceURL: sourceURL, Kind: port.AcquireNetwork, Err: err}
	}
	return destPath, nil
}

func (a *Acquirer) acquireWithYtdlp(ctx context.Context, sourceURL string) (string, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-f", "best[ext=mp4]",
		"--force-overwrites",
		"--no-progress",
		"--print", "after_move:filepath",
		"-o", filepath.Join(a.rawDir, "%(id)s.%(ext)s"),
		sourceURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &port.AcquisitionError{
			SourceURL: sourceURL,
			Kind:      classifyFailure(stderr.String()),
			Err:       fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	// --print after_move:filepath emits the final path as the last line.
	var destPath string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			destPath = line
		}
	}
	if destPath == "" {
		return "", &port.AcquisitionError{
			SourceURL: sourceURL,
			Kind:      port.AcquireNetwork,
			Err:       fmt.Errorf("yt-dlp reported no destination path"),
		}
	}
	return destPath, nil
}

// Classification regexes for yt-dlp stderr, checked in order; the first
// match wins.
var (
	reStorageFailure = regexp.MustCompile(
		`(?i)No space left on device|Permission denied|Read-only file system|` +
			`unable to open for writing`)

	reSourceUnavailable = regexp.MustCompile(
		`(?i)Video unavailable|Private video|has been removed|` +
			`HTTP Error 4\d\d|Unsupported URL|not available in your country`)

	reNetworkFailure = regexp.MustCompile(
		`(?i)unable to download|Connection (refused|reset|timed out)|` +
			`Temporary failure in name resolution|getaddrinfo|` +
			`network is unreachable|Read timed out|HTTP Error 5\d\d`)
)

func classifyFailure(stderr string) port.AcquireFailure {
	switch {
	case reStorageFailure.MatchString(stderr):
		return port.AcquireStorage
	case reSourceUnavailable.MatchString(stderr):
		return port.AcquireUnavailable
	case reNetworkFailure.MatchString(stderr):
		return port.AcquireNetwork
	default:
		return port.AcquireNetwork
	}
}
