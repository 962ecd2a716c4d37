package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
	"github.com/odysseus-analytics/ingest-service/internal/domain/port"
)

const uniqueViolation = "23505"

// Catalog is the pgx-backed implementation of port.Catalog over the
// videos / video_clips / keyframes relations.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) FindVideoBySource(ctx context.Context, sourceURL string) (*entity.Video, error) {
	query := `
		SELECT video_id, source_url, title, local_path, download_date, processed_status
		FROM videos WHERE source_url = $1`

	video := &entity.Video{}
	var status string
	err := c.pool.QueryRow(ctx, query, sourceURL).Scan(
		&video.ID, &video.SourceURL, &video.Title,
		&video.LocalPath, &video.DownloadDate, &status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &port.CatalogError{Op: "find_video", Err: err}
	}
	video.Status = entity.VideoStatus(status)
	return video, nil
}

// InsertVideo leans on the unique constraint on source_url instead of a
// check-then-insert; a constraint violation surfaces as ErrDuplicateSource.
func (c *Catalog) InsertVideo(ctx context.Context, video *entity.Video) (int64, error) {
	query := `
		INSERT INTO videos (source_url, title, local_path, download_date, processed_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING video_id`

	var id int64
	err := c.pool.QueryRow(ctx, query,
		video.SourceURL, video.Title, video.LocalPath,
		video.DownloadDate, string(video.Status),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, fmt.Errorf("insert video %s: %w", video.SourceURL, port.ErrDuplicateSource)
		}
		return 0, &port.CatalogError{Op: "insert_video", Err: err}
	}
	video.ID = id
	return id, nil
}

func (c *Catalog) SetStatus(ctx context.Context, videoID int64, status entity.VideoStatus) error {
	tag, err := c.pool.Exec(ctx,
		`UPDATE videos SET processed_status = $2 WHERE video_id = $1`,
		videoID, string(status),
	)
	if err != nil {
		return &port.CatalogError{Op: "set_status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &port.CatalogError{Op: "set_status", Err: fmt.Errorf("video %d not found", videoID)}
	}
	return nil
}

// ReplaceClips purges and re-inserts the video's clip rows in a single
// transaction, so a re-run never duplicates rows and an interrupted batch
// leaves either all rows or none.
func (c *Catalog) ReplaceClips(ctx context.Context, videoID int64, clips []entity.Clip) error {
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM video_clips WHERE parent_video_id = $1`, videoID); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, clip := range clips {
			batch.Queue(
				`INSERT INTO video_clips (parent_video_id, local_path, start_time_sec, end_time_sec)
				 VALUES ($1, $2, $3, $4)`,
				videoID, clip.LocalPath, clip.StartTimeSec, clip.EndTimeSec,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return &port.CatalogError{Op: "replace_clips", Err: err}
	}
	return nil
}

// ReplaceKeyframes mirrors ReplaceClips for the keyframes relation.
func (c *Catalog) ReplaceKeyframes(ctx context.Context, videoID int64, frames []entity.Keyframe) error {
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM keyframes WHERE parent_video_id = $1`, videoID); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, frame := range frames {
			batch.Queue(
				`INSERT INTO keyframes (parent_video_id, local_path, timestamp_sec)
				 VALUES ($1, $2, $3)`,
				videoID, frame.LocalPath, frame.TimestampSec,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return &port.CatalogError{Op: "replace_keyframes", Err: err}
	}
	return nil
}

func (c *Catalog) CountArtifacts(ctx context.Context, videoID int64) (int64, int64, error) {
	var clips, frames int64
	err := c.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM video_clips WHERE parent_video_id = $1),
			(SELECT count(*) FROM keyframes WHERE parent_video_id = $1)`,
		videoID,
	).Scan(&clips, &frames)
	if err != nil {
		return 0, 0, &port.CatalogError{Op: "count_artifacts", Err: err}
	}
	return clips, frames, nil
}
