package rawvideo

import (
	"context"
	"errors"

	apperrors "github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/common"
	"github.com/jackc/pgx/v5"
)

// rawVideoRepository implements Repository using PostgreSQL
type rawVideoRepository struct {
	pool common.Pool
}

// NewRepository creates a new raw video repository
func NewRepository(pool common.Pool) Repository {
	return &rawVideoRepository{pool: pool}
}

const upsertBatchSQL = `
	INSERT INTO raw_videos (video_id, raw_metadata)
	SELECT t.video_id, t.raw_metadata::jsonb
	FROM unnest($1::text[], $2::text[]) AS t(video_id, raw_metadata)
	ON CONFLICT (video_id) DO UPDATE
	SET raw_metadata = EXCLUDED.raw_metadata,
	    updated_at = NOW()`

// UpsertBatch writes all videos in a single statement. created_at survives updates.
func (r *rawVideoRepository) UpsertBatch(ctx context.Context, videos []*model.RawVideo) (int64, error) {
	if len(videos) == 0 {
		return 0, nil
	}

	ids, payloads := dedupeLastWins(videos)

	tag, err := r.pool.Exec(ctx, upsertBatchSQL, ids, payloads)
	if err != nil {
		return 0, common.HandlePostgreSQLError(err, "failed to upsert raw videos")
	}
	return tag.RowsAffected(), nil
}

// GetByVideoID retrieves a raw video by its external ID
func (r *rawVideoRepository) GetByVideoID(ctx context.Context, videoID string) (*model.RawVideo, error) {
	sql := "SELECT id, video_id, raw_metadata, created_at, updated_at FROM raw_videos WHERE video_id = $1"

	var raw model.RawVideo
	var metadata []byte
	err := r.pool.QueryRow(ctx, sql, videoID).Scan(&raw.ID, &raw.VideoID, &metadata, &raw.CreatedAt, &raw.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "raw video not found")
		}
		return nil, common.HandlePostgreSQLError(err, "failed to get raw video")
	}
	raw.RawMetadata = metadata

	return &raw, nil
}

// dedupeLastWins collapses repeated video IDs; ON CONFLICT cannot touch the same row twice in one statement
func dedupeLastWins(videos []*model.RawVideo) ([]string, []string) {
	index := make(map[string]int, len(videos))
	ids := make([]string, 0, len(videos))
	payloads := make([]string, 0, len(videos))

	for _, v := range videos {
		if i, ok := index[v.VideoID]; ok {
			payloads[i] = string(v.RawMetadata)
			continue
		}
		index[v.VideoID] = len(ids)
		ids = append(ids, v.VideoID)
		payloads = append(payloads, string(v.RawMetadata))
	}
	return ids, payloads
}
