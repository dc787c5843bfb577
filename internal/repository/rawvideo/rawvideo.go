package rawvideo

import (
	"context"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
)

// Repository defines persistence for untouched video detail payloads
type Repository interface {
	// UpsertBatch inserts or replaces the metadata of every video, keyed by video_id
	UpsertBatch(ctx context.Context, videos []*model.RawVideo) (int64, error)

	// GetByVideoID retrieves a raw video by its external ID
	GetByVideoID(ctx context.Context, videoID string) (*model.RawVideo, error)
}
