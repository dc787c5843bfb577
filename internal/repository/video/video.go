package video

import (
	"context"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
)

// Repository defines operations for normalized video and keyword link persistence
type Repository interface {
	// Upsert creates or refreshes a video keyed by video_id and returns its row ID
	Upsert(ctx context.Context, video *model.Video) (int64, error)

	// SaveWithKeywords upserts the video and replaces its keyword links in one transaction
	SaveWithKeywords(ctx context.Context, video *model.Video, keywords []string) (int64, error)

	// GetByVideoID retrieves a video by its external ID
	GetByVideoID(ctx context.Context, videoID string) (*model.Video, error)

	// GetKeywords returns the keyword texts linked to a video, sorted
	GetKeywords(ctx context.Context, videoRowID int64) ([]string, error)
}
