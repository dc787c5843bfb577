package channel

import (
	"context"
	"time"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
)

// Repository defines operations for Channel and ChannelKeyword persistence
type Repository interface {
	// ExistsByHandle reports whether a channel with this handle has been recorded
	ExistsByHandle(ctx context.Context, handle string) (bool, error)

	// Create inserts a channel and fills its ID and timestamps
	Create(ctx context.Context, channel *model.Channel) error

	// GetByHandle retrieves a channel by its handle
	GetByHandle(ctx context.Context, handle string) (*model.Channel, error)

	// Delete deletes a channel and its keywords
	Delete(ctx context.Context, id int64) error

	// List retrieves channels with pagination, newest first
	List(ctx context.Context, limit, offset int) ([]*model.Channel, error)

	// Count returns the total number of channels
	Count(ctx context.Context) (int64, error)

	// CompleteAnalysis stores all keyword scores and flips completion in a single transaction
	CompleteAnalysis(ctx context.Context, channelID int64, keywords []model.ChannelKeyword) error

	// GetKeywordsByHandle returns a channel's keywords by descending view count
	GetKeywordsByHandle(ctx context.Context, handle string, limit int) ([]*model.ChannelKeyword, error)

	// DeleteIncompleteBefore removes channels still incomplete that were created before cutoff
	DeleteIncompleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
