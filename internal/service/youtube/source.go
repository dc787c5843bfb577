package youtube

import (
	"context"
	"time"

	"google.golang.org/api/youtube/v3"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
)

// SearchQuery describes one page request against the search endpoint
type SearchQuery struct {
	Query           string
	PublishedAfter  time.Time // inclusive
	PublishedBefore time.Time // exclusive
	PageToken       string
}

// IDPage is one page of video ids plus the cursor for the next page
type IDPage struct {
	VideoIDs      []string
	NextPageToken string
}

// Source is the subset of the video platform the pipelines depend on
type Source interface {
	// SearchVideoIDs returns one page of short video ids matching the query
	SearchVideoIDs(ctx context.Context, q SearchQuery) (*IDPage, error)
	// GetVideos returns full detail records for at most 50 ids
	GetVideos(ctx context.Context, ids []string) ([]*youtube.Video, error)
	// ListPlaylistVideoIDs returns one page of playlist member video ids
	ListPlaylistVideoIDs(ctx context.Context, playlistID, pageToken string) (*IDPage, error)
	// GetChannelByHandle returns nil without error when no channel owns the handle
	GetChannelByHandle(ctx context.Context, handle string) (*model.ChannelDetails, error)
}
