package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/common"
)

var videoParts = []string{"snippet", "contentDetails", "statistics", "player", "topicDetails"}

// Client implements Source on top of the YouTube Data API v3
type Client struct {
	service           *youtube.Service
	limiter           *rate.Limiter
	timeout           time.Duration
	regionCode        string
	relevanceLanguage string
	logger            *slog.Logger
}

// NewClient creates a rate-limited YouTube Data API client authenticated with apiKey
func NewClient(ctx context.Context, cfg config.YouTubeConfig, apiKey string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New(errors.CodeInvalidArg, "youtube API key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create youtube service")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		service:           service,
		limiter:           rate.NewLimiter(limit, burst),
		timeout:           timeout,
		regionCode:        cfg.RegionCode,
		relevanceLanguage: cfg.RelevanceLanguage,
		logger:            logger.With("component", "youtube"),
	}, nil
}

// callContext waits for a rate limiter slot and bounds the call with the client timeout
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeExternal, "youtube rate limiter wait aborted")
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	return callCtx, cancel, nil
}

// SearchVideoIDs calls search.list for short videos published inside the query window
func (c *Client) SearchVideoIDs(ctx context.Context, q SearchQuery) (*IDPage, error) {
	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	call := c.service.Search.List([]string{"id"}).
		Q(q.Query).
		Type("video").
		VideoDuration("short").
		PublishedAfter(q.PublishedAfter.UTC().Format(time.RFC3339)).
		PublishedBefore(q.PublishedBefore.UTC().Format(time.RFC3339)).
		MaxResults(common.MaxBatchSize)
	if c.regionCode != "" {
		call = call.RegionCode(c.regionCode)
	}
	if c.relevanceLanguage != "" {
		call = call.RelevanceLanguage(c.relevanceLanguage)
	}
	if q.PageToken != "" {
		call = call.PageToken(q.PageToken)
	}

	resp, err := call.Context(callCtx).Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, "youtube search failed")
	}

	page := &IDPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		page.VideoIDs = append(page.VideoIDs, item.Id.VideoId)
	}

	c.logger.Debug("search page fetched", "results", len(page.VideoIDs), "has_next", page.NextPageToken != "")
	return page, nil
}

// GetVideos calls videos.list for up to 50 ids
func (c *Client) GetVideos(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > common.MaxBatchSize {
		return nil, errors.New(errors.CodeInvalidArg, fmt.Sprintf("at most %d video ids per call, got %d", common.MaxBatchSize, len(ids)))
	}

	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	resp, err := c.service.Videos.List(videoParts).
		Id(ids...).
		MaxResults(int64(len(ids))).
		Context(callCtx).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, "youtube video details failed")
	}

	return resp.Items, nil
}

// ListPlaylistVideoIDs calls playlistItems.list for one page of a playlist
func (c *Client) ListPlaylistVideoIDs(ctx context.Context, playlistID, pageToken string) (*IDPage, error) {
	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	call := c.service.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(common.MaxBatchSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(callCtx).Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, "youtube playlist items failed")
	}

	page := &IDPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
			continue
		}
		page.VideoIDs = append(page.VideoIDs, item.ContentDetails.VideoId)
	}
	return page, nil
}

// GetChannelByHandle calls channels.list with forHandle
func (c *Client) GetChannelByHandle(ctx context.Context, handle string) (*model.ChannelDetails, error) {
	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	resp, err := c.service.Channels.List([]string{"snippet", "contentDetails", "statistics"}).
		ForHandle(handle).
		Context(callCtx).
		Do()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, "youtube channel lookup failed")
	}

	if len(resp.Items) == 0 {
		return nil, nil
	}
	return ToChannelDetails(resp.Items[0], handle), nil
}
