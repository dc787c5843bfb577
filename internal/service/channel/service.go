package channel

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/metrics"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/channel"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/video"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/common"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/youtube"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/worker"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Extractor returns keywords per video id for one batch of videos
type Extractor interface {
	Extract(ctx context.Context, videos []*model.Video) (map[string][]string, error)
}

// Submitter queues detached jobs
type Submitter interface {
	Submit(job worker.Job) (uuid.UUID, error)
}

// Ack acknowledges an accepted analysis request
type Ack struct {
	JobID         uuid.UUID `json:"jobId"`
	ChannelHandle string    `json:"channelHandle"`
	AcceptedAt    time.Time `json:"acceptedAt"`
	Message       string    `json:"message"`
}

// Service runs on-demand channel keyword analysis
type Service struct {
	repo      channel.Repository
	source    youtube.Source
	extractor Extractor
	jobs      Submitter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time

	staleAfter      time.Duration
	keywordLimit    int
	analysisTimeout time.Duration
	batchSize       int
	concurrency     int
}

// NewService creates a channel analysis service; m may be nil
func NewService(
	repo channel.Repository,
	source youtube.Source,
	extractor Extractor,
	jobs Submitter,
	cfg config.ChannelConfig,
	pipeline config.PipelineConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = time.Hour
	}
	keywordLimit := cfg.KeywordLimit
	if keywordLimit <= 0 {
		keywordLimit = 100
	}

	return &Service{
		repo:            repo,
		source:          source,
		extractor:       extractor,
		jobs:            jobs,
		metrics:         m,
		logger:          logger.With("component", "channel_analysis"),
		now:             time.Now,
		staleAfter:      staleAfter,
		keywordLimit:    keywordLimit,
		analysisTimeout: cfg.AnalysisTimeout,
		batchSize:       pipeline.BatchSize,
		concurrency:     max(pipeline.Concurrency, 1),
	}
}

// NormalizeHandle trims the handle and prefixes "@" when missing
func NormalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" || strings.HasPrefix(handle, "@") {
		return handle
	}
	return "@" + handle
}

// RequestAnalysis validates the handle, records the channel and queues its analysis.
// It returns before the analysis runs.
func (s *Service) RequestAnalysis(ctx context.Context, handle string) (*Ack, error) {
	handle = NormalizeHandle(handle)
	if handle == "" || handle == "@" {
		return nil, errors.New(errors.CodeInvalidArg, "channel handle is required")
	}

	exists, err := s.repo.ExistsByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.ErrChannelDuplicated(handle)
	}

	details, err := s.source.GetChannelByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if details == nil || details.UploadsPlaylistID == "" {
		return nil, errors.ErrChannelNotFound(handle)
	}
	if details.Handle == "" {
		details.Handle = handle
	}

	row := details.ToChannel()
	row.Handle = handle
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}

	rowID := row.ID
	snapshot := *details
	jobID, err := s.jobs.Submit(worker.Job{
		Name: "analyze_channel " + handle,
		Run: func(jobCtx context.Context) error {
			err := s.AnalyzeChannel(jobCtx, rowID, snapshot)
			s.metrics.CountChannelAnalysis(err)
			return err
		},
	})
	if err != nil {
		if delErr := s.repo.Delete(context.WithoutCancel(ctx), rowID); delErr != nil {
			s.logger.Error("failed to release channel after rejected job", "handle", handle, "error", delErr)
		}
		if stderrors.Is(err, worker.ErrQueueFull) || stderrors.Is(err, worker.ErrPoolStopped) {
			return nil, errors.Wrap(err, errors.CodeUnavailable, "channel analysis queue is unavailable, try again later")
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to queue channel analysis")
	}

	s.logger.Info("channel analysis accepted", "handle", handle, "channel_id", details.ChannelID, "job_id", jobID)
	return &Ack{
		JobID:         jobID,
		ChannelHandle: handle,
		AcceptedAt:    s.now(),
		Message:       "channel analysis request accepted; it may take a few minutes",
	}, nil
}

// AnalyzeChannel scores every keyword of the channel's uploads by summed view count.
// Keywords and the completion flag are stored together at the end; any failure
// leaves the channel incomplete with no keywords.
func (s *Service) AnalyzeChannel(ctx context.Context, channelRowID int64, details model.ChannelDetails) error {
	if s.analysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.analysisTimeout)
		defer cancel()
	}
	logger := s.logger.With("handle", details.Handle, "channel_row_id", channelRowID)

	if details.UploadsPlaylistID == "" {
		return errors.ErrChannelNotFound(details.Handle)
	}

	ids, err := s.playlistVideoIDs(ctx, details.UploadsPlaylistID)
	if err != nil {
		return fmt.Errorf("enumerate uploads: %w", err)
	}
	logger.Info("uploads enumerated", "videos", len(ids))

	videos, err := s.fetchVideos(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch details: %w", err)
	}

	scores := make(map[string]int64)
	for i, batch := range common.Chunk(videos, s.batchSize) {
		keywords, err := s.extractor.Extract(ctx, batch)
		if err != nil {
			return fmt.Errorf("extract batch %d: %w", i, err)
		}
		AccumulateScores(scores, batch, keywords)
		logger.Debug("batch analyzed", "batch", i, "videos", len(batch), "keywords", len(scores))
	}

	rows := make([]model.ChannelKeyword, 0, len(scores))
	for text, views := range scores {
		rows = append(rows, model.ChannelKeyword{ChannelID: channelRowID, KeywordText: text, ViewCount: views})
	}

	if err := s.repo.CompleteAnalysis(ctx, channelRowID, rows); err != nil {
		return fmt.Errorf("store keywords: %w", err)
	}

	logger.Info("channel analysis completed", "videos", len(videos), "keywords", len(rows))
	return nil
}

// AccumulateScores adds each video's view count once to every distinct keyword extracted for it
func AccumulateScores(scores map[string]int64, videos []*model.Video, keywords map[string][]string) {
	for _, v := range videos {
		for _, k := range video.NormalizeKeywords(keywords[v.VideoID]) {
			scores[k] += v.ViewCount
		}
	}
}

func (s *Service) playlistVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	token := ""
	for {
		page, err := s.source.ListPlaylistVideoIDs(ctx, playlistID, token)
		if err != nil {
			return nil, err
		}
		ids = append(ids, page.VideoIDs...)
		if page.NextPageToken == "" || page.NextPageToken == token {
			break
		}
		token = page.NextPageToken
	}
	return common.Dedupe(ids), nil
}

func (s *Service) fetchVideos(ctx context.Context, ids []string) ([]*model.Video, error) {
	batches := common.Chunk(ids, s.batchSize)
	results := make([][]*ytapi.Video, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			items, err := s.source.GetVideos(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var videos []*model.Video
	for _, items := range results {
		for _, item := range items {
			videos = append(videos, youtube.ToVideo(item))
		}
	}
	return videos, nil
}

// ListChannels returns a zero-based page of channels, newest first
func (s *Service) ListChannels(ctx context.Context, page, size int) (model.Page[*model.Channel], error) {
	if page < 0 {
		return model.Page[*model.Channel]{}, errors.New(errors.CodeInvalidArg, "page must not be negative")
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		return model.Page[*model.Channel]{}, errors.New(errors.CodeInvalidArg, fmt.Sprintf("size must be at most %d", maxPageSize))
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return model.Page[*model.Channel]{}, err
	}
	channels, err := s.repo.List(ctx, size, page*size)
	if err != nil {
		return model.Page[*model.Channel]{}, err
	}
	return model.NewPage(channels, page, size, total), nil
}

// GetChannelKeywords returns the channel's top keywords by view count
func (s *Service) GetChannelKeywords(ctx context.Context, handle string) ([]*model.ChannelKeyword, error) {
	handle = NormalizeHandle(handle)
	if handle == "" || handle == "@" {
		return nil, errors.New(errors.CodeInvalidArg, "channel handle is required")
	}
	return s.repo.GetKeywordsByHandle(ctx, handle, s.keywordLimit)
}

// CleanupStale deletes incomplete channels created more than the stale TTL before now
func (s *Service) CleanupStale(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.staleAfter)
	deleted, err := s.repo.DeleteIncompleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.metrics.AddChannelsCleaned(deleted)
	if deleted > 0 {
		s.logger.Info("stale channels removed", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}
