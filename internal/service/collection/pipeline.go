package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/metrics"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/rawvideo"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/video"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/common"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/youtube"
)

// Extractor returns keywords per video id for one batch of videos
type Extractor interface {
	Extract(ctx context.Context, videos []*model.Video) (map[string][]string, error)
}

// RankingComputer stores the daily ranking snapshot
type RankingComputer interface {
	ComputeDailyRankings(ctx context.Context, asOf time.Time) (int64, error)
}

// RawArchiver copies raw payloads to long-term storage
type RawArchiver interface {
	StoreRawBatch(ctx context.Context, runID uuid.UUID, at time.Time, videos []*model.RawVideo) (string, error)
}

// RunSummary describes the outcome of one collection run
type RunSummary struct {
	RunID      uuid.UUID     `json:"run_id"`
	Candidates int           `json:"candidates"`
	Detailed   int           `json:"detailed"`
	Filtered   int           `json:"filtered"`
	Persisted  int           `json:"persisted"`
	Failed     int           `json:"failed"`
	Rankings   int64         `json:"rankings"`
	ArchiveKey string        `json:"archive_key,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Pipeline is the daily bulk collection job: discover, fetch, filter, persist, extract, rank
type Pipeline struct {
	source    youtube.Source
	extractor Extractor
	rawRepo   rawvideo.Repository
	videoRepo video.Repository
	ranker    RankingComputer
	archiver  RawArchiver
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time

	query          string
	discoveryDays  int
	maxPagesPerDay int
	batchSize      int
	concurrency    int
	runTimeout     time.Duration
	filter         youtube.Filter
}

// Dependencies groups the collaborators of a Pipeline; Archiver and Metrics may be nil
type Dependencies struct {
	Source    youtube.Source
	Extractor Extractor
	RawRepo   rawvideo.Repository
	VideoRepo video.Repository
	Ranker    RankingComputer
	Archiver  RawArchiver
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// NewPipeline creates a Pipeline from the pipeline configuration section
func NewPipeline(deps Dependencies, cfg config.PipelineConfig) (*Pipeline, error) {
	script, err := cfg.ScriptTable()
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		source:         deps.Source,
		extractor:      deps.Extractor,
		rawRepo:        deps.RawRepo,
		videoRepo:      deps.VideoRepo,
		ranker:         deps.Ranker,
		archiver:       deps.Archiver,
		metrics:        deps.Metrics,
		logger:         logger.With("component", "collection"),
		now:            time.Now,
		query:          cfg.HashtagQuery,
		discoveryDays:  max(cfg.DiscoveryDays, 1),
		maxPagesPerDay: max(cfg.MaxPagesPerDay, 1),
		batchSize:      cfg.BatchSize,
		concurrency:    max(cfg.Concurrency, 1),
		runTimeout:     cfg.RunTimeout,
		filter: youtube.Filter{
			MinSeconds: cfg.MinDurationSeconds,
			MaxSeconds: cfg.MaxDurationSeconds,
			Script:     script,
		},
	}, nil
}

// Run executes one collection. Failures in any stage abort the run except
// single-video persistence failures, which are logged and counted.
func (p *Pipeline) Run(ctx context.Context) (summary *RunSummary, err error) {
	started := p.now()
	summary = &RunSummary{RunID: uuid.New()}
	logger := p.logger.With("run_id", summary.RunID)

	if p.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.runTimeout)
		defer cancel()
	}

	defer func() {
		summary.Duration = p.now().Sub(started)
		p.metrics.CountRun(err)
		if err != nil {
			logger.Error("collection run aborted", "error", err, "duration", summary.Duration)
		}
	}()

	logger.Info("collection run started", "days", p.discoveryDays, "query", p.query)

	stageStart := time.Now()
	ids, err := p.discover(ctx, started, logger)
	if err != nil {
		return summary, fmt.Errorf("discovery: %w", err)
	}
	summary.Candidates = len(ids)
	p.metrics.ObserveStage("discovery", stageStart)

	stageStart = time.Now()
	details, err := p.fetchDetails(ctx, ids)
	if err != nil {
		return summary, fmt.Errorf("detail fetch: %w", err)
	}
	summary.Detailed = len(details)
	p.metrics.ObserveStage("details", stageStart)

	kept := p.applyFilter(details)
	summary.Filtered = len(kept)
	p.metrics.AddVideos("filtered_out", len(details)-len(kept))
	logger.Info("candidates filtered", "candidates", len(ids), "detailed", len(details), "kept", len(kept))

	stageStart = time.Now()
	archiveKey, err := p.persistRaw(ctx, summary.RunID, started, kept, logger)
	if err != nil {
		return summary, fmt.Errorf("persist raw: %w", err)
	}
	summary.ArchiveKey = archiveKey
	p.metrics.ObserveStage("persist_raw", stageStart)

	stageStart = time.Now()
	persisted, failed, err := p.extractAndPersist(ctx, kept, logger)
	summary.Persisted, summary.Failed = persisted, failed
	if err != nil {
		return summary, fmt.Errorf("extract and persist: %w", err)
	}
	p.metrics.ObserveStage("extract_persist", stageStart)

	stageStart = time.Now()
	rankings, err := p.ranker.ComputeDailyRankings(ctx, started)
	if err != nil {
		return summary, fmt.Errorf("ranking: %w", err)
	}
	summary.Rankings = rankings
	p.metrics.ObserveStage("ranking", stageStart)

	logger.Info("collection run finished",
		"candidates", summary.Candidates,
		"filtered", summary.Filtered,
		"persisted", summary.Persisted,
		"failed", summary.Failed,
		"rankings", summary.Rankings,
		"duration", p.now().Sub(started),
	)
	return summary, nil
}

// discover walks back one day at a time and collects candidate ids in first-seen order
func (p *Pipeline) discover(ctx context.Context, now time.Time, logger *slog.Logger) ([]string, error) {
	var ids []string
	for d := 0; d < p.discoveryDays; d++ {
		until := now.Add(-time.Duration(d) * 24 * time.Hour)
		since := until.Add(-24 * time.Hour)

		token := ""
		pages := 0
		for pages < p.maxPagesPerDay {
			page, err := p.source.SearchVideoIDs(ctx, youtube.SearchQuery{
				Query:           p.query,
				PublishedAfter:  since,
				PublishedBefore: until,
				PageToken:       token,
			})
			if err != nil {
				return nil, err
			}
			pages++
			ids = append(ids, page.VideoIDs...)

			if page.NextPageToken == "" {
				break
			}
			token = page.NextPageToken
		}
		logger.Debug("day discovered", "day", d, "pages", pages, "total", len(ids))
	}
	return common.Dedupe(ids), nil
}

// fetchDetails requests details in batches with bounded concurrency, keeping batch order
func (p *Pipeline) fetchDetails(ctx context.Context, ids []string) ([]*ytapi.Video, error) {
	batches := common.Chunk(ids, p.batchSize)
	results := make([][]*ytapi.Video, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			videos, err := p.source.GetVideos(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = videos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var details []*ytapi.Video
	for _, r := range results {
		details = append(details, r...)
	}
	return details, nil
}

func (p *Pipeline) applyFilter(details []*ytapi.Video) []*ytapi.Video {
	kept := make([]*ytapi.Video, 0, len(details))
	for _, item := range details {
		if item == nil || item.ContentDetails == nil || item.Snippet == nil {
			continue
		}
		if p.filter.Keep(youtube.DecodeDuration(item.ContentDetails.Duration), item.Snippet.Title) {
			kept = append(kept, item)
		}
	}
	return kept
}

// persistRaw upserts raw payloads; archiving afterwards is best effort
func (p *Pipeline) persistRaw(ctx context.Context, runID uuid.UUID, at time.Time, kept []*ytapi.Video, logger *slog.Logger) (string, error) {
	if len(kept) == 0 {
		return "", nil
	}

	raws := make([]*model.RawVideo, 0, len(kept))
	for _, item := range kept {
		raw, err := youtube.ToRawVideo(item)
		if err != nil {
			return "", err
		}
		raws = append(raws, raw)
	}

	if _, err := p.rawRepo.UpsertBatch(ctx, raws); err != nil {
		return "", err
	}

	if p.archiver == nil {
		return "", nil
	}
	key, err := p.archiver.StoreRawBatch(ctx, runID, at, raws)
	if err != nil {
		logger.Warn("raw archive upload failed", "error", err)
		return "", nil
	}
	return key, nil
}

// extractAndPersist runs one extraction per batch and saves every video of the batch.
// Extraction errors abort; per-video save errors are counted and skipped.
func (p *Pipeline) extractAndPersist(ctx context.Context, kept []*ytapi.Video, logger *slog.Logger) (int, int, error) {
	videos := make([]*model.Video, 0, len(kept))
	for _, item := range kept {
		videos = append(videos, youtube.ToVideo(item))
	}

	var persisted, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, batch := range common.Chunk(videos, p.batchSize) {
		g.Go(func() error {
			keywords, err := p.extractor.Extract(gctx, batch)
			p.metrics.CountExtraction(err)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}

			for _, v := range batch {
				if _, err := p.videoRepo.SaveWithKeywords(gctx, v, keywords[v.VideoID]); err != nil {
					failed.Add(1)
					logger.Warn("failed to persist video, skipping", "video_id", v.VideoID, "error", err)
					continue
				}
				persisted.Add(1)
			}
			logger.Debug("batch persisted", "batch", i, "videos", len(batch), "with_keywords", len(keywords))
			return nil
		})
	}
	err := g.Wait()

	p.metrics.AddVideos("persisted", int(persisted.Load()))
	p.metrics.AddVideos("failed", int(failed.Load()))
	return int(persisted.Load()), int(failed.Load()), err
}
