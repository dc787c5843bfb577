package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/cache"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/metrics"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/channel"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/ranking"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/rawvideo"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/video"
	channelsvc "github.com/Taichi-iskw/yt-shorts-trend/internal/service/channel"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/collection"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/keyword"
	rankingsvc "github.com/Taichi-iskw/yt-shorts-trend/internal/service/ranking"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/youtube"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/storage"
)

// app holds the shared infrastructure every command builds on
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
	cache   *cache.RankingCache
	engine  *rankingsvc.Engine

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	dbPool, err := config.NewDatabasePool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	m := metrics.New()
	m.RegisterPool(dbPool)

	a := &app{cfg: cfg, logger: logger, pool: dbPool, metrics: m}
	a.closers = append(a.closers, func() { config.CloseDatabasePool(dbPool) })

	a.cache = cache.NewRankingCache(ctx, cfg.Redis.URL, cfg.Redis.TTL, logger)
	a.closers = append(a.closers, func() { _ = a.cache.Close() })

	a.engine, err = rankingsvc.NewEngine(ranking.NewRepository(dbPool), a.cache, cfg.Ranking, m, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases resources in reverse order of creation
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) newExtractor(ctx context.Context) (*keyword.Extractor, error) {
	gen, err := keyword.NewGenerator(ctx, a.cfg.Extractor, a.cfg.YouTube.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword generator: %w", err)
	}
	a.closers = append(a.closers, func() { _ = gen.Close() })
	return keyword.NewExtractor(gen, a.cfg.Extractor, a.cfg.Pipeline.ExternalTimeout, a.logger), nil
}

// collectionPipeline wires the daily pipeline using the batch API key
func (a *app) collectionPipeline(ctx context.Context) (*collection.Pipeline, error) {
	if err := a.cfg.ValidateCollection(); err != nil {
		return nil, err
	}

	source, err := youtube.NewClient(ctx, a.cfg.YouTube, a.cfg.YouTube.CollectionKey(), a.cfg.Pipeline.ExternalTimeout, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}
	extractor, err := a.newExtractor(ctx)
	if err != nil {
		return nil, err
	}
	archive, err := storage.NewArchive(ctx, a.cfg.S3, a.logger)
	if err != nil {
		return nil, err
	}

	return collection.NewPipeline(collection.Dependencies{
		Source:    source,
		Extractor: extractor,
		RawRepo:   rawvideo.NewRepository(a.pool),
		VideoRepo: video.NewRepository(a.pool),
		Ranker:    a.engine,
		Archiver:  archive,
		Metrics:   a.metrics,
		Logger:    a.logger,
	}, a.cfg.Pipeline)
}

// channelService wires channel analysis. Without jobs the service can only read and clean up.
func (a *app) channelService(ctx context.Context, jobs channelsvc.Submitter) (*channelsvc.Service, error) {
	var (
		source    youtube.Source
		extractor channelsvc.Extractor
	)
	if jobs != nil {
		client, err := youtube.NewClient(ctx, a.cfg.YouTube, a.cfg.YouTube.APIKey, a.cfg.Pipeline.ExternalTimeout, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube client: %w", err)
		}
		ext, err := a.newExtractor(ctx)
		if err != nil {
			return nil, err
		}
		source, extractor = client, ext
	}

	return channelsvc.NewService(
		channel.NewRepository(a.pool),
		source,
		extractor,
		jobs,
		a.cfg.Channel,
		a.cfg.Pipeline,
		a.metrics,
		a.logger,
	), nil
}
