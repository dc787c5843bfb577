package ranking

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/metrics"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/ranking"
)

// Cache stores computed ranking views per date
type Cache interface {
	Get(ctx context.Context, date time.Time) ([]model.KeywordRankingView, bool, error)
	Set(ctx context.Context, date time.Time, views []model.KeywordRankingView) error
	Invalidate(ctx context.Context) error
}

// Engine computes daily keyword rankings and their day-over-day movement
type Engine struct {
	repo       ranking.Repository
	cache      Cache
	metrics    *metrics.Metrics
	anchor     ranking.Anchor
	windowDays int
	limit      int
	location   *time.Location
	logger     *slog.Logger
}

// NewEngine creates an Engine; cache and m may be nil
func NewEngine(repo ranking.Repository, cache Cache, cfg config.RankingConfig, m *metrics.Metrics, logger *slog.Logger) (*Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidArg, "invalid ranking configuration")
	}
	if logger == nil {
		logger = slog.Default()
	}

	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = 7
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 50
	}
	anchor := ranking.Anchor(cfg.Anchor)
	if anchor == "" {
		anchor = ranking.AnchorUpdatedAt
	}

	return &Engine{
		repo:       repo,
		cache:      cache,
		metrics:    m,
		anchor:     anchor,
		windowDays: windowDays,
		limit:      limit,
		location:   loc,
		logger:     logger.With("component", "ranking"),
	}, nil
}

// StartOfDay truncates t to midnight in the ranking timezone
func (e *Engine) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(e.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.location)
}

// ComputeDailyRankings stores the snapshot for the day containing asOf.
// A date that already has a snapshot is left alone and 0 is returned.
func (e *Engine) ComputeDailyRankings(ctx context.Context, asOf time.Time) (int64, error) {
	date := e.StartOfDay(asOf)

	exists, err := e.repo.ExistsForDate(ctx, date)
	if err != nil {
		return 0, err
	}
	if exists {
		e.logger.Info("rankings already stored, skipping", "date", date.Format(time.DateOnly))
		return 0, nil
	}

	since := date.AddDate(0, 0, -e.windowDays)
	scores, err := e.repo.KeywordScores(ctx, e.anchor, since, date)
	if err != nil {
		return 0, err
	}

	rankings := RankKeywords(scores, e.limit)
	if len(rankings) == 0 {
		e.logger.Warn("no keyword activity in ranking window", "since", since, "until", date, "anchor", e.anchor)
		return 0, nil
	}

	stored, err := e.repo.SaveRankings(ctx, date, rankings)
	if err != nil {
		return 0, err
	}
	e.metrics.AddRankingsStored(stored)

	if e.cache != nil {
		if err := e.cache.Invalidate(ctx); err != nil {
			e.logger.Warn("failed to invalidate ranking cache", "error", err)
		}
	}

	e.logger.Info("daily rankings stored",
		"date", date.Format(time.DateOnly),
		"candidates", len(scores),
		"stored", stored,
	)
	return stored, nil
}

// GetDailyRankings returns today's snapshot annotated with movement since yesterday
func (e *Engine) GetDailyRankings(ctx context.Context, today time.Time) ([]model.KeywordRankingView, error) {
	date := e.StartOfDay(today)

	if e.cache != nil {
		views, ok, err := e.cache.Get(ctx, date)
		if err != nil {
			e.logger.Warn("ranking cache read failed", "error", err)
		} else {
			e.metrics.CountCacheLookup(ok)
			if ok {
				return views, nil
			}
		}
	}

	current, err := e.repo.GetByDate(ctx, date, e.limit)
	if err != nil {
		return nil, err
	}
	previous, err := e.repo.GetByDate(ctx, date.AddDate(0, 0, -1), e.limit)
	if err != nil {
		return nil, err
	}

	views := DiffRankings(current, previous)

	if e.cache != nil && len(views) > 0 {
		if err := e.cache.Set(ctx, date, views); err != nil {
			e.logger.Warn("ranking cache write failed", "error", err)
		}
	}
	return views, nil
}

// RankKeywords orders scores by descending score, keeping input order among ties,
// and assigns 1-based ranks to at most limit entries
func RankKeywords(scores []model.KeywordScore, limit int) []model.KeywordRanking {
	sorted := make([]model.KeywordScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	rankings := make([]model.KeywordRanking, 0, len(sorted))
	for i, s := range sorted {
		rankings = append(rankings, model.KeywordRanking{
			Rank:        i + 1,
			KeywordID:   s.KeywordID,
			KeywordText: s.Text,
			Score:       s.Score,
		})
	}
	return rankings
}

// DiffRankings annotates today's rows, ordered by today's rank, with their change since yesterday
func DiffRankings(today, yesterday []model.KeywordRanking) []model.KeywordRankingView {
	previous := make(map[int64]int, len(yesterday))
	for _, r := range yesterday {
		previous[r.KeywordID] = r.Rank
	}

	ordered := make([]model.KeywordRanking, len(today))
	copy(ordered, today)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank < ordered[j].Rank
	})

	views := make([]model.KeywordRankingView, 0, len(ordered))
	for _, r := range ordered {
		change := model.RankChange{Kind: model.RankNew}
		if prevRank, ok := previous[r.KeywordID]; ok {
			change = model.NewRankChange(prevRank, r.Rank)
		}
		views = append(views, model.KeywordRankingView{
			Rank:        r.Rank,
			KeywordText: r.KeywordText,
			Score:       r.Score,
			RankChange:  change,
		})
	}
	return views
}
