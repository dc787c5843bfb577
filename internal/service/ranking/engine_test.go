package ranking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/ranking"
)

// mockRankingRepository is a mock implementation of ranking.Repository for testing
type mockRankingRepository struct {
	mock.Mock
}

func (m *mockRankingRepository) ExistsForDate(ctx context.Context, date time.Time) (bool, error) {
	args := m.Called(ctx, date)
	return args.Bool(0), args.Error(1)
}

func (m *mockRankingRepository) KeywordScores(ctx context.Context, anchor ranking.Anchor, since, until time.Time) ([]model.KeywordScore, error) {
	args := m.Called(ctx, anchor, since, until)
	return args.Get(0).([]model.KeywordScore), args.Error(1)
}

func (m *mockRankingRepository) SaveRankings(ctx context.Context, date time.Time, rankings []model.KeywordRanking) (int64, error) {
	args := m.Called(ctx, date, rankings)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRankingRepository) GetByDate(ctx context.Context, date time.Time, limit int) ([]model.KeywordRanking, error) {
	args := m.Called(ctx, date, limit)
	return args.Get(0).([]model.KeywordRanking), args.Error(1)
}

// mockCache is a mock implementation of Cache for testing
type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, date time.Time) ([]model.KeywordRankingView, bool, error) {
	args := m.Called(ctx, date)
	views, _ := args.Get(0).([]model.KeywordRankingView)
	return views, args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, date time.Time, views []model.KeywordRankingView) error {
	return m.Called(ctx, date, views).Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestEngine(t *testing.T, repo ranking.Repository, cache Cache) *Engine {
	t.Helper()
	engine, err := NewEngine(repo, cache, config.RankingConfig{
		WindowDays: 7,
		Limit:      50,
		Anchor:     "updated_at",
		Timezone:   "UTC",
	}, nil, nil)
	require.NoError(t, err)
	return engine
}

func scoresOf(values ...int64) []model.KeywordScore {
	scores := make([]model.KeywordScore, len(values))
	for i, v := range values {
		scores[i] = model.KeywordScore{KeywordID: int64(i + 1), Text: fmt.Sprintf("kw%d", i+1), Score: v}
	}
	return scores
}

func TestRankKeywords(t *testing.T) {
	tests := []struct {
		name    string
		scores  []model.KeywordScore
		limit   int
		wantIDs []int64
	}{
		{name: "descending by score", scores: scoresOf(10, 30, 20), limit: 50, wantIDs: []int64{2, 3, 1}},
		{name: "ties keep input order", scores: scoresOf(5, 9, 5, 9), limit: 50, wantIDs: []int64{2, 4, 1, 3}},
		{name: "empty", scores: nil, limit: 50, wantIDs: []int64{}},
		{name: "capped at limit", scores: scoresOf(1, 2, 3, 4, 5), limit: 3, wantIDs: []int64{5, 4, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rankings := RankKeywords(tt.scores, tt.limit)

			ids := make([]int64, 0, len(rankings))
			for i, r := range rankings {
				assert.Equal(t, i+1, r.Rank)
				ids = append(ids, r.KeywordID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestRankKeywords_TopFiftyStrictlyOrdered(t *testing.T) {
	values := make([]int64, 120)
	for i := range values {
		values[i] = int64((i * 37) % 1000)
	}

	rankings := RankKeywords(scoresOf(values...), 50)

	require.Len(t, rankings, 50)
	assert.Equal(t, 1, rankings[0].Rank)
	for i := 1; i < len(rankings); i++ {
		assert.GreaterOrEqual(t, rankings[i-1].Score, rankings[i].Score)
		assert.Equal(t, i+1, rankings[i].Rank)
	}
}

func TestDiffRankings(t *testing.T) {
	yesterday := []model.KeywordRanking{
		{Rank: 1, KeywordID: 40, KeywordText: "고양이"},
		{Rank: 2, KeywordID: 20, KeywordText: "먹방"},
		{Rank: 3, KeywordID: 10, KeywordText: "라면"},
		{Rank: 4, KeywordID: 50, KeywordText: "브이로그"},
	}
	today := []model.KeywordRanking{
		{Rank: 5, KeywordID: 20, KeywordText: "먹방", Score: 100},
		{Rank: 1, KeywordID: 10, KeywordText: "라면", Score: 900},
		{Rank: 2, KeywordID: 30, KeywordText: "강아지", Score: 800},
		{Rank: 4, KeywordID: 50, KeywordText: "브이로그", Score: 300},
	}

	views := DiffRankings(today, yesterday)

	require.Len(t, views, 4)
	assert.Equal(t, []string{"라면", "강아지", "브이로그", "먹방"},
		[]string{views[0].KeywordText, views[1].KeywordText, views[2].KeywordText, views[3].KeywordText})
	assert.Equal(t, model.RankChange{Kind: model.RankUp, Amount: 2}, views[0].RankChange)
	assert.Equal(t, model.RankChange{Kind: model.RankNew}, views[1].RankChange)
	assert.Equal(t, model.RankChange{Kind: model.RankSame}, views[2].RankChange)
	assert.Equal(t, model.RankChange{Kind: model.RankDown, Amount: 3}, views[3].RankChange)
}

func TestEngine_ComputeDailyRankings(t *testing.T) {
	asOf := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	date := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	since := date.AddDate(0, 0, -7)

	tests := []struct {
		name      string
		mockSetup func(*mockRankingRepository, *mockCache)
		want      int64
		wantErr   bool
	}{
		{
			name: "stores new snapshot and invalidates cache",
			mockSetup: func(repo *mockRankingRepository, cache *mockCache) {
				repo.On("ExistsForDate", mock.Anything, date).Return(false, nil)
				repo.On("KeywordScores", mock.Anything, ranking.AnchorUpdatedAt, since, date).
					Return(scoresOf(10, 30), nil)
				repo.On("SaveRankings", mock.Anything, date, []model.KeywordRanking{
					{Rank: 1, KeywordID: 2, KeywordText: "kw2", Score: 30},
					{Rank: 2, KeywordID: 1, KeywordText: "kw1", Score: 10},
				}).Return(int64(2), nil)
				cache.On("Invalidate", mock.Anything).Return(nil)
			},
			want: 2,
		},
		{
			name: "existing date is never rewritten",
			mockSetup: func(repo *mockRankingRepository, cache *mockCache) {
				repo.On("ExistsForDate", mock.Anything, date).Return(true, nil)
			},
			want: 0,
		},
		{
			name: "no activity stores nothing",
			mockSetup: func(repo *mockRankingRepository, cache *mockCache) {
				repo.On("ExistsForDate", mock.Anything, date).Return(false, nil)
				repo.On("KeywordScores", mock.Anything, ranking.AnchorUpdatedAt, since, date).
					Return([]model.KeywordScore{}, nil)
			},
			want: 0,
		},
		{
			name: "cache failure does not fail the computation",
			mockSetup: func(repo *mockRankingRepository, cache *mockCache) {
				repo.On("ExistsForDate", mock.Anything, date).Return(false, nil)
				repo.On("KeywordScores", mock.Anything, ranking.AnchorUpdatedAt, since, date).
					Return(scoresOf(10), nil)
				repo.On("SaveRankings", mock.Anything, date, mock.Anything).Return(int64(1), nil)
				cache.On("Invalidate", mock.Anything).Return(assert.AnError)
			},
			want: 1,
		},
		{
			name: "aggregation error",
			mockSetup: func(repo *mockRankingRepository, cache *mockCache) {
				repo.On("ExistsForDate", mock.Anything, date).Return(false, nil)
				repo.On("KeywordScores", mock.Anything, ranking.AnchorUpdatedAt, since, date).
					Return([]model.KeywordScore(nil), assert.AnError)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRankingRepository)
			cache := new(mockCache)
			tt.mockSetup(repo, cache)

			engine := newTestEngine(t, repo, cache)
			got, err := engine.ComputeDailyRankings(context.Background(), asOf)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestEngine_GetDailyRankings(t *testing.T) {
	today := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	t.Run("cache miss loads and stores", func(t *testing.T) {
		repo := new(mockRankingRepository)
		cache := new(mockCache)

		cache.On("Get", mock.Anything, today).Return(nil, false, nil)
		repo.On("GetByDate", mock.Anything, today, 50).Return([]model.KeywordRanking{
			{Rank: 1, KeywordID: 10, KeywordText: "라면", Score: 900},
		}, nil)
		repo.On("GetByDate", mock.Anything, yesterday, 50).Return([]model.KeywordRanking{
			{Rank: 3, KeywordID: 10, KeywordText: "라면", Score: 500},
		}, nil)
		expected := []model.KeywordRankingView{
			{Rank: 1, KeywordText: "라면", Score: 900, RankChange: model.RankChange{Kind: model.RankUp, Amount: 2}},
		}
		cache.On("Set", mock.Anything, today, expected).Return(nil)

		engine := newTestEngine(t, repo, cache)
		views, err := engine.GetDailyRankings(context.Background(), today.Add(15*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, expected, views)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache hit skips the repository", func(t *testing.T) {
		repo := new(mockRankingRepository)
		cache := new(mockCache)
		cached := []model.KeywordRankingView{{Rank: 1, KeywordText: "먹방", RankChange: model.RankChange{Kind: model.RankNew}}}
		cache.On("Get", mock.Anything, today).Return(cached, true, nil)

		engine := newTestEngine(t, repo, cache)
		views, err := engine.GetDailyRankings(context.Background(), today)
		require.NoError(t, err)
		assert.Equal(t, cached, views)
		repo.AssertNotCalled(t, "GetByDate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("without cache", func(t *testing.T) {
		repo := new(mockRankingRepository)
		repo.On("GetByDate", mock.Anything, today, 50).Return([]model.KeywordRanking{}, nil)
		repo.On("GetByDate", mock.Anything, yesterday, 50).Return([]model.KeywordRanking{}, nil)

		engine := newTestEngine(t, repo, nil)
		views, err := engine.GetDailyRankings(context.Background(), today)
		require.NoError(t, err)
		assert.Empty(t, views)
	})
}

func TestEngine_StartOfDay(t *testing.T) {
	engine, err := NewEngine(new(mockRankingRepository), nil, config.RankingConfig{Timezone: "Asia/Seoul"}, nil, nil)
	require.NoError(t, err)
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	// 2026-10-16 23:30 UTC is already the 17th in Seoul
	got := engine.StartOfDay(time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC))
	assert.True(t, got.Equal(time.Date(2026, 10, 17, 0, 0, 0, 0, seoul)))
}

func TestNewEngine_InvalidTimezone(t *testing.T) {
	_, err := NewEngine(new(mockRankingRepository), nil, config.RankingConfig{Timezone: "Mars/Olympus"}, nil, nil)
	assert.Error(t, err)
}
