//go:build integration

package video

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/common"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/rawvideo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVideoRepository_Integration tests idempotent re-ingestion against real PostgreSQL
func TestVideoRepository_Integration(t *testing.T) {
	pool := common.SetupTestDB(t)
	repo := NewRepository(pool)
	rawRepo := rawvideo.NewRepository(pool)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	t.Run("second ingestion updates mutable fields and keeps identity", func(t *testing.T) {
		first := testVideo()
		firstID, err := repo.SaveWithKeywords(ctx, first, []string{"먹방", "라면"})
		require.NoError(t, err)

		stored, err := repo.GetByVideoID(ctx, first.VideoID)
		require.NoError(t, err)
		createdAt := stored.CreatedAt

		second := testVideo()
		second.Title = "오늘의 먹방 2탄"
		second.ViewCount = 5000
		second.ChannelID = "UC-should-not-change"
		secondID, err := repo.SaveWithKeywords(ctx, second, []string{"라면", "분식"})
		require.NoError(t, err)
		assert.Equal(t, firstID, secondID)

		stored, err = repo.GetByVideoID(ctx, first.VideoID)
		require.NoError(t, err)
		assert.Equal(t, "오늘의 먹방 2탄", stored.Title)
		assert.Equal(t, int64(5000), stored.ViewCount)
		assert.Equal(t, "UC123456789", stored.ChannelID)
		assert.True(t, createdAt.Equal(stored.CreatedAt))
		assert.False(t, stored.UpdatedAt.Before(createdAt))

		keywords, err := repo.GetKeywords(ctx, firstID)
		require.NoError(t, err)
		assert.Equal(t, []string{"라면", "분식"}, keywords)

		var count int
		require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM videos WHERE video_id = $1", first.VideoID).Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("raw upsert replaces blob and preserves creation time", func(t *testing.T) {
		_, err := rawRepo.UpsertBatch(ctx, []*model.RawVideo{{VideoID: "raw1", RawMetadata: json.RawMessage(`{"v":1}`)}})
		require.NoError(t, err)
		before, err := rawRepo.GetByVideoID(ctx, "raw1")
		require.NoError(t, err)

		_, err = rawRepo.UpsertBatch(ctx, []*model.RawVideo{{VideoID: "raw1", RawMetadata: json.RawMessage(`{"v":2}`)}})
		require.NoError(t, err)
		after, err := rawRepo.GetByVideoID(ctx, "raw1")
		require.NoError(t, err)

		assert.JSONEq(t, `{"v":2}`, string(after.RawMetadata))
		assert.Equal(t, before.ID, after.ID)
		assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	})
}
