package collection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/youtube"
)

// fakeSource serves search pages and detail records from memory
type fakeSource struct {
	mu         sync.Mutex
	pages      map[string][]*youtube.IDPage // keyed by PublishedBefore date
	videos     map[string]*ytapi.Video
	searchErr  error
	detailErr  error
	searches   []youtube.SearchQuery
	batchSizes []int
}

func newFakeSource() *fakeSource {
	return &fakeSource{pages: map[string][]*youtube.IDPage{}, videos: map[string]*ytapi.Video{}}
}

func (f *fakeSource) addVideo(id, title string, seconds int, views uint64) {
	f.videos[id] = &ytapi.Video{
		Id:             id,
		Snippet:        &ytapi.VideoSnippet{Title: title, PublishedAt: "2026-10-16T10:00:00Z"},
		ContentDetails: &ytapi.VideoContentDetails{Duration: fmt.Sprintf("PT%dS", seconds)},
		Statistics:     &ytapi.VideoStatistics{ViewCount: views},
	}
}

func (f *fakeSource) SearchVideoIDs(ctx context.Context, q youtube.SearchQuery) (*youtube.IDPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, q)
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	pages := f.pages[q.PublishedBefore.Format(time.DateOnly)]
	index := 0
	if q.PageToken != "" {
		_, _ = fmt.Sscanf(q.PageToken, "page-%d", &index)
	}
	if index >= len(pages) {
		return &youtube.IDPage{}, nil
	}
	return pages[index], nil
}

func (f *fakeSource) GetVideos(ctx context.Context, ids []string) ([]*ytapi.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchSizes = append(f.batchSizes, len(ids))
	if f.detailErr != nil {
		return nil, f.detailErr
	}

	out := make([]*ytapi.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := f.videos[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeSource) ListPlaylistVideoIDs(ctx context.Context, playlistID, pageToken string) (*youtube.IDPage, error) {
	return &youtube.IDPage{}, nil
}

func (f *fakeSource) GetChannelByHandle(ctx context.Context, handle string) (*model.ChannelDetails, error) {
	return nil, nil
}

// mockExtractor is a mock implementation of Extractor for testing
type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, videos []*model.Video) (map[string][]string, error) {
	args := m.Called(ctx, videos)
	result, _ := args.Get(0).(map[string][]string)
	return result, args.Error(1)
}

// mockRawRepository is a mock implementation of rawvideo.Repository for testing
type mockRawRepository struct {
	mock.Mock
}

func (m *mockRawRepository) UpsertBatch(ctx context.Context, videos []*model.RawVideo) (int64, error) {
	args := m.Called(ctx, videos)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRawRepository) GetByVideoID(ctx context.Context, videoID string) (*model.RawVideo, error) {
	args := m.Called(ctx, videoID)
	raw, _ := args.Get(0).(*model.RawVideo)
	return raw, args.Error(1)
}

// mockVideoRepository is a mock implementation of video.Repository for testing
type mockVideoRepository struct {
	mock.Mock
}

func (m *mockVideoRepository) Upsert(ctx context.Context, v *model.Video) (int64, error) {
	args := m.Called(ctx, v)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockVideoRepository) SaveWithKeywords(ctx context.Context, v *model.Video, keywords []string) (int64, error) {
	args := m.Called(ctx, v, keywords)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockVideoRepository) GetByVideoID(ctx context.Context, videoID string) (*model.Video, error) {
	args := m.Called(ctx, videoID)
	v, _ := args.Get(0).(*model.Video)
	return v, args.Error(1)
}

func (m *mockVideoRepository) GetKeywords(ctx context.Context, videoRowID int64) ([]string, error) {
	args := m.Called(ctx, videoRowID)
	keywords, _ := args.Get(0).([]string)
	return keywords, args.Error(1)
}

// mockRanker is a mock implementation of RankingComputer for testing
type mockRanker struct {
	mock.Mock
}

func (m *mockRanker) ComputeDailyRankings(ctx context.Context, asOf time.Time) (int64, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

// mockArchiver is a mock implementation of RawArchiver for testing
type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) StoreRawBatch(ctx context.Context, runID uuid.UUID, at time.Time, videos []*model.RawVideo) (string, error) {
	args := m.Called(ctx, runID, at, videos)
	return args.String(0), args.Error(1)
}
