package channel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/youtube"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/worker"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	args := m.Called(ctx, handle)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, ch *model.Channel) error {
	args := m.Called(ctx, ch)
	if args.Error(0) == nil {
		ch.ID = 7
	}
	return args.Error(0)
}

func (m *mockRepository) GetByHandle(ctx context.Context, handle string) (*model.Channel, error) {
	args := m.Called(ctx, handle)
	ch, _ := args.Get(0).(*model.Channel)
	return ch, args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) List(ctx context.Context, limit, offset int) ([]*model.Channel, error) {
	args := m.Called(ctx, limit, offset)
	chs, _ := args.Get(0).([]*model.Channel)
	return chs, args.Error(1)
}

func (m *mockRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepository) CompleteAnalysis(ctx context.Context, channelID int64, keywords []model.ChannelKeyword) error {
	return m.Called(ctx, channelID, keywords).Error(0)
}

func (m *mockRepository) GetKeywordsByHandle(ctx context.Context, handle string, limit int) ([]*model.ChannelKeyword, error) {
	args := m.Called(ctx, handle, limit)
	kws, _ := args.Get(0).([]*model.ChannelKeyword)
	return kws, args.Error(1)
}

func (m *mockRepository) DeleteIncompleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) SearchVideoIDs(ctx context.Context, q youtube.SearchQuery) (*youtube.IDPage, error) {
	args := m.Called(ctx, q)
	page, _ := args.Get(0).(*youtube.IDPage)
	return page, args.Error(1)
}

func (m *mockSource) GetVideos(ctx context.Context, ids []string) ([]*ytapi.Video, error) {
	args := m.Called(ctx, ids)
	items, _ := args.Get(0).([]*ytapi.Video)
	return items, args.Error(1)
}

func (m *mockSource) ListPlaylistVideoIDs(ctx context.Context, playlistID, pageToken string) (*youtube.IDPage, error) {
	args := m.Called(ctx, playlistID, pageToken)
	page, _ := args.Get(0).(*youtube.IDPage)
	return page, args.Error(1)
}

func (m *mockSource) GetChannelByHandle(ctx context.Context, handle string) (*model.ChannelDetails, error) {
	args := m.Called(ctx, handle)
	d, _ := args.Get(0).(*model.ChannelDetails)
	return d, args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, videos []*model.Video) (map[string][]string, error) {
	args := m.Called(ctx, videos)
	kws, _ := args.Get(0).(map[string][]string)
	return kws, args.Error(1)
}

// captureSubmitter records submitted jobs without running them
type captureSubmitter struct {
	jobs []worker.Job
	err  error
}

func (s *captureSubmitter) Submit(job worker.Job) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	s.jobs = append(s.jobs, job)
	return job.ID, nil
}

func apiVideo(id string, views uint64) *ytapi.Video {
	return &ytapi.Video{
		Id:             id,
		Snippet:        &ytapi.VideoSnippet{Title: "video " + id, PublishedAt: "2026-10-10T12:00:00Z"},
		ContentDetails: &ytapi.VideoContentDetails{Duration: "PT30S"},
		Statistics:     &ytapi.VideoStatistics{ViewCount: views},
	}
}

func testDetails() *model.ChannelDetails {
	return &model.ChannelDetails{
		ChannelID:         "UCchannel",
		Handle:            "@cook",
		Title:             "Cook",
		UploadsPlaylistID: "UUchannel",
		SubscriberCount:   100,
	}
}
