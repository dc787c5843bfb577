package collection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/youtube"
)

var runAt = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		HashtagQuery:       "#shorts|#쇼츠",
		DiscoveryDays:      2,
		MaxPagesPerDay:     3,
		BatchSize:          50,
		Concurrency:        4,
		MinDurationSeconds: 10,
		MaxDurationSeconds: 61,
		Script:             "Hangul",
	}
}

type harness struct {
	source    *fakeSource
	extractor *mockExtractor
	rawRepo   *mockRawRepository
	videoRepo *mockVideoRepository
	ranker    *mockRanker
	archiver  *mockArchiver
	pipeline  *Pipeline
}

func newHarness(t *testing.T, cfg config.PipelineConfig) *harness {
	t.Helper()
	h := &harness{
		source:    newFakeSource(),
		extractor: new(mockExtractor),
		rawRepo:   new(mockRawRepository),
		videoRepo: new(mockVideoRepository),
		ranker:    new(mockRanker),
		archiver:  new(mockArchiver),
	}
	pipeline, err := NewPipeline(Dependencies{
		Source:    h.source,
		Extractor: h.extractor,
		RawRepo:   h.rawRepo,
		VideoRepo: h.videoRepo,
		Ranker:    h.ranker,
		Archiver:  h.archiver,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, cfg)
	require.NoError(t, err)
	pipeline.now = func() time.Time { return runAt }
	h.pipeline = pipeline
	return h
}

func videoIDs(videos []*model.Video) []string {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.VideoID
	}
	return ids
}

func TestPipeline_Run(t *testing.T) {
	h := newHarness(t, testPipelineConfig())

	// day 0 has two pages, day 1 repeats one id
	h.source.pages["2026-10-17"] = []*youtube.IDPage{
		{VideoIDs: []string{"ok1", "long", "eng"}, NextPageToken: "page-1"},
		{VideoIDs: []string{"ok2", "broken"}},
	}
	h.source.pages["2026-10-16"] = []*youtube.IDPage{
		{VideoIDs: []string{"ok1", "ten"}},
	}
	h.source.addVideo("ok1", "라면 먹방", 45, 1000)
	h.source.addVideo("ok2", "강아지 브이로그", 61, 500)
	h.source.addVideo("broken", "고양이 일상", 30, 10)
	h.source.addVideo("long", "긴 영상", 62, 10)
	h.source.addVideo("eng", "english only", 30, 10)
	h.source.addVideo("ten", "십초 영상", 10, 10)

	h.rawRepo.On("UpsertBatch", mock.Anything, mock.MatchedBy(func(raws []*model.RawVideo) bool {
		return len(raws) == 3 && raws[0].VideoID == "ok1" && raws[1].VideoID == "ok2" && raws[2].VideoID == "broken"
	})).Return(int64(3), nil)
	h.archiver.On("StoreRawBatch", mock.Anything, mock.Anything, runAt, mock.Anything).
		Return("raw-videos/2026/10/17/run.jsonl.gz", nil)

	h.extractor.On("Extract", mock.Anything, mock.MatchedBy(func(videos []*model.Video) bool {
		return assert.ObjectsAreEqual([]string{"ok1", "ok2", "broken"}, videoIDs(videos))
	})).Return(map[string][]string{
		"ok1":    {"라면", "먹방"},
		"broken": {"고양이"},
	}, nil).Once()

	h.videoRepo.On("SaveWithKeywords", mock.Anything, mock.MatchedBy(func(v *model.Video) bool { return v.VideoID == "ok1" }), []string{"라면", "먹방"}).
		Return(int64(1), nil)
	h.videoRepo.On("SaveWithKeywords", mock.Anything, mock.MatchedBy(func(v *model.Video) bool { return v.VideoID == "ok2" }), []string(nil)).
		Return(int64(2), nil)
	h.videoRepo.On("SaveWithKeywords", mock.Anything, mock.MatchedBy(func(v *model.Video) bool { return v.VideoID == "broken" }), []string{"고양이"}).
		Return(int64(0), errors.New(errors.CodeInternal, "connection reset"))

	h.ranker.On("ComputeDailyRankings", mock.Anything, runAt).Return(int64(4), nil)

	summary, err := h.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Candidates)
	assert.Equal(t, 6, summary.Detailed)
	assert.Equal(t, 3, summary.Filtered)
	assert.Equal(t, 2, summary.Persisted)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, int64(4), summary.Rankings)
	assert.Equal(t, "raw-videos/2026/10/17/run.jsonl.gz", summary.ArchiveKey)

	require.Len(t, h.source.searches, 3)
	first := h.source.searches[0]
	assert.Equal(t, "#shorts|#쇼츠", first.Query)
	assert.True(t, first.PublishedBefore.Equal(runAt))
	assert.True(t, first.PublishedAfter.Equal(runAt.Add(-24*time.Hour)))
	assert.Equal(t, "page-1", h.source.searches[1].PageToken)
	assert.True(t, h.source.searches[2].PublishedBefore.Equal(runAt.Add(-24*time.Hour)))

	h.rawRepo.AssertExpectations(t)
	h.extractor.AssertExpectations(t)
	h.videoRepo.AssertExpectations(t)
	h.ranker.AssertExpectations(t)
	h.archiver.AssertExpectations(t)
}

func TestPipeline_DiscoveryStopsAtPageCap(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.DiscoveryDays = 1
	h := newHarness(t, cfg)

	pages := make([]*youtube.IDPage, 5)
	for i := range pages {
		pages[i] = &youtube.IDPage{VideoIDs: []string{fmt.Sprintf("v%d", i)}, NextPageToken: fmt.Sprintf("page-%d", i+1)}
	}
	h.source.pages["2026-10-17"] = pages

	ids, err := h.pipeline.discover(context.Background(), runAt, h.pipeline.logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"v0", "v1", "v2"}, ids)
	assert.Len(t, h.source.searches, 3)
}

func TestPipeline_DetailBatchesNeverExceedFifty(t *testing.T) {
	h := newHarness(t, testPipelineConfig())

	ids := make([]string, 127)
	for i := range ids {
		ids[i] = fmt.Sprintf("v%03d", i)
		h.source.addVideo(ids[i], "먹방", 30, 1)
	}

	details, err := h.pipeline.fetchDetails(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, details, 127)
	for i, d := range details {
		assert.Equal(t, ids[i], d.Id)
	}
	assert.ElementsMatch(t, []int{50, 50, 27}, h.source.batchSizes)
}

func TestPipeline_ExtractionBatchesNeverExceedFifty(t *testing.T) {
	h := newHarness(t, testPipelineConfig())

	kept := make([]*ytapi.Video, 0, 127)
	for i := 0; i < 127; i++ {
		id := fmt.Sprintf("v%03d", i)
		h.source.addVideo(id, "먹방", 30, 1)
		kept = append(kept, h.source.videos[id])
	}

	var sizes []int
	h.extractor.On("Extract", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sizes = append(sizes, len(args.Get(1).([]*model.Video))) }).
		Return(map[string][]string{}, nil)
	h.videoRepo.On("SaveWithKeywords", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)

	h.pipeline.concurrency = 1
	persisted, failed, err := h.pipeline.extractAndPersist(context.Background(), kept, h.pipeline.logger)
	require.NoError(t, err)
	assert.Equal(t, 127, persisted)
	assert.Zero(t, failed)
	assert.Equal(t, []int{50, 50, 27}, sizes)
}

func TestPipeline_RunAborts(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		wantStage string
	}{
		{
			name: "search failure",
			setup: func(h *harness) {
				h.source.searchErr = errors.New(errors.CodeExternal, "quota exceeded")
			},
			wantStage: "discovery",
		},
		{
			name: "detail failure",
			setup: func(h *harness) {
				h.source.pages["2026-10-17"] = []*youtube.IDPage{{VideoIDs: []string{"a"}}}
				h.source.detailErr = errors.New(errors.CodeExternal, "503")
			},
			wantStage: "detail fetch",
		},
		{
			name: "raw persistence failure",
			setup: func(h *harness) {
				h.source.pages["2026-10-17"] = []*youtube.IDPage{{VideoIDs: []string{"a"}}}
				h.source.addVideo("a", "라면", 30, 1)
				h.rawRepo.On("UpsertBatch", mock.Anything, mock.Anything).Return(int64(0), assert.AnError)
			},
			wantStage: "persist raw",
		},
		{
			name: "extraction exhausted retries",
			setup: func(h *harness) {
				h.source.pages["2026-10-17"] = []*youtube.IDPage{{VideoIDs: []string{"a"}}}
				h.source.addVideo("a", "라면", 30, 1)
				h.rawRepo.On("UpsertBatch", mock.Anything, mock.Anything).Return(int64(1), nil)
				h.archiver.On("StoreRawBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil)
				h.extractor.On("Extract", mock.Anything, mock.Anything).
					Return(nil, errors.New(errors.CodeExternal, "keyword extraction failed after retries"))
			},
			wantStage: "extract and persist",
		},
		{
			name: "ranking failure",
			setup: func(h *harness) {
				h.ranker.On("ComputeDailyRankings", mock.Anything, runAt).Return(int64(0), assert.AnError)
			},
			wantStage: "ranking",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testPipelineConfig())
			tt.setup(h)

			summary, err := h.pipeline.Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantStage)
			require.NotNil(t, summary)

			if tt.wantStage != "ranking" {
				h.ranker.AssertNotCalled(t, "ComputeDailyRankings", mock.Anything, mock.Anything)
			}
			h.videoRepo.AssertNotCalled(t, "SaveWithKeywords", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPipeline_ArchiveFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, testPipelineConfig())
	h.source.pages["2026-10-17"] = []*youtube.IDPage{{VideoIDs: []string{"a"}}}
	h.source.addVideo("a", "라면", 30, 1)

	h.rawRepo.On("UpsertBatch", mock.Anything, mock.Anything).Return(int64(1), nil)
	h.archiver.On("StoreRawBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", assert.AnError)
	h.extractor.On("Extract", mock.Anything, mock.Anything).Return(map[string][]string{"a": {"라면"}}, nil)
	h.videoRepo.On("SaveWithKeywords", mock.Anything, mock.Anything, []string{"라면"}).Return(int64(1), nil)
	h.ranker.On("ComputeDailyRankings", mock.Anything, runAt).Return(int64(1), nil)

	summary, err := h.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.ArchiveKey)
	assert.Equal(t, 1, summary.Persisted)
}

func TestNewPipeline_InvalidScript(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.Script = "Klingon"
	_, err := NewPipeline(Dependencies{}, cfg)
	assert.Error(t, err)
}
