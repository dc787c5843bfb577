package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/service/collection"
)

type countingCollector struct {
	runs atomic.Int32
	err  error
}

func (c *countingCollector) Run(ctx context.Context) (*collection.RunSummary, error) {
	c.runs.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &collection.RunSummary{Persisted: 3}, nil
}

type blockingCleaner struct {
	calls    atomic.Int32
	canceled atomic.Bool
}

func (c *blockingCleaner) CleanupStale(ctx context.Context, now time.Time) (int64, error) {
	c.calls.Add(1)
	<-ctx.Done()
	c.canceled.Store(true)
	return 0, ctx.Err()
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.SchedulerConfig
		wantEntries int
		wantErr     bool
	}{
		{
			name:        "both jobs",
			cfg:         config.SchedulerConfig{CollectionSpec: "1 9 * * *", CleanupSpec: "@every 10m", Timezone: "Asia/Seoul"},
			wantEntries: 2,
		},
		{
			name:        "default timezone",
			cfg:         config.SchedulerConfig{CollectionSpec: "1 9 * * *"},
			wantEntries: 1,
		},
		{
			name:    "invalid cron expression",
			cfg:     config.SchedulerConfig{CollectionSpec: "every day"},
			wantErr: true,
		},
		{
			name:    "invalid timezone",
			cfg:     config.SchedulerConfig{CollectionSpec: "1 9 * * *", Timezone: "Mars/Olympus"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, &countingCollector{}, &blockingCleaner{}, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEntries, s.Entries())
		})
	}
}

func TestScheduler_RunsAndStops(t *testing.T) {
	collector := &countingCollector{}
	cleaner := &blockingCleaner{}
	s, err := New(config.SchedulerConfig{
		CollectionSpec: "@every 1s",
		CleanupSpec:    "@every 1s",
		Timezone:       "UTC",
	}, collector, cleaner, nil)
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool {
		return collector.runs.Load() > 0 && cleaner.calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, s.Stop(5*time.Second))
	assert.True(t, cleaner.canceled.Load())
	assert.Equal(t, int32(1), cleaner.calls.Load())
}

func TestScheduler_CollectionErrorIsLogged(t *testing.T) {
	collector := &countingCollector{err: assert.AnError}
	s, err := New(config.SchedulerConfig{CollectionSpec: "1 9 * * *", Timezone: "UTC"}, collector, nil, nil)
	require.NoError(t, err)

	s.runCollection()
	assert.Equal(t, int32(1), collector.runs.Load())
}
