package ranking

import (
	"context"
	"time"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
)

// Anchor selects which video timestamp places a video inside a ranking window
type Anchor string

const (
	AnchorUpdatedAt   Anchor = "updated_at"
	AnchorPublishedAt Anchor = "published_at"
)

// Repository defines persistence for daily keyword ranking snapshots
type Repository interface {
	// ExistsForDate reports whether a snapshot has already been stored for date
	ExistsForDate(ctx context.Context, date time.Time) (bool, error)

	// KeywordScores sums view counts per keyword for videos whose anchor falls in [since, until), ordered by keyword ID
	KeywordScores(ctx context.Context, anchor Anchor, since, until time.Time) ([]model.KeywordScore, error)

	// SaveRankings appends a snapshot; rows already present for the date are left untouched
	SaveRankings(ctx context.Context, date time.Time, rankings []model.KeywordRanking) (int64, error)

	// GetByDate loads a snapshot ordered by rank
	GetByDate(ctx context.Context, date time.Time, limit int) ([]model.KeywordRanking, error)
}
