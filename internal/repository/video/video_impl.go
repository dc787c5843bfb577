package video

import (
	"context"
	"errors"
	"sort"
	"strings"

	apperrors "github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both the pool and an open transaction
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// videoRepository implements Repository using PostgreSQL
type videoRepository struct {
	pool common.Pool
}

// NewRepository creates a new video repository
func NewRepository(pool common.Pool) Repository {
	return &videoRepository{pool: pool}
}

// Identity columns (video_id, channel_id, published_at) and created_at are never rewritten
const upsertVideoSQL = `
	INSERT INTO videos (
		video_id, published_at, channel_id, channel_title, title, description, tags,
		duration, view_count, like_count, comment_count, embed_html, topic_categories
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (video_id) DO UPDATE SET
		channel_title = EXCLUDED.channel_title,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		tags = EXCLUDED.tags,
		view_count = EXCLUDED.view_count,
		like_count = EXCLUDED.like_count,
		comment_count = EXCLUDED.comment_count,
		embed_html = EXCLUDED.embed_html,
		topic_categories = EXCLUDED.topic_categories,
		updated_at = NOW()
	RETURNING id`

// DO UPDATE rather than DO NOTHING so RETURNING also yields IDs of existing keywords
const ensureKeywordsSQL = `
	INSERT INTO keywords (keyword_text)
	SELECT unnest($1::text[])
	ON CONFLICT (keyword_text) DO UPDATE SET keyword_text = EXCLUDED.keyword_text
	RETURNING id`

const linkKeywordsSQL = `
	INSERT INTO video_keywords (video_id, keyword_id)
	SELECT $1, unnest($2::bigint[])
	ON CONFLICT DO NOTHING`

// Upsert creates or refreshes a video keyed by video_id
func (r *videoRepository) Upsert(ctx context.Context, video *model.Video) (int64, error) {
	return upsertVideo(ctx, r.pool, video)
}

// SaveWithKeywords upserts the video, then deletes and re-creates its keyword links.
// Readers never observe the video with a partial keyword set.
func (r *videoRepository) SaveWithKeywords(ctx context.Context, video *model.Video, keywords []string) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, common.HandlePostgreSQLError(err, "failed to begin video transaction")
	}

	id, err := saveWithKeywords(ctx, tx, video, keywords)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, common.HandlePostgreSQLError(err, "failed to commit video transaction")
	}
	return id, nil
}

func saveWithKeywords(ctx context.Context, q querier, video *model.Video, keywords []string) (int64, error) {
	id, err := upsertVideo(ctx, q, video)
	if err != nil {
		return 0, err
	}

	// An empty extraction result leaves the previous links in place
	texts := NormalizeKeywords(keywords)
	if len(texts) == 0 {
		return id, nil
	}

	if _, err := q.Exec(ctx, "DELETE FROM video_keywords WHERE video_id = $1", id); err != nil {
		return 0, common.HandlePostgreSQLError(err, "failed to delete keyword links")
	}

	keywordIDs, err := ensureKeywords(ctx, q, texts)
	if err != nil {
		return 0, err
	}

	if _, err := q.Exec(ctx, linkKeywordsSQL, id, keywordIDs); err != nil {
		return 0, common.HandlePostgreSQLError(err, "failed to link keywords")
	}
	return id, nil
}

func upsertVideo(ctx context.Context, q querier, v *model.Video) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, upsertVideoSQL,
		v.VideoID, v.PublishedAt, v.ChannelID, v.ChannelTitle, v.Title, v.Description, nonNil(v.Tags),
		v.Duration, v.ViewCount, v.LikeCount, v.CommentCount, v.EmbedHTML, nonNil(v.TopicCategories),
	).Scan(&id)
	if err != nil {
		return 0, common.HandlePostgreSQLError(err, "failed to upsert video")
	}
	v.ID = id
	return id, nil
}

func ensureKeywords(ctx context.Context, q querier, texts []string) ([]int64, error) {
	rows, err := q.Query(ctx, ensureKeywordsSQL, texts)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to ensure keywords")
	}
	defer rows.Close()

	ids := make([]int64, 0, len(texts))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan keyword ID")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate keyword IDs")
	}
	return ids, nil
}

// GetByVideoID retrieves a video by its external ID
func (r *videoRepository) GetByVideoID(ctx context.Context, videoID string) (*model.Video, error) {
	sql := `
		SELECT id, video_id, published_at, channel_id, channel_title, title, description, tags,
		       duration, view_count, like_count, comment_count, embed_html, topic_categories,
		       created_at, updated_at
		FROM videos WHERE video_id = $1`

	var v model.Video
	err := r.pool.QueryRow(ctx, sql, videoID).Scan(
		&v.ID, &v.VideoID, &v.PublishedAt, &v.ChannelID, &v.ChannelTitle, &v.Title, &v.Description, &v.Tags,
		&v.Duration, &v.ViewCount, &v.LikeCount, &v.CommentCount, &v.EmbedHTML, &v.TopicCategories,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "video not found")
		}
		return nil, common.HandlePostgreSQLError(err, "failed to get video")
	}
	return &v, nil
}

// GetKeywords returns the keyword texts linked to a video
func (r *videoRepository) GetKeywords(ctx context.Context, videoRowID int64) ([]string, error) {
	sql := `
		SELECT k.keyword_text
		FROM video_keywords vk
		JOIN keywords k ON k.id = vk.keyword_id
		WHERE vk.video_id = $1
		ORDER BY k.keyword_text`

	rows, err := r.pool.Query(ctx, sql, videoRowID)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to get video keywords")
	}
	defer rows.Close()

	keywords := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan keyword")
		}
		keywords = append(keywords, text)
	}
	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate keywords")
	}
	return keywords, nil
}

// NormalizeKeywords trims, drops empties and de-duplicates keyword texts.
// The result is sorted so concurrent transactions lock keyword rows in the same order.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
