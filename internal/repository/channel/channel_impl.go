package channel

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/common"
	"github.com/jackc/pgx/v5"
)

const channelColumns = `id, channel_id, channel_handle, channel_title, thumbnail_url, description,
	subscriber_count, view_count, video_count, completion, created_at, updated_at`

// channelRepository implements Repository using PostgreSQL
type channelRepository struct {
	pool common.Pool
}

// NewRepository creates a new channel repository
func NewRepository(pool common.Pool) Repository {
	return &channelRepository{pool: pool}
}

func (r *channelRepository) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM channels WHERE channel_handle = $1)", handle).Scan(&exists)
	if err != nil {
		return false, common.HandlePostgreSQLError(err, "failed to check channel handle")
	}
	return exists, nil
}

func (r *channelRepository) Create(ctx context.Context, channel *model.Channel) error {
	sql := `
		INSERT INTO channels (channel_id, channel_handle, channel_title, thumbnail_url, description,
		                      subscriber_count, view_count, video_count, completion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, sql,
		channel.ChannelID, channel.Handle, channel.Title, channel.ThumbnailURL, channel.Description,
		channel.SubscriberCount, channel.ViewCount, channel.VideoCount, channel.Completion,
	).Scan(&channel.ID, &channel.CreatedAt, &channel.UpdatedAt)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to create channel")
	}
	return nil
}

func (r *channelRepository) GetByHandle(ctx context.Context, handle string) (*model.Channel, error) {
	sql := "SELECT " + channelColumns + " FROM channels WHERE channel_handle = $1"

	channel, err := scanChannel(r.pool.QueryRow(ctx, sql, handle))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "channel not found")
		}
		return nil, common.HandlePostgreSQLError(err, "failed to get channel")
	}
	return channel, nil
}

func (r *channelRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM channels WHERE id = $1", id); err != nil {
		return common.HandlePostgreSQLError(err, "failed to delete channel")
	}
	return nil
}

func (r *channelRepository) List(ctx context.Context, limit, offset int) ([]*model.Channel, error) {
	sql := "SELECT " + channelColumns + " FROM channels ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2"

	rows, err := r.pool.Query(ctx, sql, limit, offset)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to list channels")
	}
	defer rows.Close()

	channels := []*model.Channel{}
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan channel row")
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate channel rows")
	}
	return channels, nil
}

func (r *channelRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM channels").Scan(&count); err != nil {
		return 0, common.HandlePostgreSQLError(err, "failed to count channels")
	}
	return count, nil
}

const insertChannelKeywordsSQL = `
	INSERT INTO channel_keywords (channel_id, keyword_text, view_count)
	SELECT $1, t.keyword_text, t.view_count
	FROM unnest($2::text[], $3::bigint[]) AS t(keyword_text, view_count)
	ON CONFLICT (channel_id, keyword_text) DO UPDATE SET view_count = EXCLUDED.view_count`

func (r *channelRepository) CompleteAnalysis(ctx context.Context, channelID int64, keywords []model.ChannelKeyword) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to begin channel transaction")
	}

	if err := completeAnalysis(ctx, tx, channelID, keywords); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return common.HandlePostgreSQLError(err, "failed to commit channel analysis")
	}
	return nil
}

func completeAnalysis(ctx context.Context, tx pgx.Tx, channelID int64, keywords []model.ChannelKeyword) error {
	if len(keywords) > 0 {
		texts := make([]string, len(keywords))
		counts := make([]int64, len(keywords))
		for i, k := range keywords {
			texts[i] = k.KeywordText
			counts[i] = k.ViewCount
		}
		if _, err := tx.Exec(ctx, insertChannelKeywordsSQL, channelID, texts, counts); err != nil {
			return common.HandlePostgreSQLError(err, "failed to save channel keywords")
		}
	}

	tag, err := tx.Exec(ctx, "UPDATE channels SET completion = TRUE, updated_at = NOW() WHERE id = $1", channelID)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to mark channel complete")
	}
	// The cleanup sweep may have removed the row while the analysis was running
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.CodeNotFound, "channel was removed before analysis completed")
	}
	return nil
}

func (r *channelRepository) GetKeywordsByHandle(ctx context.Context, handle string, limit int) ([]*model.ChannelKeyword, error) {
	sql := `
		SELECT ck.id, ck.channel_id, ck.keyword_text, ck.view_count
		FROM channel_keywords ck
		JOIN channels c ON c.id = ck.channel_id
		WHERE c.channel_handle = $1
		ORDER BY ck.view_count DESC, ck.keyword_text
		LIMIT $2`

	rows, err := r.pool.Query(ctx, sql, handle, limit)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to get channel keywords")
	}
	defer rows.Close()

	keywords := []*model.ChannelKeyword{}
	for rows.Next() {
		var k model.ChannelKeyword
		if err := rows.Scan(&k.ID, &k.ChannelID, &k.KeywordText, &k.ViewCount); err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan channel keyword")
		}
		keywords = append(keywords, &k)
	}
	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate channel keywords")
	}
	return keywords, nil
}

func (r *channelRepository) DeleteIncompleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM channels WHERE completion = FALSE AND created_at < $1", cutoff)
	if err != nil {
		return 0, common.HandlePostgreSQLError(err, "failed to delete stale channels")
	}
	return tag.RowsAffected(), nil
}

func scanChannel(row pgx.Row) (*model.Channel, error) {
	var c model.Channel
	err := row.Scan(
		&c.ID, &c.ChannelID, &c.Handle, &c.Title, &c.ThumbnailURL, &c.Description,
		&c.SubscriberCount, &c.ViewCount, &c.VideoCount, &c.Completion, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
