package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/repository/common"
)

// rankingRepository implements Repository using PostgreSQL
type rankingRepository struct {
	pool common.Pool
}

// NewRepository creates a new ranking repository
func NewRepository(pool common.Pool) Repository {
	return &rankingRepository{pool: pool}
}

func (r *rankingRepository) ExistsForDate(ctx context.Context, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM keyword_rankings WHERE ranking_date = $1)", date).Scan(&exists)
	if err != nil {
		return false, common.HandlePostgreSQLError(err, "failed to check ranking date")
	}
	return exists, nil
}

// keywordScoresSQL is formatted with a whitelisted anchor column
const keywordScoresSQL = `
	SELECT k.id, k.keyword_text, COALESCE(SUM(v.view_count), 0)::bigint AS score
	FROM video_keywords vk
	JOIN videos v ON v.id = vk.video_id
	JOIN keywords k ON k.id = vk.keyword_id
	WHERE v.%[1]s >= $1 AND v.%[1]s < $2
	GROUP BY k.id, k.keyword_text
	ORDER BY k.id`

func (r *rankingRepository) KeywordScores(ctx context.Context, anchor Anchor, since, until time.Time) ([]model.KeywordScore, error) {
	switch anchor {
	case AnchorUpdatedAt, AnchorPublishedAt:
	default:
		return nil, fmt.Errorf("unsupported ranking anchor %q", anchor)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(keywordScoresSQL, anchor), since, until)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to aggregate keyword scores")
	}
	defer rows.Close()

	scores := []model.KeywordScore{}
	for rows.Next() {
		var s model.KeywordScore
		if err := rows.Scan(&s.KeywordID, &s.Text, &s.Score); err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan keyword score")
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate keyword scores")
	}
	return scores, nil
}

const saveRankingsSQL = `
	INSERT INTO keyword_rankings (ranking_date, ranking, keyword_id, score)
	SELECT $1, t.ranking, t.keyword_id, t.score
	FROM unnest($2::int[], $3::bigint[], $4::bigint[]) AS t(ranking, keyword_id, score)
	ON CONFLICT (ranking_date, keyword_id) DO NOTHING`

func (r *rankingRepository) SaveRankings(ctx context.Context, date time.Time, rankings []model.KeywordRanking) (int64, error) {
	if len(rankings) == 0 {
		return 0, nil
	}

	ranks := make([]int32, len(rankings))
	keywordIDs := make([]int64, len(rankings))
	scores := make([]int64, len(rankings))
	for i, rk := range rankings {
		ranks[i] = int32(rk.Rank)
		keywordIDs[i] = rk.KeywordID
		scores[i] = rk.Score
	}

	tag, err := r.pool.Exec(ctx, saveRankingsSQL, date, ranks, keywordIDs, scores)
	if err != nil {
		return 0, common.HandlePostgreSQLError(err, "failed to save keyword rankings")
	}
	return tag.RowsAffected(), nil
}

func (r *rankingRepository) GetByDate(ctx context.Context, date time.Time, limit int) ([]model.KeywordRanking, error) {
	sql := `
		SELECT kr.id, kr.ranking_date, kr.ranking, kr.keyword_id, k.keyword_text, kr.score
		FROM keyword_rankings kr
		JOIN keywords k ON k.id = kr.keyword_id
		WHERE kr.ranking_date = $1
		ORDER BY kr.ranking
		LIMIT $2`

	rows, err := r.pool.Query(ctx, sql, date, limit)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to get keyword rankings")
	}
	defer rows.Close()

	rankings := []model.KeywordRanking{}
	for rows.Next() {
		var rk model.KeywordRanking
		if err := rows.Scan(&rk.ID, &rk.RankingDate, &rk.Rank, &rk.KeywordID, &rk.KeywordText, &rk.Score); err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan keyword ranking")
		}
		rankings = append(rankings, rk)
	}
	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate keyword rankings")
	}
	return rankings, nil
}
