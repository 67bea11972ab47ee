package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/models"
	"github.com/emilythestrangee/git-forum/backend/internal/trending"
)

var _ trending.Store = (*ScoreRepository)(nil)

// statsQuery reads the counters and the stored score of posts in one
// statement, so every row is a consistent snapshot.
const statsQuery = `
SELECT p.id,
       p.created_at,
       p.trending_score,
       p.fork_count AS forks,
       (SELECT COUNT(*) FROM votes v WHERE v.post_id = p.id AND v.vote_type = ?) AS likes,
       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comments
FROM posts p`

type statsRow struct {
	ID            int
	CreatedAt     time.Time
	TrendingScore float64
	Forks         int64
	Likes         int64
	Comments      int64
}

func (r statsRow) toStats() trending.PostStats {
	return trending.PostStats{
		ID:            r.ID,
		Likes:         r.Likes,
		Comments:      r.Comments,
		Forks:         r.Forks,
		CreatedAt:     r.CreatedAt,
		TrendingScore: r.TrendingScore,
	}
}

// ScoreRepository is the gorm implementation of trending.Store.
type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

func (r *ScoreRepository) GetPostStats(ctx context.Context, postID int) (trending.PostStats, error) {
	var row statsRow
	res := r.db.WithContext(ctx).
		Raw(statsQuery+" WHERE p.id = ?", models.VoteLike, postID).
		Scan(&row)
	if res.Error != nil {
		return trending.PostStats{}, scoreError("read", postID, res.Error)
	}
	if res.RowsAffected == 0 {
		return trending.PostStats{}, trending.ErrPostNotFound
	}
	return row.toStats(), nil
}

func (r *ScoreRepository) ListPostStats(ctx context.Context, afterID int, limit int) ([]trending.PostStats, error) {
	var rows []statsRow
	err := r.db.WithContext(ctx).
		Raw(statsQuery+" WHERE p.id > ? ORDER BY p.id LIMIT ?", models.VoteLike, afterID, limit).
		Scan(&rows).Error
	if err != nil {
		return nil, scoreError("list after", afterID, err)
	}

	stats := make([]trending.PostStats, len(rows))
	for i, row := range rows {
		stats[i] = row.toStats()
	}
	return stats, nil
}

// SetTrendingScore writes trending_score alone, skipping hooks and
// updated_at.
func (r *ScoreRepository) SetTrendingScore(ctx context.Context, postID int, score float64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("trending_score", score)
	if res.Error != nil {
		return scoreError("write", postID, res.Error)
	}
	if res.RowsAffected == 0 {
		return trending.ErrPostNotFound
	}
	return nil
}
