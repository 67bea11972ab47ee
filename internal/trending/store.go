package trending

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPostNotFound is returned when the post was deleted before its score
	// could be read or written.
	ErrPostNotFound = errors.New("post not found")
	// ErrStorageUnavailable wraps transient storage faults.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// PostStats is a consistent snapshot of everything the score depends on,
// together with the currently stored score.
type PostStats struct {
	ID            int
	Likes         int64
	Comments      int64
	Forks         int64
	CreatedAt     time.Time
	TrendingScore float64
}

// Store is the storage contract of the engine.
type Store interface {
	// GetPostStats reads the counters of one post in a single statement.
	GetPostStats(ctx context.Context, postID int) (PostStats, error)
	// ListPostStats returns up to limit posts with id > afterID, ordered by id.
	ListPostStats(ctx context.Context, afterID int, limit int) ([]PostStats, error)
	// SetTrendingScore replaces trending_score only.
	SetTrendingScore(ctx context.Context, postID int, score float64) error
}

// ScoreChange describes a write that actually changed a stored score.
type ScoreChange struct {
	PostID     int       `json:"post_id"`
	OldScore   float64   `json:"old_score"`
	NewScore   float64   `json:"new_score"`
	ComputedAt time.Time `json:"computed_at"`
}

// ChangeNotifier is told about score changes after they are persisted.
type ChangeNotifier interface {
	ScoreChanged(ctx context.Context, change ScoreChange) error
}

// Alerter reports failures that need an operator.
type Alerter interface {
	Alert(ctx context.Context, subject string, err error)
}

type nopNotifier struct{}

func (nopNotifier) ScoreChanged(context.Context, ScoreChange) error { return nil }

type nopAlerter struct{}

func (nopAlerter) Alert(context.Context, string, error) {}

// persist writes score when it differs from the stored one and notifies
// downstream. It reports whether a write happened.
func persist(ctx context.Context, store Store, notifier ChangeNotifier, stats PostStats, score float64, now time.Time) (bool, error) {
	if stats.TrendingScore == score {
		return false, nil
	}
	if err := store.SetTrendingScore(ctx, stats.ID, score); err != nil {
		return false, err
	}
	// Notification failures never undo a write.
	_ = notifier.ScoreChanged(ctx, ScoreChange{
		PostID:     stats.ID,
		OldScore:   stats.TrendingScore,
		NewScore:   score,
		ComputedAt: now,
	})
	return true, nil
}
