package trending

import (
	"context"
	"slices"
	"sync"
	"time"
)

// DebounceTable holds the next eligible recompute time per post.
//
// Touch overwrites any pending deadline, so a burst of triggers settles into
// one entry that becomes due one window after the last trigger.
type DebounceTable interface {
	Touch(ctx context.Context, postID int, due time.Time) error
	// ClaimDue removes and returns up to limit posts whose deadline is <= now,
	// earliest first. A claimed post is handed to exactly one caller.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]int, error)
	Pending(ctx context.Context) (int, error)
}

// MemoryTable is an in-process DebounceTable.
type MemoryTable struct {
	mu  sync.Mutex
	due map[int]time.Time
}

func NewMemoryTable() *MemoryTable {
	return &MemoryTable{due: make(map[int]time.Time)}
}

func (t *MemoryTable) Touch(_ context.Context, postID int, due time.Time) error {
	t.mu.Lock()
	t.due[postID] = due
	t.mu.Unlock()
	return nil
}

func (t *MemoryTable) ClaimDue(_ context.Context, now time.Time, limit int) ([]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ready []int
	for id, due := range t.due {
		if !due.After(now) {
			ready = append(ready, id)
		}
	}
	slices.SortFunc(ready, func(a, b int) int {
		if c := t.due[a].Compare(t.due[b]); c != 0 {
			return c
		}
		return a - b
	})
	if limit > 0 && len(ready) > limit {
		ready = ready[:limit]
	}
	for _, id := range ready {
		delete(t.due, id)
	}
	return ready, nil
}

func (t *MemoryTable) Pending(_ context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.due), nil
}

// Deadline returns the pending deadline of a post, if any.
func (t *MemoryTable) Deadline(postID int) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	due, ok := t.due[postID]
	return due, ok
}
