package trending

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errDisk = errors.New("disk on fire")

type fakeStore struct {
	mu    sync.Mutex
	posts map[int]*PostStats

	writes   []int
	getFails int
	getErr   error
	getCalls int
	listFail error
	setFails map[int]error
}

func newFakeStore(posts ...PostStats) *fakeStore {
	s := &fakeStore{posts: make(map[int]*PostStats), setFails: make(map[int]error)}
	for _, p := range posts {
		p := p
		s.posts[p.ID] = &p
	}
	return s
}

func (s *fakeStore) GetPostStats(_ context.Context, postID int) (PostStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return PostStats{}, s.getErr
	}
	if s.getFails > 0 {
		s.getFails--
		return PostStats{}, errors.Join(ErrStorageUnavailable, errDisk)
	}
	p, ok := s.posts[postID]
	if !ok {
		return PostStats{}, ErrPostNotFound
	}
	return *p, nil
}

func (s *fakeStore) ListPostStats(_ context.Context, afterID int, limit int) ([]PostStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listFail != nil {
		return nil, s.listFail
	}
	ids := make([]int, 0, len(s.posts))
	for id := range s.posts {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]PostStats, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.posts[id])
	}
	return out, nil
}

func (s *fakeStore) SetTrendingScore(_ context.Context, postID int, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setFails[postID]; err != nil {
		return err
	}
	p, ok := s.posts[postID]
	if !ok {
		return ErrPostNotFound
	}
	p.TrendingScore = score
	s.writes = append(s.writes, postID)
	return nil
}

func (s *fakeStore) update(postID int, fn func(p *PostStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.posts[postID])
}

func (s *fakeStore) remove(postID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, postID)
}

func (s *fakeStore) score(postID int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts[postID].TrendingScore
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []ScoreChange
}

func (n *recordingNotifier) ScoreChanged(_ context.Context, c ScoreChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
	return nil
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (a *recordingAlerter) Alert(_ context.Context, subject string, _ error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, subject)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}
