package trending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/emilythestrangee/git-forum/backend/internal/metrics"
)

// RetryPolicy bounds the retries of a single recompute on storage faults.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// SchedulerConfig is passed explicitly by the caller; nothing is read from
// the environment here.
type SchedulerConfig struct {
	// Window is the debounce delay between the last trigger and the recompute.
	Window       time.Duration
	PollInterval time.Duration
	ClaimBatch   int
	Retry        RetryPolicy
	// AlertCooldown is the minimum gap between two dead-letter alerts.
	// Failures inside the gap are counted and reported with the next alert.
	AlertCooldown time.Duration
}

// DefaultAlertCooldown applies when SchedulerConfig.AlertCooldown is not set.
const DefaultAlertCooldown = 15 * time.Minute

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Window:       5 * time.Second,
		PollInterval: time.Second,
		ClaimBatch:   100,
		Retry: RetryPolicy{
			MaxAttempts:    5,
			InitialBackoff: 200 * time.Millisecond,
		},
		AlertCooldown: DefaultAlertCooldown,
	}
}

// Scheduler turns engagement events into debounced recomputes.
type Scheduler struct {
	deps
	store Store
	table DebounceTable
	cfg   SchedulerConfig

	mu         sync.Mutex
	lastAlert  time.Time
	suppressed int
}

func NewScheduler(store Store, table DebounceTable, cfg SchedulerConfig, opts ...Option) *Scheduler {
	if cfg.AlertCooldown <= 0 {
		cfg.AlertCooldown = DefaultAlertCooldown
	}
	return &Scheduler{
		deps:  newDeps("trending.Scheduler", opts),
		store: store,
		table: table,
		cfg:   cfg,
	}
}

// ScheduleRecompute marks postID stale. It only touches the debounce table and
// returns immediately; the recompute runs later on a worker.
func (s *Scheduler) ScheduleRecompute(ctx context.Context, postID int) error {
	due := s.clock.Now().Add(s.cfg.Window)
	if err := s.table.Touch(ctx, postID, due); err != nil {
		return fmt.Errorf("schedule recompute of post %d: %w", postID, err)
	}
	s.logger.DebugContext(ctx, "recompute scheduled", "post_id", postID, "due", due)
	return nil
}

// Run polls the debounce table until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.logger.Info("trending worker started", "window", s.cfg.Window, "poll_interval", s.cfg.PollInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("trending worker stopped")
			return nil
		case <-ticker.Chan():
			if _, err := s.RunDue(ctx); err != nil {
				s.logger.Error("failed to run due recomputes", "error", err)
			}
		}
	}
}

// RunDue claims every post whose deadline has passed and recomputes it.
// It returns the number of jobs executed.
func (s *Scheduler) RunDue(ctx context.Context) (int, error) {
	executed := 0
	for {
		ids, err := s.table.ClaimDue(ctx, s.clock.Now(), s.cfg.ClaimBatch)
		if err != nil {
			return executed, fmt.Errorf("claim due posts: %w", err)
		}
		for _, id := range ids {
			s.runJob(ctx, id)
		}
		executed += len(ids)

		if s.cfg.ClaimBatch <= 0 || len(ids) < s.cfg.ClaimBatch || ctx.Err() != nil {
			break
		}
	}

	if pending, err := s.table.Pending(ctx); err == nil {
		metrics.DebouncePending.Set(float64(pending))
	}
	return executed, nil
}

func (s *Scheduler) runJob(ctx context.Context, postID int) {
	start := s.clock.Now()
	changed, err := s.Recompute(ctx, postID)
	metrics.RecomputeDuration.Observe(s.clock.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrPostNotFound):
		s.logger.InfoContext(ctx, "post gone before recompute, dropping job", "post_id", postID)
		metrics.RecomputeJobs.WithLabelValues("not_found").Inc()
	case err != nil:
		s.deadLetter(ctx, postID, err)
	case changed:
		metrics.RecomputeJobs.WithLabelValues("updated").Inc()
	default:
		metrics.RecomputeJobs.WithLabelValues("unchanged").Inc()
	}
}

// deadLetter reports a failed job. Only storage outages put the post back
// into the table; any other failure is left to the reconciliation sweep.
func (s *Scheduler) deadLetter(ctx context.Context, postID int, err error) {
	metrics.RecomputeJobs.WithLabelValues("failed").Inc()
	metrics.DeadLetters.WithLabelValues("recompute").Inc()
	s.logger.ErrorContext(ctx, "recompute failed", "post_id", postID, "error", err)

	if subject, ok := s.alertSubject(postID); ok {
		s.alerter.Alert(ctx, subject, err)
	}

	if !errors.Is(err, ErrStorageUnavailable) || ctx.Err() != nil {
		return
	}
	if terr := s.table.Touch(ctx, postID, s.clock.Now().Add(s.cfg.Window)); terr != nil {
		s.logger.ErrorContext(ctx, "failed to requeue post", "post_id", postID, "error", terr)
	}
}

// alertSubject returns the alert text for a failure, or false while the
// previous alert is still inside the cooldown.
func (s *Scheduler) alertSubject(postID int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if !s.lastAlert.IsZero() && now.Sub(s.lastAlert) < s.cfg.AlertCooldown {
		s.suppressed++
		return "", false
	}

	subject := fmt.Sprintf("trending recompute of post %d failed", postID)
	if s.suppressed > 0 {
		subject = fmt.Sprintf("%s (%d more failures since last alert)", subject, s.suppressed)
	}
	s.lastAlert = now
	s.suppressed = 0
	return subject, true
}

// Recompute reads the post, scores it at the current time and writes the
// score back only when it changed. ErrStorageUnavailable is retried with
// exponential backoff; any other error is returned as is.
func (s *Scheduler) Recompute(ctx context.Context, postID int) (bool, error) {
	var changed bool
	op := func() error {
		stats, err := s.store.GetPostStats(ctx, postID)
		if err != nil {
			return s.classify(ctx, err)
		}
		now := s.clock.Now()
		changed, err = persist(ctx, s.store, s.notifier, stats, ComputeStats(stats, now), now)
		if err != nil {
			return s.classify(ctx, err)
		}
		if changed {
			s.logger.DebugContext(ctx, "trending score updated", "post_id", postID, "old", stats.TrendingScore)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.WarnContext(ctx, "recompute failed, retrying", "post_id", postID, "error", err, "backoff", wait)
	}
	if err := backoff.RetryNotify(op, s.retryBackoff(ctx), notify); err != nil {
		return false, err
	}
	return changed, nil
}

// classify marks everything except ErrStorageUnavailable as permanent.
func (s *Scheduler) classify(ctx context.Context, err error) error {
	if !errors.Is(err, ErrStorageUnavailable) || ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	return err
}

func (s *Scheduler) retryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.Retry.InitialBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	retries := max(s.cfg.Retry.MaxAttempts-1, 0)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
