package trending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emilythestrangee/git-forum/backend/internal/metrics"
)

const (
	DefaultSweepInterval = 15 * time.Minute
	DefaultSweepPageSize = 500
)

// SweepResult summarises one reconciliation pass.
type SweepResult struct {
	Updated int
	Total   int
	Failed  int
}

// Reconciler periodically recomputes every post from scratch. It is the
// backstop for triggers lost to restarts, debounce races or direct database
// edits.
//
// Write failures on single posts are collected and the sweep moves on. A
// failed page read stops the sweep, since the cursor cannot advance past it.
type Reconciler struct {
	deps
	store    Store
	interval time.Duration
	pageSize int
}

func NewReconciler(store Store, interval time.Duration, pageSize int, opts ...Option) *Reconciler {
	if pageSize <= 0 {
		pageSize = DefaultSweepPageSize
	}
	return &Reconciler{
		deps:     newDeps("trending.Reconciler", opts),
		store:    store,
		interval: interval,
		pageSize: pageSize,
	}
}

// Run sweeps once on start, then every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("reconciler started", "interval", r.interval)
	r.runSweep(ctx)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return nil
		case <-ticker.Chan():
			r.runSweep(ctx)
		}
	}
}

func (r *Reconciler) runSweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.ReconcileAll(ctx, r.clock.Now()); err != nil {
		r.alerter.Alert(ctx, "trending reconciliation sweep failed", err)
	}
}

// ReconcileAll rescores every post as of now and writes only the posts whose
// stored score differs. The returned error joins every per-post failure.
func (r *Reconciler) ReconcileAll(ctx context.Context, now time.Time) (SweepResult, error) {
	start := r.clock.Now()
	res, err := r.sweep(ctx, now)
	metrics.SweepDuration.Observe(r.clock.Since(start).Seconds())
	metrics.SweepPostsUpdated.Set(float64(res.Updated))
	metrics.SweepPostsTotal.Set(float64(res.Total))

	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		r.logger.ErrorContext(ctx, "trending sweep finished with errors",
			"updated", res.Updated, "total", res.Total, "failed", res.Failed, "error", err)
		return res, err
	}

	metrics.SweepRuns.WithLabelValues("ok").Inc()
	r.logger.InfoContext(ctx, "updated trending scores", "updated", res.Updated, "total", res.Total)
	return res, nil
}

func (r *Reconciler) sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var (
		res   SweepResult
		errs  []error
		after int
	)

	for {
		if err := ctx.Err(); err != nil {
			return res, errors.Join(append(errs, err)...)
		}

		page, err := r.store.ListPostStats(ctx, after, r.pageSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("list posts after id %d: %w", after, err))
			return res, errors.Join(errs...)
		}

		for _, stats := range page {
			res.Total++
			changed, err := persist(ctx, r.store, r.notifier, stats, ComputeStats(stats, now), now)
			switch {
			case errors.Is(err, ErrPostNotFound):
				// deleted while the sweep was running
			case err != nil:
				res.Failed++
				errs = append(errs, fmt.Errorf("post %d: %w", stats.ID, err))
				r.logger.WarnContext(ctx, "failed to write trending score", "post_id", stats.ID, "error", err)
			case changed:
				res.Updated++
			}
		}

		if len(page) < r.pageSize {
			return res, errors.Join(errs...)
		}
		after = page[len(page)-1].ID
	}
}
