package cmd

import (
	"context"
	"log/slog"
	"sync"

	libnats "github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/emilythestrangee/git-forum/backend/internal/alerting"
	"github.com/emilythestrangee/git-forum/backend/internal/auth"
	"github.com/emilythestrangee/git-forum/backend/internal/config"
	"github.com/emilythestrangee/git-forum/backend/internal/database"
	"github.com/emilythestrangee/git-forum/backend/internal/events"
	"github.com/emilythestrangee/git-forum/backend/internal/n8n"
	"github.com/emilythestrangee/git-forum/backend/internal/redis"
	"github.com/emilythestrangee/git-forum/backend/internal/trending"
)

// runtime owns every long-lived dependency of a command.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger

	db    database.Service
	redis *goredis.Client
	nats  *libnats.Conn

	scheduler  *trending.Scheduler
	reconciler *trending.Reconciler
	tokens     *auth.Tokens
	google     *auth.TokenInfoVerifier
	tools      *n8n.Client
}

// newRuntime closes whatever it already opened when a later step fails.
func newRuntime(ctx context.Context, verboseSQL bool) (_ *runtime, err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: slog.Default()}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	rt.db, err = database.Open(cfg.DSN(), rt.logger, verboseSQL)
	if err != nil {
		return nil, err
	}

	var table trending.DebounceTable = trending.NewMemoryTable()
	if cfg.RedisURL != "" {
		rt.redis, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		table = redis.NewDebounceTable(rt.redis)
		rt.logger.Info("using redis debounce table")
	}

	opts := []trending.Option{
		trending.WithLogger(rt.logger),
		trending.WithAlerter(rt.alerter()),
	}
	if cfg.NATSURL != "" {
		rt.nats, err = events.Connect(cfg.NATSURL, rt.logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, trending.WithNotifier(events.NewPublisher(rt.nats, rt.logger)))
	}

	store := database.NewScoreRepository(rt.db.GetDB())
	rt.scheduler = trending.NewScheduler(store, table, trending.SchedulerConfig{
		Window:       cfg.Trending.DebounceWindow,
		PollInterval: cfg.Trending.PollInterval,
		ClaimBatch:   cfg.Trending.ClaimBatch,
		Retry: trending.RetryPolicy{
			MaxAttempts:    cfg.Trending.RetryAttempts,
			InitialBackoff: cfg.Trending.RetryBackoff,
		},
		AlertCooldown: cfg.Trending.AlertCooldown,
	}, opts...)
	rt.reconciler = trending.NewReconciler(store, cfg.Trending.SweepInterval, cfg.Trending.SweepPageSize, opts...)

	rt.tokens = auth.NewTokens(cfg.JWTSecret, 0)
	rt.google = auth.NewTokenInfoVerifier()
	rt.tools = n8n.NewClient(n8n.Config{
		CommitGenURL:  cfg.N8NCommitGenURL,
		CodeReviewURL: cfg.N8NCodeReviewURL,
		SecretKey:     cfg.N8NSecretKey,
		Timeout:       cfg.N8NTimeout,
	})

	return rt, nil
}

func (rt *runtime) alerter() trending.Alerter {
	if !rt.cfg.AlertsEnabled() {
		return alerting.NewLogAlerter(rt.logger)
	}
	return alerting.NewTwilioAlerter(rt.cfg.TwilioAccountSID, rt.cfg.TwilioAuthToken, rt.cfg.TwilioFrom, rt.cfg.AlertPhone, rt.logger)
}

// startWorkers runs the scheduler and the reconciler until ctx is done.
func (rt *runtime) startWorkers(ctx context.Context, wg *sync.WaitGroup) {
	for name, run := range map[string]func(context.Context) error{
		"scheduler":  rt.scheduler.Run,
		"reconciler": rt.reconciler.Run,
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				rt.logger.Error("trending worker stopped", "worker", name, "error", err)
			}
		}()
	}
}

func (rt *runtime) Close() {
	if rt.tools != nil {
		_ = rt.tools.Close()
	}
	if rt.google != nil {
		_ = rt.google.Close()
	}
	if rt.nats != nil {
		if err := rt.nats.Drain(); err != nil {
			rt.logger.Warn("failed to drain NATS connection", "error", err)
		}
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			rt.logger.Warn("failed to close database", "error", err)
		}
	}
}
