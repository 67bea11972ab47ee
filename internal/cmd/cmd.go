// Package cmd holds the git-forum command line: the API server, the trending
// worker and one-shot maintenance commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v3"

	"github.com/emilythestrangee/git-forum/backend/internal/database"
	"github.com/emilythestrangee/git-forum/backend/internal/handlers"
	"github.com/emilythestrangee/git-forum/backend/internal/logging"
	"github.com/emilythestrangee/git-forum/backend/internal/server"
)

const VERSION = "0.1.0"

const shutdownTimeout = 10 * time.Second

var cmd = &cli.Command{
	Name:    "git-forum",
	Usage:   "Backend of the git-forum code discussion site",
	Version: VERSION,
	Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
		if _, err := logging.Init(c.String("log-level"), c.String("log-format")); err != nil {
			return ctx, err
		}
		return ctx, nil
	},
	Flags: []cli.Flag{
		logLevelFlag,
		logFormatFlag,
		verboseSQLFlag,
	},
	Commands: []*cli.Command{
		serveCmd,
		workerCmd,
		reconcileCmd,
		migrateCmd,
	},
	DefaultCommand: "serve",
}

func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Run the HTTP API, with the trending worker embedded unless EMBEDDED_WORKER=false",
	Action: func(ctx context.Context, c *cli.Command) error {
		rt, err := newRuntime(ctx, c.Bool("verbose-sql"))
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := database.Migrate(rt.db.GetDB()); err != nil {
			return err
		}

		h := handlers.NewHandler(handlers.Deps{
			DB:       rt.db.GetDB(),
			Rescorer: rt.scheduler,
			Tokens:   rt.tokens,
			Google:   rt.google,
			Tools:    rt.tools,
			Logger:   rt.logger,
		})
		srv := server.NewServer(rt.cfg, rt.db, h, rt.tokens, rt.logger)

		var wg sync.WaitGroup
		if rt.cfg.Trending.EmbeddedWorker {
			rt.startWorkers(ctx, &wg)
		}

		errCh := make(chan error, 1)
		go func() {
			rt.logger.Info("server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
		case <-ctx.Done():
		}

		rt.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			rt.logger.Error("server shutdown failed", "error", err)
		}
		wg.Wait()
		return nil
	},
}

var workerCmd = &cli.Command{
	Name:  "worker",
	Usage: "Run the trending scheduler and the periodic reconciliation sweep",
	Action: func(ctx context.Context, c *cli.Command) error {
		rt, err := newRuntime(ctx, c.Bool("verbose-sql"))
		if err != nil {
			return err
		}
		defer rt.Close()

		if rt.redis == nil {
			rt.logger.Warn("REDIS_URL is not set; a standalone worker only sees triggers scheduled in its own process")
		}

		var wg sync.WaitGroup
		rt.startWorkers(ctx, &wg)
		<-ctx.Done()
		wg.Wait()
		return nil
	},
}

var reconcileCmd = &cli.Command{
	Name:  "reconcile",
	Usage: "Rescore every post once and exit",
	Action: func(ctx context.Context, c *cli.Command) error {
		rt, err := newRuntime(ctx, c.Bool("verbose-sql"))
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := rt.reconciler.ReconcileAll(ctx, clockwork.NewRealClock().Now())
		if err != nil {
			return fmt.Errorf("reconcile: %d of %d posts failed: %w", res.Failed, res.Total, err)
		}
		slog.Info("reconcile finished", "updated", res.Updated, "total", res.Total)
		return nil
	},
}

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "Create or update the database schema",
	Action: func(ctx context.Context, c *cli.Command) error {
		rt, err := newRuntime(ctx, c.Bool("verbose-sql"))
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := database.Migrate(rt.db.GetDB()); err != nil {
			return err
		}
		rt.logger.Info("migrations applied")
		return nil
	},
}
