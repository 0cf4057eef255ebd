package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lmsales/sales-hub/internal/config"
	"github.com/lmsales/sales-hub/internal/db"
	"github.com/lmsales/sales-hub/internal/feed"
	"github.com/lmsales/sales-hub/internal/logging"
	"github.com/lmsales/sales-hub/internal/web"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server. Configuration comes from HUB_* environment
variables (HUB_PORT, HUB_DB, HUB_DEV_MODE, HUB_PLAN_CAPACITY, HUB_WATCH,
HUB_WATCH_DEBOUNCE, HUB_RATE_LIMIT). Flags override the environment.

Create an API key first with 'hub keys create <name>'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Port = port
			}
			if flagDB != "" {
				cfg.DBPath = flagDB
			}
			if cfg.DBPath == "" {
				if cfg.DBPath, err = db.DefaultPath(); err != nil {
					return err
				}
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default: HUB_PORT or 8080)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := logging.Setup(cfg.DevMode, os.Stderr)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB(database)

	srv := web.NewServer(database, web.Options{
		Capacity:  cfg.PlanCapacity,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	})

	untrack := srv.Metrics().Track(srv.Feed(), time.Now, logger)
	defer untrack()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Feed().Refresh(ctx); err != nil {
		logger.Warn("initial feed load failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, fmt.Sprintf(":%d", cfg.Port))
	})
	if cfg.Watch {
		w := feed.NewWatcher(srv.Feed(), cfg.DBPath, cfg.Debounce, logger)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	logger.Info("sales hub started", "port", cfg.Port, "db", cfg.DBPath, "watch", cfg.Watch)
	return g.Wait()
}
