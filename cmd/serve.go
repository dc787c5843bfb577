package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/api"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/scheduler"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/worker"
)

// serveCmd runs the HTTP API, the worker pool and the scheduler in one process
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with background workers and scheduled jobs",
	Long: `Serve the ranking and channel endpoints, run channel analyses on the
worker pool and, when scheduler.enabled is set, trigger the daily collection
and the stale channel cleanup on their cron specs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Address = addr
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		jobs := worker.NewPool(worker.Config{Workers: cfg.Worker.Count, QueueSize: cfg.Worker.QueueSize}, logger, a.metrics)
		jobs.Start()

		channels, err := a.channelService(ctx, jobs)
		if err != nil {
			_ = jobs.Stop(cfg.Worker.StopTimeout)
			return err
		}

		var sched *scheduler.Scheduler
		if cfg.Scheduler.Enabled {
			pipeline, err := a.collectionPipeline(ctx)
			if err != nil {
				_ = jobs.Stop(cfg.Worker.StopTimeout)
				return err
			}
			sched, err = scheduler.New(cfg.Scheduler, pipeline, channels, logger)
			if err != nil {
				_ = jobs.Stop(cfg.Worker.StopTimeout)
				return err
			}
			sched.Start()
		}

		server := api.NewServer(&api.Handlers{
			Rankings: a.engine,
			Channels: channels,
			DB:       a.pool,
			Metrics:  a.metrics,
			Logger:   logger,
		}, cfg.Server)

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("http server listening", "addr", cfg.Server.Address)
			if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
		case err := <-serveErr:
			if err != nil {
				logger.Error("http server failed", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if sched != nil {
			if err := sched.Stop(cfg.Worker.StopTimeout); err != nil {
				errs = append(errs, err)
			}
		}
		if err := jobs.Stop(cfg.Worker.StopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("worker pool: %w", err))
		}
		return stderrors.Join(errs...)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Override server.address")
	rootCmd.AddCommand(serveCmd)
}
