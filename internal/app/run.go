package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"arbfinder/internal/api"
	"arbfinder/internal/scheduler"
	"arbfinder/internal/version"
)

// Run serves the HTTP API, drives scheduled sweeps and drains in-flight scans on shutdown.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rec := a.newMetrics()
	coord, err := a.newCoordinator(a.newFetcher(), a.newMonitor(), a.newNotifier(), rec)
	if err != nil {
		return err
	}

	gin.SetMode(a.Config.Server.Mode)
	apiOpts := api.Options{
		ServiceName: a.Config.App.Name,
		Version:     version.Version,
		DemoMode:    a.Config.Scraper.DemoMode,
		CORSOrigins: a.Config.Server.CORSOrigins,
		MetricsPath: a.Config.Metrics.Path,
	}
	if rec != nil {
		apiOpts.Metrics = rec.Handler()
	}
	srv := &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      api.New(coord, apiOpts, a.Logger).Handler(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	var sched *scheduler.Scheduler
	if a.Config.Scheduler.Enabled {
		sched, err = scheduler.New(scheduler.Options{
			Interval:      a.Config.Scheduler.Interval,
			AlignToBucket: a.Config.Scheduler.AlignToBucket,
			StartupDelay:  a.Config.Scheduler.StartupDelay,
		}, coord, a.Logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if sched != nil {
		g.Go(func() error {
			if err := sched.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown failed")
		}
		if err := coord.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("in-flight scans cancelled at shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("arbitrage finder stopped")
	return nil
}
