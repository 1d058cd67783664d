package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/fliplens-comps/api/openapi"
	"github.com/donaldgifford/fliplens-comps/internal/api/handlers"
	"github.com/donaldgifford/fliplens-comps/internal/api/middleware"
	"github.com/donaldgifford/fliplens-comps/internal/comps"
	"github.com/donaldgifford/fliplens-comps/internal/config"
	"github.com/donaldgifford/fliplens-comps/internal/store"
	"github.com/donaldgifford/fliplens-comps/internal/telemetry"
	"github.com/donaldgifford/fliplens-comps/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
	})
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	c, err := buildComponents(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer c.Close()

	var (
		snapshots store.Store
		pinger    handlers.Pinger
		pruner    comps.SnapshotPruner
	)
	if c.store != nil {
		snapshots, pinger, pruner = c.store, c.store, c.store
	}

	sched, err := comps.NewScheduler(c.engine, comps.SchedulerConfig{
		Pruner:        pruner,
		Retention:     cfg.Schedule.SnapshotRetention,
		PruneInterval: cfg.Schedule.PruneInterval,
		PurgeInterval: cfg.Schedule.CachePurgeInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	e.Use(middleware.Recovery(log))
	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Metrics())

	health := handlers.NewHealthHandler(pinger, cfg.Marketplace.BaseURL)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, handlers.NewAPIConfig(Version))
	handlers.RegisterHealthRoutes(api, health)
	handlers.RegisterPriceRoutes(api, handlers.NewPriceHandler(c.engine))
	handlers.RegisterSnapshotRoutes(api, handlers.NewSnapshotsHandler(snapshots))
	handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(c.rateLimiter))
	openapi.RegisterRoutes(e)

	addr := cfg.Server.Addr()
	log.Info("starting server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	log.Info("server stopped")
	return nil
}

