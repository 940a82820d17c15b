package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"BuoyWatch.api/internal/config"
	"BuoyWatch.api/internal/controller"
	"BuoyWatch.api/internal/demo"
	"BuoyWatch.api/internal/metrics"
	"BuoyWatch.api/internal/middleware"
	"BuoyWatch.api/internal/repository"
	"BuoyWatch.api/internal/routes"
	"BuoyWatch.api/internal/service"
)

func main() {
	demoMode := flag.Bool("demo", false, "seed the SQLite store with synthetic readings before serving")
	demoDays := flag.Int("demo-days", 30, "days of synthetic readings to seed in demo mode")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *demoMode, *demoDays); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, demoMode bool, demoDays int) error {
	if demoMode && cfg.StoreBackend != config.BackendSQLite {
		return fmt.Errorf("demo mode needs STORE_BACKEND=sqlite, got %s", cfg.StoreBackend)
	}

	// Initialize repository, service, and controller
	backend, err := repository.OpenBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	checkCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	if err := backend.Check(checkCtx); err != nil {
		logger.Warn("store is not reachable yet", slog.String("backend", backend.Name()), slog.Any("error", err))
	}
	cancel()

	if saver, ok := backend.(demo.Saver); demoMode && ok {
		n, err := demo.Seed(ctx, saver, cfg.DeviceIDs, time.Now(),
			time.Duration(demoDays)*24*time.Hour, rand.New(rand.NewSource(time.Now().UnixNano())))
		if err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
		logger.Info("seeded demo readings", slog.Int("readings", n), slog.String("path", cfg.SQLitePath))
	}

	m := metrics.New()
	client := repository.NewClient(backend, cfg.StoreTimeout, repository.WithLogger(logger))
	svc := service.NewDataService(client,
		service.WithThresholds(cfg.Thresholds),
		service.WithCutoff(cfg.DataCutoff),
		service.WithLogger(logger),
		service.WithMetrics(m),
	)
	watcher := service.NewStatusWatcher(svc, cfg.DeviceIDs, cfg.PollInterval, service.DefaultRefreshInterval)
	ctrl := controller.NewDataController(svc, logger, controller.WithStatusWatcher(watcher))

	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.AccessLog(logger, m))
	routes.RegisterRoutes(router, ctrl, m.Handler())

	// CORS setup
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{"Content-Disposition", middleware.HeaderRequestID},
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		watcher.Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", server.Addr), slog.String("backend", backend.Name()))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	<-watchDone
	logger.Info("server stopped cleanly")
	return nil
}
