package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"floorplan/internal/common/config"
	"floorplan/internal/common/logging"
	"floorplan/internal/common/middleware"
	"floorplan/internal/converter/handlers"
	"floorplan/internal/planner/document"
)

// ============================================================
// Planner Service
// ============================================================

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	cfg, logger := e.cfg, e.logger

	docs := document.NewRegistry()
	planCfg := handlers.DefaultPlanConfig()
	planCfg.History.UndoDepth = cfg.UndoDepth
	planCfg.Tolerance = cfg.Tolerance
	plans := handlers.NewPlanHandler(docs, e.repo, e.files, planCfg)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Planner Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.RequestLog(logger.With("component", "http")))
	app.Use(middleware.CORS(cfg.Environment))

	// ============================================================
	// Routes
	// ============================================================

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handlers.Register(app, plans, handlers.NewHealth(e.repo))

	// ============================================================
	// Config Reload
	// ============================================================

	if path := os.Getenv("PLANNER_CONFIG"); path != "" {
		go func() {
			err := config.Watch(ctx, path, 200*time.Millisecond, func(next *config.Config) {
				logging.SetLevel(next.LogLevel)
			})
			if err != nil {
				logger.Warn("config watch stopped", "error", err)
			}
		}()
	}

	// ============================================================
	// Server Start
	// ============================================================

	errCh := make(chan error, 1)
	addr := fmt.Sprintf(":%s", cfg.Port)
	go func() {
		logger.Info("starting planner service", "addr", addr, "env", cfg.Environment, "db", cfg.DBPath)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, id := range docs.IDs() {
		if err := docs.Close(id); err != nil {
			logger.Warn("close document", "id", id, "error", err)
		}
	}
	return app.ShutdownWithContext(shutdownCtx)
}
