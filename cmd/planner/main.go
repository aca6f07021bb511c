package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"floorplan/internal/common/config"
	"floorplan/internal/common/logging"
	"floorplan/internal/planner/store"
)

// ============================================================
// Commands
// ============================================================

var (
	rootCmd = &cobra.Command{
		Use:   "planner",
		Short: "Floor plan editing service",
		// a bare invocation serves, as the container entrypoint expects
		RunE: runServe,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	importCmd = &cobra.Command{
		Use:   "import <plan.svg>",
		Short: "Import an SVG plan into the store and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	renderCmd = &cobra.Command{
		Use:   "render <plan-id>",
		Short: "Render a stored plan as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}

	importName string
	renderOut  string
)

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "plan name (defaults to the file name)")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "write the SVG here instead of stdout")

	rootCmd.AddCommand(serveCmd, importCmd, renderCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("planner stopped", "error", err)
		os.Exit(1)
	}
}

// ============================================================
// Setup
// ============================================================

type env struct {
	cfg    *config.Config
	logger *slog.Logger
	repo   *store.Repository
	files  *store.FileStorage
	close  func() error
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	repo := store.New(db)
	if err := repo.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init db: %w", err)
	}

	return &env{
		cfg:    cfg,
		logger: logger,
		repo:   repo,
		files:  store.NewFileStorage(cfg.ExportDir),
		close:  db.Close,
	}, nil
}
