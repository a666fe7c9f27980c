package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"

	"github.com/vbonduro/floorplan/internal/config"
	"github.com/vbonduro/floorplan/internal/db"
	"github.com/vbonduro/floorplan/internal/domain"
	"github.com/vbonduro/floorplan/internal/editor"
	"github.com/vbonduro/floorplan/internal/layout"
	"github.com/vbonduro/floorplan/internal/logging"
	"github.com/vbonduro/floorplan/internal/remote"
	"github.com/vbonduro/floorplan/internal/service"
	"github.com/vbonduro/floorplan/internal/snapshotstore/local"
	"github.com/vbonduro/floorplan/internal/store"
	"github.com/vbonduro/floorplan/internal/web"
)

type tableDirectory interface {
	ListTables(ctx context.Context, areaID int64) ([]domain.TableRecord, error)
	ReplaceTables(ctx context.Context, areaID int64, tables []domain.TableAssignment) ([]domain.ConfirmedCode, error)
}

type layoutPersistence interface {
	GetLayout(ctx context.Context, areaID int64) (layout.Versions, error)
	PutLayout(ctx context.Context, areaID int64, status domain.LayoutStatus, doc *layout.Document) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	areaStore := store.NewAreaStore(database)
	directory, layouts := newBackends(cfg, database, logger)

	snapshots, err := local.NewLocalSnapshotStore(cfg.SnapshotPath)
	if err != nil {
		logger.Error("failed to initialize snapshot store", "error", err)
		return
	}

	areaService := service.NewAreaService(areaStore, directory, snapshots, logger)
	editorService := service.NewEditorService(areaStore, directory, layouts, snapshots, service.Options{
		Snap:         cfg.SnapEnabled,
		GridSize:     cfg.GridSize,
		DefaultSeats: cfg.DefaultSeats,
		PixelRatio:   cfg.ExportPixelRatio,
		Canonical:    editor.Stage{Width: cfg.CanonicalWidth, Height: cfg.CanonicalHeight},
	}, logger)

	server := web.NewServer(areaService, editorService, web.Options{
		Stage:              editor.Stage{Width: cfg.StageWidth, Height: cfg.StageHeight},
		MaxStageSize:       cfg.MaxStageSize,
		SessionIdleTimeout: cfg.SessionIdleTimeout,
	}, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

// newBackends picks where tables and layouts are kept. Areas always live in
// the local database.
func newBackends(cfg *config.Config, database *sql.DB, logger *slog.Logger) (tableDirectory, layoutPersistence) {
	switch cfg.DirectoryBackend {
	case config.BackendHTTP:
		logger.Info("using remote table directory and layout persistence",
			"directory_url", cfg.DirectoryURL, "layout_url", cfg.LayoutURL)
		return remote.NewDirectoryClient(cfg.DirectoryURL, cfg.RemoteTimeout, logger),
			remote.NewLayoutClient(cfg.LayoutURL, cfg.RemoteTimeout, logger)
	default:
		logger.Info("using sqlite table directory and layout persistence", "db_path", cfg.DBPath)
		return store.NewTableStore(database), store.NewLayoutStore(database)
	}
}
