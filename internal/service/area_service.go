package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vbonduro/floorplan/internal/domain"
	"github.com/vbonduro/floorplan/internal/export"
	"github.com/vbonduro/floorplan/internal/snapshotstore"
)

// areaRepository is the subset of store.AreaStore that the services require.
type areaRepository interface {
	Create(ctx context.Context, name string) (*domain.Area, error)
	GetByID(ctx context.Context, id int64) (*domain.Area, error)
	List(ctx context.Context) ([]*domain.Area, error)
	Update(ctx context.Context, id int64, name string) error
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type AreaService struct {
	areaStore areaRepository
	directory tableDirectory
	snapshots snapshotstore.SnapshotStore
	logger    *slog.Logger
}

// NewAreaService builds the area catalogue. snapshots may be nil.
func NewAreaService(
	areaStore areaRepository,
	directory tableDirectory,
	snapshots snapshotstore.SnapshotStore,
	logger *slog.Logger,
) *AreaService {
	return &AreaService{
		areaStore: areaStore,
		directory: directory,
		snapshots: snapshots,
		logger:    logger,
	}
}

func (s *AreaService) CreateArea(ctx context.Context, name string) (*domain.Area, error) {
	return s.areaStore.Create(ctx, name)
}

func (s *AreaService) ListAreas(ctx context.Context) ([]*domain.Area, error) {
	return s.areaStore.List(ctx)
}

// AreaSummary bundles an area with the tables the directory knows for it.
type AreaSummary struct {
	*domain.Area
	Tables []domain.TableRecord `json:"tables"`
}

func (s *AreaService) ListAreaSummaries(ctx context.Context) ([]*AreaSummary, error) {
	areas, err := s.areaStore.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]*AreaSummary, 0, len(areas))
	for _, area := range areas {
		tables, err := s.directory.ListTables(ctx, area.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables for area %d: %w", area.ID, err)
		}
		summaries = append(summaries, &AreaSummary{Area: area, Tables: tables})
	}
	return summaries, nil
}

// GetArea returns nil without an error when the area does not exist.
func (s *AreaService) GetArea(ctx context.Context, areaID int64) (*domain.Area, error) {
	return s.areaStore.GetByID(ctx, areaID)
}

func (s *AreaService) UpdateArea(ctx context.Context, areaID int64, name string) (*domain.Area, error) {
	if err := s.areaStore.Update(ctx, areaID, name); err != nil {
		return nil, fmt.Errorf("failed to update area: %w", err)
	}
	return s.areaStore.GetByID(ctx, areaID)
}

// DeleteArea removes the area and, best effort, its published snapshot.
func (s *AreaService) DeleteArea(ctx context.Context, areaID int64) error {
	if err := s.areaStore.Delete(ctx, areaID); err != nil {
		return err
	}
	if s.snapshots == nil {
		return nil
	}
	if err := s.snapshots.Delete(ctx, SnapshotName(areaID)); err != nil && !errors.Is(err, snapshotstore.ErrNotFound) {
		s.logger.Error("failed to delete snapshot", "area_id", areaID, "error", err)
	}
	return nil
}

// ExportTables writes the directory's tables for the area as an XLSX workbook.
func (s *AreaService) ExportTables(ctx context.Context, areaID int64, w io.Writer) error {
	area, err := s.areaStore.GetByID(ctx, areaID)
	if err != nil {
		return err
	}
	if area == nil {
		return ErrAreaNotFound
	}
	tables, err := s.directory.ListTables(ctx, areaID)
	if err != nil {
		return fmt.Errorf("failed to list tables for area %d: %w", areaID, err)
	}
	return export.WriteTablesXLSX(w, area.Name, tables)
}
