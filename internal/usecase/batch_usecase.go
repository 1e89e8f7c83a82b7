package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ev-tile-publisher/internal/config"
	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	apperrors "github.com/ev-tile-publisher/internal/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Converter converts a single item. Implemented by ConversionUseCase.
type Converter interface {
	Convert(ctx context.Context, item domain.ConversionItem) domain.ConversionResult
}

// BatchUseCase plans and runs conversions over the catalog.
type BatchUseCase struct {
	catalog   *domain.Catalog
	converter Converter
	runRepo   repository.RunRepository
	cacheRepo repository.CacheRepository
	cfg       config.PipelineConfig
	logger    *zap.Logger
}

// NewBatchUseCase создает новый экземпляр BatchUseCase. runRepo and
// cacheRepo may be nil.
func NewBatchUseCase(
	catalog *domain.Catalog,
	converter Converter,
	runRepo repository.RunRepository,
	cacheRepo repository.CacheRepository,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *BatchUseCase {
	return &BatchUseCase{
		catalog:   catalog,
		converter: converter,
		runRepo:   runRepo,
		cacheRepo: cacheRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

// StageItem builds the item for one region/stage pairing. Inputs live at
// {input}/{region}/{stage}.gpkg, archives at {output}/{key}.pmtiles.
func (uc *BatchUseCase) StageItem(regionID, stageID string) (domain.ConversionItem, error) {
	if _, ok := uc.catalog.Region(regionID); !ok {
		return domain.ConversionItem{}, apperrors.ErrRegionNotFound
	}
	stage, ok := uc.catalog.Stage(stageID)
	if !ok {
		return domain.ConversionItem{}, apperrors.ErrStageNotFound
	}
	key := domain.ArchiveKey(regionID, stageID)
	return domain.ConversionItem{
		Key:          key,
		Region:       regionID,
		Stage:        stageID,
		InputPath:    filepath.Join(uc.cfg.InputDir, regionID, stageID+".gpkg"),
		OutputPath:   uc.archivePath(key),
		GeometryType: stage.GeometryType,
		Columns:      stage.Columns,
	}, nil
}

// OverlayItem builds the item for an overlay. Its source path is relative to
// the input directory.
func (uc *BatchUseCase) OverlayItem(overlayID string) (domain.ConversionItem, error) {
	overlay, ok := uc.catalog.Overlay(overlayID)
	if !ok {
		return domain.ConversionItem{}, apperrors.ErrOverlayNotFound
	}
	return domain.ConversionItem{
		Key:          overlay.ID,
		Stage:        overlay.ID,
		InputPath:    filepath.Join(uc.cfg.InputDir, overlay.Source),
		OutputPath:   uc.archivePath(overlay.ID),
		GeometryType: overlay.GeometryType,
		Columns:      overlay.Columns,
		Overlay:      true,
	}, nil
}

// Plan lists the items a run in mode would process, in catalog order.
func (uc *BatchUseCase) Plan(mode domain.BatchMode) ([]domain.ConversionItem, error) {
	var items []domain.ConversionItem

	switch mode {
	case domain.ModeAll, domain.ModeMissing:
		for _, region := range uc.catalog.Regions {
			for _, stageID := range region.Stages {
				item, err := uc.StageItem(region.ID, stageID)
				if err != nil {
					return nil, fmt.Errorf("plan %s/%s: %w", region.ID, stageID, err)
				}
				items = append(items, item)
			}
		}
		for _, overlay := range uc.catalog.Overlays {
			item, _ := uc.OverlayItem(overlay.ID)
			items = append(items, item)
		}
	case domain.ModeOverlays:
		for _, overlay := range uc.catalog.Overlays {
			item, _ := uc.OverlayItem(overlay.ID)
			items = append(items, item)
		}
	default:
		return nil, apperrors.ErrInvalidRequest.WithDetails(map[string]interface{}{"mode": string(mode)})
	}

	if mode != domain.ModeMissing {
		return items, nil
	}

	missing := items[:0]
	for _, item := range items {
		if _, err := os.Stat(item.OutputPath); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, item)
		}
	}
	return missing, nil
}

// Run processes the planned items one after another. A failing item is
// recorded and the batch continues. The returned error is only about the
// run as a whole (planning, context cancellation); per-item failures are in
// the report.
func (uc *BatchUseCase) Run(ctx context.Context, mode domain.BatchMode) (*domain.RunReport, error) {
	items, err := uc.Plan(mode)
	if err != nil {
		return nil, err
	}
	return uc.RunItems(ctx, mode, items)
}

// RunItems processes an explicit item list and records the report.
func (uc *BatchUseCase) RunItems(ctx context.Context, mode domain.BatchMode, items []domain.ConversionItem) (*domain.RunReport, error) {
	report := &domain.RunReport{
		ID:        uuid.New(),
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}

	uc.logger.Info("Starting batch",
		zap.String("run_id", report.ID.String()),
		zap.String("mode", string(mode)),
		zap.Int("items", len(items)))

	var runErr error
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		uc.logger.Info("Converting",
			zap.Int("item", i+1),
			zap.Int("of", len(items)),
			zap.String("key", item.Key))
		res := uc.converter.Convert(ctx, item)
		// a failure caused by cancellation is not an outcome, the item is left for a rerun
		if err := ctx.Err(); err != nil && res.Status == domain.StatusFailed {
			uc.logger.Warn("Conversion interrupted",
				zap.String("key", item.Key),
				zap.String("error", res.Error))
			runErr = err
			break
		}
		report.Add(res)
	}
	report.FinishedAt = time.Now().UTC()

	uc.logger.Info("Batch finished",
		zap.String("run_id", report.ID.String()),
		zap.Int("converted", report.Converted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))

	// the ledger and cache are best effort, a finished batch is not undone
	if uc.runRepo != nil {
		if err := uc.runRepo.Save(context.WithoutCancel(ctx), report); err != nil {
			uc.logger.Warn("Failed to record run", zap.Error(err))
		}
	}
	if uc.cacheRepo != nil && report.Converted > 0 {
		if err := uc.cacheRepo.InvalidateArchives(context.WithoutCancel(ctx)); err != nil {
			uc.logger.Warn("Failed to invalidate archive cache", zap.Error(err))
		}
	}

	return report, runErr
}

func (uc *BatchUseCase) archivePath(key string) string {
	return filepath.Join(uc.cfg.OutputDir, key+".pmtiles")
}
