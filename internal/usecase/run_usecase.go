package usecase

import (
	"context"
	"errors"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	apperrors "github.com/ev-tile-publisher/internal/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// RunUseCase reads the run ledger.
type RunUseCase struct {
	runRepo repository.RunRepository
	logger  *zap.Logger
}

// NewRunUseCase создает новый экземпляр RunUseCase. A nil runRepo means the
// ledger is disabled.
func NewRunUseCase(runRepo repository.RunRepository, logger *zap.Logger) *RunUseCase {
	return &RunUseCase{runRepo: runRepo, logger: logger}
}

// Recent returns up to limit reports, newest first.
func (uc *RunUseCase) Recent(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if uc.runRepo == nil {
		return nil, apperrors.ErrLedgerDisabled
	}
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := uc.runRepo.Recent(ctx, limit)
	if err != nil {
		uc.logger.Error("Failed to list runs", zap.Int("limit", limit), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}
	return runs, nil
}

// Get returns one report with its per-item results.
func (uc *RunUseCase) Get(ctx context.Context, id string) (*domain.RunReport, error) {
	if uc.runRepo == nil {
		return nil, apperrors.ErrLedgerDisabled
	}
	run, err := uc.runRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrRunNotFound) {
			return nil, err
		}
		uc.logger.Error("Failed to load run", zap.String("run_id", id), zap.Error(err))
		return nil, apperrors.ErrDatabaseError
	}
	return run, nil
}
