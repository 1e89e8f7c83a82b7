package repository

import (
	"context"

	"github.com/ev-tile-publisher/internal/domain"
)

// RunRepository persists pipeline run reports.
type RunRepository interface {
	// Save stores the report and its per-item results.
	Save(ctx context.Context, report *domain.RunReport) error

	// Recent returns the newest reports first, without per-item results.
	Recent(ctx context.Context, limit int) ([]domain.RunReport, error)

	// Get returns one report with its results.
	Get(ctx context.Context, id string) (*domain.RunReport, error)
}
