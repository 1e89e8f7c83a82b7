package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	apperrors "github.com/ev-tile-publisher/internal/pkg/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

type runRepository struct {
	db *DB
}

// NewRunRepository создает новый экземпляр RunRepository
func NewRunRepository(db *DB) repository.RunRepository {
	return &runRepository{db: db}
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

type resultRow struct {
	domain.ConversionResult
	Columns    pq.StringArray `db:"columns"`
	DurationMS int64          `db:"duration_ms"`
}

func (r *runRepository) Save(ctx context.Context, report *domain.RunReport) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, mode, started_at, finished_at, converted, skipped, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		report.ID, string(report.Mode), report.StartedAt, report.FinishedAt,
		report.Converted, report.Skipped, report.Failed,
	)
	if err != nil {
		r.db.logger.Error("Failed to insert run", zap.String("run_id", report.ID.String()), zap.Error(err))
		return fmt.Errorf("insert run: %w", err)
	}

	for i, res := range report.Results {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversion_results (
				run_id, position, archive_key, status, input_path, output_path, columns,
				source_crs, input_rows, sampled_rows, features, output_bytes, duration_ms,
				error, diagnostics
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			report.ID, i, res.Key, string(res.Status), res.InputPath, res.OutputPath, pq.Array(res.Columns),
			res.SourceCRS, res.InputRows, res.SampledRows, res.Features, res.OutputBytes, res.Duration.Milliseconds(),
			res.Error, res.Diagnostics,
		)
		if err != nil {
			return fmt.Errorf("insert result %s: %w", res.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.db.logger.Debug("Run recorded",
		zap.String("run_id", report.ID.String()),
		zap.Int("results", len(report.Results)))
	return nil
}

func (r *runRepository) Recent(ctx context.Context, limit int) ([]domain.RunReport, error) {
	runs := []domain.RunReport{}
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, mode, started_at, finished_at, converted, skipped, failed
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		r.db.logger.Error("Failed to list runs", zap.Error(err))
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (r *runRepository) Get(ctx context.Context, id string) (*domain.RunReport, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.ErrRunNotFound
	}

	var report domain.RunReport
	err = r.db.GetContext(ctx, &report, `
		SELECT id, mode, started_at, finished_at, converted, skipped, failed
		FROM pipeline_runs WHERE id = $1`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var rows []resultRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT archive_key, status, input_path, output_path, columns, source_crs,
			input_rows, sampled_rows, features, output_bytes, duration_ms, error, diagnostics
		FROM conversion_results
		WHERE run_id = $1
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("get run results: %w", err)
	}

	report.Results = make([]domain.ConversionResult, 0, len(rows))
	for _, row := range rows {
		res := row.ConversionResult
		res.Columns = []string(row.Columns)
		res.Duration = time.Duration(row.DurationMS) * time.Millisecond
		report.Results = append(report.Results, res)
	}
	return &report, nil
}
