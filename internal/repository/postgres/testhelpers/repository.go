package testhelpers

import (
	"github.com/ev-tile-publisher/internal/domain/repository"
	"github.com/ev-tile-publisher/internal/repository/postgres"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

// NewRunRepositoryForTest creates a run repository with test database and logger
func NewRunRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.RunRepository {
	return postgres.NewRunRepository(NewDBForTest(db, logger))
}
