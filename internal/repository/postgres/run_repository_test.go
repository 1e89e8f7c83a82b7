package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	apperrors "github.com/ev-tile-publisher/internal/pkg/errors"
	"github.com/ev-tile-publisher/internal/repository/postgres/testhelpers"
)

// RunRepositoryTestSuite тестирует RunRepository на реальной БД
type RunRepositoryTestSuite struct {
	suite.Suite
	testDB *testhelpers.TestDB
	repo   repository.RunRepository
	ctx    context.Context
}

func (s *RunRepositoryTestSuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDB(s.T())

	db := testhelpers.NewDBForTest(s.testDB.DB, s.testDB.Logger)
	s.Require().NoError(db.EnsureSchema(context.Background()))

	s.repo = testhelpers.NewRunRepositoryForTest(s.testDB.DB, s.testDB.Logger)
}

func (s *RunRepositoryTestSuite) TearDownSuite() {
	if s.testDB != nil {
		s.testDB.Close()
	}
}

func (s *RunRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.testDB.Cleanup(s.ctx))
}

func newReport(mode domain.BatchMode, started time.Time) *domain.RunReport {
	r := &domain.RunReport{
		ID:         uuid.New(),
		Mode:       mode,
		StartedAt:  started.UTC().Truncate(time.Millisecond),
		FinishedAt: started.Add(time.Minute).UTC().Truncate(time.Millisecond),
	}
	r.Add(domain.ConversionResult{
		Key:         "hitrans_adoption_propensity",
		Status:      domain.StatusConverted,
		InputPath:   "data/gpkg/hitrans/adoption_propensity.gpkg",
		OutputPath:  "data/pmtiles/hitrans_adoption_propensity.pmtiles",
		Columns:     []string{"adoption_score", "car_ownership"},
		SourceCRS:   "EPSG:27700",
		InputRows:   1200,
		SampledRows: 1200,
		Features:    1198,
		OutputBytes: 52_428,
		Duration:    3 * time.Second,
	})
	r.Add(domain.ConversionResult{
		Key:         "hitrans_charging_potential",
		Status:      domain.StatusFailed,
		Error:       "tippecanoe exited with code 1",
		Diagnostics: "Unknown option --bogus",
	})
	return r
}

func (s *RunRepositoryTestSuite) TestSaveAndGet() {
	report := newReport(domain.ModeAll, time.Now())
	s.Require().NoError(s.repo.Save(s.ctx, report))

	got, err := s.repo.Get(s.ctx, report.ID.String())
	s.Require().NoError(err)
	s.Equal(report.ID, got.ID)
	s.Equal(domain.ModeAll, got.Mode)
	s.Equal(1, got.Converted)
	s.Equal(1, got.Failed)
	s.Require().Len(got.Results, 2)

	first := got.Results[0]
	s.Equal([]string{"adoption_score", "car_ownership"}, first.Columns)
	s.Equal(int64(1198), first.Features)
	s.Equal(3*time.Second, first.Duration)

	s.Equal("Unknown option --bogus", got.Results[1].Diagnostics)
	s.Empty(got.Results[1].Columns)
}

func (s *RunRepositoryTestSuite) TestRecentNewestFirst() {
	older := newReport(domain.ModeAll, time.Now().Add(-time.Hour))
	newer := newReport(domain.ModeMissing, time.Now())
	s.Require().NoError(s.repo.Save(s.ctx, older))
	s.Require().NoError(s.repo.Save(s.ctx, newer))

	runs, err := s.repo.Recent(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(runs, 2)
	s.Equal(newer.ID, runs[0].ID)
	s.Equal(older.ID, runs[1].ID)
	s.Empty(runs[0].Results)

	runs, err = s.repo.Recent(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(runs, 1)
}

func (s *RunRepositoryTestSuite) TestGetNotFound() {
	_, err := s.repo.Get(s.ctx, uuid.NewString())
	s.ErrorIs(err, apperrors.ErrRunNotFound)

	_, err = s.repo.Get(s.ctx, "not-a-uuid")
	s.ErrorIs(err, apperrors.ErrRunNotFound)
}

func TestRunRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RunRepositoryTestSuite))
}
