package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ev-tile-publisher/internal/catalog"
	"github.com/ev-tile-publisher/internal/domain"
	apperrors "github.com/ev-tile-publisher/internal/pkg/errors"
	"github.com/ev-tile-publisher/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueUseCase_Enqueue(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	ctx := context.Background()
	batch := newBatch(t, cat, testPipelineConfig(t), new(MockConverter))

	t.Run("stage request gets an id", func(t *testing.T) {
		streamRepo := new(MockStreamRepository)
		streamRepo.On("PublishToStream", ctx, domain.StreamConversionRequest, mock.MatchedBy(func(e *domain.ConversionRequestEvent) bool {
			return e.Region == "spt" && e.Stage == "range_feasibility" && e.RequestID != uuid.Nil
		})).Return(nil)

		uc := usecase.NewQueueUseCase(batch, streamRepo, zap.NewNop())
		event, err := uc.Enqueue(ctx, domain.ConversionRequestEvent{Region: "spt", Stage: "range_feasibility"})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, event.RequestID)
		streamRepo.AssertExpectations(t)
	})

	t.Run("overlay request keeps its id", func(t *testing.T) {
		id := uuid.New()
		streamRepo := new(MockStreamRepository)
		streamRepo.On("PublishToStream", ctx, domain.StreamConversionRequest, mock.Anything).Return(nil)

		uc := usecase.NewQueueUseCase(batch, streamRepo, zap.NewNop())
		event, err := uc.Enqueue(ctx, domain.ConversionRequestEvent{RequestID: id, Overlay: "chargers"})

		require.NoError(t, err)
		assert.Equal(t, id, event.RequestID)
	})

	t.Run("invalid requests are not published", func(t *testing.T) {
		streamRepo := new(MockStreamRepository)
		uc := usecase.NewQueueUseCase(batch, streamRepo, zap.NewNop())

		_, err := uc.Enqueue(ctx, domain.ConversionRequestEvent{Region: "spt"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

		_, err = uc.Enqueue(ctx, domain.ConversionRequestEvent{Region: "spt", Stage: "range_feasibility", Overlay: "chargers"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

		_, err = uc.Enqueue(ctx, domain.ConversionRequestEvent{Region: "atlantis", Stage: "range_feasibility"})
		assert.ErrorIs(t, err, apperrors.ErrRegionNotFound)

		_, err = uc.Enqueue(ctx, domain.ConversionRequestEvent{Overlay: "ferries"})
		assert.ErrorIs(t, err, apperrors.ErrOverlayNotFound)

		streamRepo.AssertNotCalled(t, "PublishToStream", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publish failure surfaces", func(t *testing.T) {
		streamRepo := new(MockStreamRepository)
		streamRepo.On("PublishToStream", ctx, domain.StreamConversionRequest, mock.Anything).Return(errors.New("redis down"))

		uc := usecase.NewQueueUseCase(batch, streamRepo, zap.NewNop())
		_, err := uc.Enqueue(ctx, domain.ConversionRequestEvent{Overlay: "chargers"})
		assert.ErrorContains(t, err, "redis down")
	})
}
