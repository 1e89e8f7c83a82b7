package usecase

import (
	"context"
	"fmt"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/domain/repository"
	apperrors "github.com/ev-tile-publisher/internal/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ItemPlanner resolves stream requests into conversion items.
type ItemPlanner interface {
	StageItem(regionID, stageID string) (domain.ConversionItem, error)
	OverlayItem(overlayID string) (domain.ConversionItem, error)
}

// QueueUseCase publishes conversion requests for the stream worker.
type QueueUseCase struct {
	planner    ItemPlanner
	streamRepo repository.StreamRepository
	logger     *zap.Logger
}

func NewQueueUseCase(planner ItemPlanner, streamRepo repository.StreamRepository, logger *zap.Logger) *QueueUseCase {
	return &QueueUseCase{
		planner:    planner,
		streamRepo: streamRepo,
		logger:     logger,
	}
}

// Resolve maps a request onto the item it describes.
func (uc *QueueUseCase) Resolve(event *domain.ConversionRequestEvent) (domain.ConversionItem, error) {
	switch {
	case event.IsOverlay() && event.Stage == "" && event.Region == "":
		return uc.planner.OverlayItem(event.Overlay)
	case !event.IsOverlay() && event.Region != "" && event.Stage != "":
		return uc.planner.StageItem(event.Region, event.Stage)
	}
	return domain.ConversionItem{}, apperrors.ErrInvalidRequest.WithDetails(map[string]interface{}{
		"reason": "either overlay or region and stage are required",
	})
}

// Enqueue validates the request against the catalog and publishes it.
// A request id is assigned when missing.
func (uc *QueueUseCase) Enqueue(ctx context.Context, event domain.ConversionRequestEvent) (*domain.ConversionRequestEvent, error) {
	item, err := uc.Resolve(&event)
	if err != nil {
		return nil, err
	}
	if event.RequestID == uuid.Nil {
		event.RequestID = uuid.New()
	}

	if err := uc.streamRepo.PublishToStream(ctx, domain.StreamConversionRequest, &event); err != nil {
		return nil, fmt.Errorf("publish conversion request: %w", err)
	}

	uc.logger.Info("Conversion request enqueued",
		zap.String("request_id", event.RequestID.String()),
		zap.String("archive_key", item.Key),
	)
	return &event, nil
}
