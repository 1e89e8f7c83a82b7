package handler

import (
	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/pkg/errors"
	"github.com/ev-tile-publisher/internal/pkg/utils"
	"github.com/ev-tile-publisher/internal/pkg/validator"
	"github.com/ev-tile-publisher/internal/usecase"
	"github.com/ev-tile-publisher/internal/usecase/dto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PipelineHandler - published archives, run ledger and the conversion queue
type PipelineHandler struct {
	archiveUC *usecase.ArchiveUseCase
	runUC     *usecase.RunUseCase
	queueUC   *usecase.QueueUseCase
	logger    *zap.Logger
}

// NewPipelineHandler - queueUC may be nil when Redis is not configured
func NewPipelineHandler(
	archiveUC *usecase.ArchiveUseCase,
	runUC *usecase.RunUseCase,
	queueUC *usecase.QueueUseCase,
	logger *zap.Logger,
) *PipelineHandler {
	return &PipelineHandler{
		archiveUC: archiveUC,
		runUC:     runUC,
		queueUC:   queueUC,
		logger:    logger,
	}
}

// ListArchives godoc
// @Summary Published archives
// @Description Archives present in the output directory, mapped back to region, stage or overlay
// @Tags Pipeline
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=domain.ArchiveInventory}
// @Failure 500 {object} utils.ErrorResponse
// @Router /api/v1/archives [get]
func (h *PipelineHandler) ListArchives(c *fiber.Ctx) error {
	inv, err := h.archiveUC.List(c.Context())
	if err != nil {
		h.logger.Error("Failed to list archives", zap.Error(err))
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, inv, &utils.Meta{Total: len(inv.Archives)})
}

// ListRuns godoc
// @Summary Recent pipeline runs
// @Tags Pipeline
// @Produce json
// @Param limit query int false "Maximum runs" default(20)
// @Success 200 {object} utils.SuccessResponse{data=[]domain.RunReport}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/runs [get]
func (h *PipelineHandler) ListRuns(c *fiber.Ctx) error {
	req := dto.RunsQuery{Limit: c.QueryInt("limit", 20)}
	if err := validator.ValidateRequest(&req); err != nil {
		return utils.SendError(c, err)
	}

	runs, err := h.runUC.Recent(c.Context(), req.Limit)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, runs, &utils.Meta{Total: len(runs), Limit: req.Limit})
}

// GetRun godoc
// @Summary One pipeline run with per-item results
// @Tags Pipeline
// @Produce json
// @Param id path string true "Run id"
// @Success 200 {object} utils.SuccessResponse{data=domain.RunReport}
// @Failure 404 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/runs/{id} [get]
func (h *PipelineHandler) GetRun(c *fiber.Ctx) error {
	run, err := h.runUC.Get(c.Context(), c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, run, nil)
}

// Enqueue godoc
// @Summary Queue a conversion
// @Description Publishes a conversion request for the stream worker
// @Tags Pipeline
// @Accept json
// @Produce json
// @Param request body dto.EnqueueRequest true "Region and stage, or overlay"
// @Success 202 {object} utils.SuccessResponse{data=domain.ConversionRequestEvent}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Router /api/v1/conversions [post]
func (h *PipelineHandler) Enqueue(c *fiber.Ctx) error {
	if h.queueUC == nil {
		return utils.SendError(c, errors.ErrQueueDisabled)
	}

	var req dto.EnqueueRequest
	if err := parse(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	event, err := h.queueUC.Enqueue(c.Context(), domain.ConversionRequestEvent{
		Region:  req.Region,
		Stage:   req.Stage,
		Overlay: req.Overlay,
	})
	if err != nil {
		h.logger.Warn("Failed to enqueue conversion", zap.Error(err))
		return utils.SendError(c, err)
	}

	return utils.SendAccepted(c, event)
}
