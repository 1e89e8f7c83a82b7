package handler

import (
	"strings"

	"github.com/ev-tile-publisher/internal/pkg/errors"
	"github.com/ev-tile-publisher/internal/pkg/utils"
	"github.com/ev-tile-publisher/internal/pkg/validator"
	"github.com/ev-tile-publisher/internal/usecase"
	"github.com/ev-tile-publisher/internal/usecase/dto"
	"github.com/ev-tile-publisher/internal/viewer"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ViewerHandler - viewer configuration and selection sessions
type ViewerHandler struct {
	catalogUC   *usecase.CatalogUseCase
	store       *viewer.Store
	tileBaseURL string
	logger      *zap.Logger
}

func NewViewerHandler(
	catalogUC *usecase.CatalogUseCase,
	store *viewer.Store,
	tileBaseURL string,
	logger *zap.Logger,
) *ViewerHandler {
	return &ViewerHandler{
		catalogUC:   catalogUC,
		store:       store,
		tileBaseURL: tileBaseURL,
		logger:      logger,
	}
}

// GetConfig godoc
// @Summary Viewer configuration
// @Description Regions, stages, overlays, basemaps, colour scales and the archive keys the viewer may request
// @Tags Viewer
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=dto.ConfigResponse}
// @Router /api/v1/config [get]
func (h *ViewerHandler) GetConfig(c *fiber.Ctx) error {
	cat := h.catalogUC.Current(c.Context())

	return utils.SendSuccess(c, dto.ConfigResponse{
		TileBaseURL: h.tileBaseURL,
		Defaults:    cat.Defaults,
		Regions:     cat.Regions,
		Stages:      cat.Stages,
		Overlays:    cat.Overlays,
		Basemaps:    cat.Basemaps,
		ColorScales: cat.ColorScales,
		Available:   cat.Available,
	}, nil)
}

// GetLegend godoc
// @Summary Legend for a stage and overlays
// @Tags Viewer
// @Produce json
// @Param stage query string true "Stage id"
// @Param overlays query string false "Comma-separated overlay ids"
// @Success 200 {object} utils.SuccessResponse{data=[]viewer.Legend}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/legend [get]
func (h *ViewerHandler) GetLegend(c *fiber.Ctx) error {
	req := dto.LegendQuery{Stage: c.Query("stage")}
	if raw := c.Query("overlays"); raw != "" {
		req.Overlays = strings.Split(raw, ",")
	}
	if err := validator.ValidateRequest(&req); err != nil {
		return utils.SendError(c, err)
	}

	legends, err := viewer.BuildLegends(h.catalogUC.Current(c.Context()), req.Stage, req.Overlays, nil)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, legends, &utils.Meta{Total: len(legends)})
}

// CreateSession godoc
// @Summary Start a viewer session
// @Description Creates a selection session on the default region, stage and basemap. The returned ops start with setStyle; report style-loaded to receive the layer ops.
// @Tags Sessions
// @Produce json
// @Success 201 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Router /api/v1/sessions [post]
func (h *ViewerHandler) CreateSession(c *fiber.Ctx) error {
	v, err := h.store.Create(h.catalogUC.Current(c.Context()))
	if err != nil {
		h.logger.Error("Failed to create viewer session", zap.Error(err))
		return utils.SendError(c, err)
	}

	var resp dto.SessionResponse
	err = h.store.With(v.ID, func(v *viewer.View) error {
		resp, err = snapshot(v)
		return err
	})
	if err != nil {
		return utils.SendError(c, err)
	}

	return utils.SendCreated(c, resp)
}

// DeleteSession godoc
// @Summary End a viewer session
// @Tags Sessions
// @Param id path string true "Session id"
// @Success 204
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id} [delete]
func (h *ViewerHandler) DeleteSession(c *fiber.Ctx) error {
	if err := h.store.Delete(c.Params("id")); err != nil {
		return utils.SendError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSession godoc
// @Summary Current session state and pending ops
// @Tags Sessions
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id} [get]
func (h *ViewerHandler) GetSession(c *fiber.Ctx) error {
	return h.apply(c, func(*viewer.View) error { return nil })
}

// SetRegion godoc
// @Summary Change region
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body dto.RegionRequest true "Region id or all"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/region [post]
func (h *ViewerHandler) SetRegion(c *fiber.Ctx) error {
	var req dto.RegionRequest
	if err := parse(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	return h.apply(c, func(v *viewer.View) error {
		return v.Session.SetRegion(req.Region)
	})
}

// SetStage godoc
// @Summary Change stage
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body dto.StageRequest true "Stage id"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/stage [post]
func (h *ViewerHandler) SetStage(c *fiber.Ctx) error {
	var req dto.StageRequest
	if err := parse(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	return h.apply(c, func(v *viewer.View) error {
		return v.Session.SetStage(req.Stage)
	})
}

// SetBasemap godoc
// @Summary Change basemap
// @Description Replaces the style. Layers come back in the ops returned by style-loaded.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body dto.BasemapRequest true "Basemap id and current camera"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/basemap [post]
func (h *ViewerHandler) SetBasemap(c *fiber.Ctx) error {
	var req dto.BasemapRequest
	if err := parse(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	return h.apply(c, func(v *viewer.View) error {
		if req.Camera != nil {
			v.Mirror.SetCamera(*req.Camera)
		}
		return v.Session.SetBasemap(req.Basemap)
	})
}

// StyleLoaded godoc
// @Summary Report style load completion
// @Tags Sessions
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/style-loaded [post]
func (h *ViewerHandler) StyleLoaded(c *fiber.Ctx) error {
	return h.apply(c, func(v *viewer.View) error {
		v.Mirror.StyleLoaded()
		return nil
	})
}

// SetAnalysis godoc
// @Summary Show or hide analysis layers
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body dto.ToggleRequest true "Enabled flag"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/analysis [post]
func (h *ViewerHandler) SetAnalysis(c *fiber.Ctx) error {
	var req dto.ToggleRequest
	if err := parse(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	return h.apply(c, func(v *viewer.View) error {
		v.Session.SetAnalysisEnabled(*req.Enabled)
		return nil
	})
}

// SetOverlay godoc
// @Summary Toggle an overlay
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param overlay path string true "Overlay id"
// @Param request body dto.ToggleRequest true "Enabled flag"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/overlays/{overlay} [post]
func (h *ViewerHandler) SetOverlay(c *fiber.Ctx) error {
	var req dto.ToggleRequest
	if err := parse(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	overlay := c.Params("overlay")
	return h.apply(c, func(v *viewer.View) error {
		return v.Session.SetOverlay(overlay, *req.Enabled)
	})
}

// Click godoc
// @Summary Map click
// @Description Resolves the info panel from the features the client rendered under the click point. No panel means hide it.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body dto.ClickRequest true "Click point and rendered features"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/click [post]
func (h *ViewerHandler) Click(c *fiber.Ctx) error {
	var req dto.ClickRequest
	if err := parse(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	var resp dto.SessionResponse
	err := h.store.With(c.Params("id"), func(v *viewer.View) error {
		if req.Camera != nil {
			v.Mirror.SetCamera(*req.Camera)
		}
		v.Mirror.SetRenderedFeatures(req.Features)
		panel := v.Session.Click(req.Point)
		v.Mirror.SetRenderedFeatures(nil)

		var err error
		resp, err = snapshot(v)
		resp.Panel = panel
		return err
	})
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resp, nil)
}

// Rendered godoc
// @Summary Report rendered features
// @Description Lets the legend add its fallback row once a value outside the category map is rendered.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body dto.RenderedRequest true "Rendered features"
// @Success 200 {object} utils.SuccessResponse{data=dto.SessionResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/sessions/{id}/rendered [post]
func (h *ViewerHandler) Rendered(c *fiber.Ctx) error {
	var req dto.RenderedRequest
	if err := parse(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	return h.apply(c, func(v *viewer.View) error {
		v.Session.Observe(req.Features)
		return nil
	})
}

// apply runs one event against the session and responds with the new state.
func (h *ViewerHandler) apply(c *fiber.Ctx, event func(v *viewer.View) error) error {
	id := c.Params("id")

	var resp dto.SessionResponse
	err := h.store.With(id, func(v *viewer.View) error {
		if err := event(v); err != nil {
			return err
		}
		var err error
		resp, err = snapshot(v)
		return err
	})
	if err != nil {
		h.logger.Debug("Session event rejected", zap.String("session_id", id), zap.Error(err))
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resp, nil)
}

func snapshot(v *viewer.View) (dto.SessionResponse, error) {
	legend, err := v.Session.Legend()
	if err != nil {
		return dto.SessionResponse{}, err
	}
	return dto.SessionResponse{
		ID:        v.ID,
		Selection: v.Session.Selection(),
		Ops:       v.Mirror.Drain(),
		Legend:    legend,
	}, nil
}

// parse decodes and validates a JSON body.
func parse(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return errors.ErrInvalidRequest.WithDetails(map[string]interface{}{"body": "invalid JSON"})
	}
	return validator.ValidateRequest(req)
}
