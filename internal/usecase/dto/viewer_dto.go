package dto

import (
	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/viewer"
)

// ConfigResponse - static viewer configuration with the effective
// availability list
type ConfigResponse struct {
	TileBaseURL string              `json:"tile_base_url"`
	Defaults    domain.Defaults     `json:"defaults"`
	Regions     []domain.Region     `json:"regions"`
	Stages      []domain.Stage      `json:"stages"`
	Overlays    []domain.Overlay    `json:"overlays"`
	Basemaps    []domain.Basemap    `json:"basemaps"`
	ColorScales []domain.ColorScale `json:"color_scales"`
	Available   []string            `json:"available"`
}

// LegendQuery - GET /legend parameters
type LegendQuery struct {
	Stage    string   `validate:"required"`
	Overlays []string `validate:"omitempty,dive,required"`
}

// SessionResponse - session state after an event, with the map ops the
// client must replay in order
type SessionResponse struct {
	ID        string            `json:"id"`
	Selection viewer.Selection  `json:"selection"`
	Ops       []viewer.Op       `json:"ops"`
	Legend    []viewer.Legend   `json:"legend"`
	Panel     *viewer.InfoPanel `json:"panel,omitempty"`
}

type RegionRequest struct {
	Region string `json:"region" validate:"required"`
}

type StageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

// BasemapRequest - Camera is the client's current view, restored after the
// style reloads
type BasemapRequest struct {
	Basemap string         `json:"basemap" validate:"required"`
	Camera  *domain.Camera `json:"camera,omitempty"`
}

type ToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ClickRequest - click position plus the features the client rendered
// under it
type ClickRequest struct {
	Point    domain.Point     `json:"point"`
	Camera   *domain.Camera   `json:"camera,omitempty"`
	Features []viewer.Feature `json:"features" validate:"omitempty,max=500,dive"`
}

// RenderedRequest - features the client saw rendered, for legend fallback
// detection
type RenderedRequest struct {
	Features []viewer.Feature `json:"features" validate:"required,max=5000,dive"`
}
