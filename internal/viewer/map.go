// Package viewer holds the map viewer's selection state machine. A Session
// drives a Map the way the browser UI drives its map instance: adding and
// removing tile sources and styled layers as the region, stage, basemap and
// overlay selection changes.
package viewer

import (
	"encoding/json"
	"errors"

	"github.com/ev-tile-publisher/internal/domain"
)

var (
	ErrSourceExists   = errors.New("source already exists")
	ErrSourceNotFound = errors.New("source not found")
	ErrSourceInUse    = errors.New("source is used by a layer")
	ErrLayerExists    = errors.New("layer already exists")
	ErrLayerNotFound  = errors.New("layer not found")
	ErrStyleLoading   = errors.New("style is not done loading")
)

// Source is a map source definition.
type Source struct {
	Type        string   `json:"type"`
	URL         string   `json:"url,omitempty"`
	Tiles       []string `json:"tiles,omitempty"`
	TileSize    int      `json:"tileSize,omitempty"`
	MaxZoom     int      `json:"maxzoom,omitempty"`
	Attribution string   `json:"attribution,omitempty"`
}

// Layer is a styled map layer bound to a source.
type Layer struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Source      string                 `json:"source"`
	SourceLayer string                 `json:"source-layer,omitempty"`
	Paint       map[string]interface{} `json:"paint,omitempty"`
	Layout      map[string]interface{} `json:"layout,omitempty"`
}

// Style is either a remote style document URL or an inline style object.
type Style struct {
	URL    string
	Inline map[string]interface{}
}

func (s Style) MarshalJSON() ([]byte, error) {
	if s.URL != "" {
		return json.Marshal(s.URL)
	}
	return json.Marshal(s.Inline)
}

func (s *Style) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.URL)
	}
	return json.Unmarshal(data, &s.Inline)
}

// Feature is a rendered feature hit returned by a point query.
type Feature struct {
	LayerID    string                 `json:"layer" validate:"required"`
	Properties map[string]interface{} `json:"properties"`
}

// Map is the subset of the rendering engine's map API the session uses.
// Add and remove calls fail the way the engine does on duplicates and
// missing ids; the session guards them with HasSource/HasLayer.
type Map interface {
	HasSource(id string) bool
	HasLayer(id string) bool
	AddSource(id string, src Source) error
	RemoveSource(id string) error
	AddLayer(layer Layer) error
	RemoveLayer(id string) error

	// SetStyle replaces the style, dropping every added source and layer.
	SetStyle(style Style)
	// OnceStyleLoad runs fn once, after the next style finished loading.
	OnceStyleLoad(fn func())

	Camera() domain.Camera
	FlyTo(cam domain.Camera)
	JumpTo(cam domain.Camera)

	QueryRenderedFeatures(p domain.Point, layerIDs []string) []Feature
}
