package viewer

import (
	"strings"

	"github.com/ev-tile-publisher/internal/domain"
)

const (
	outlineSuffix = "-outline"
	basemapSource = "basemap"
)

// OutlineID is the id of the outline layer paired with a polygon fill.
func OutlineID(id string) string {
	return id + outlineSuffix
}

// SourceURL addresses an archive through the pmtiles protocol handler.
func SourceURL(tileBase, key string) string {
	return "pmtiles://" + strings.TrimRight(tileBase, "/") + "/" + key + ".pmtiles"
}

// VectorSource is the source for one archive key.
func VectorSource(tileBase, key string) Source {
	return Source{Type: "vector", URL: SourceURL(tileBase, key)}
}

// ColorExpression builds the paint expression for a scale: interpolate for
// continuous scales, match with the fallback colour for categorical ones.
func ColorExpression(scale domain.ColorScale) interface{} {
	get := []interface{}{"get", scale.Property}

	if scale.Kind == domain.ScaleCategorical {
		expr := []interface{}{"match", []interface{}{"to-string", get}}
		for _, c := range scale.Categories {
			expr = append(expr, c.Value, c.Color)
		}
		return append(expr, scale.Fallback)
	}

	expr := []interface{}{"interpolate", []interface{}{"linear"}, []interface{}{"to-number", get, scale.Stops[0].Value}}
	for _, s := range scale.Stops {
		expr = append(expr, s.Value, s.Color)
	}
	return expr
}

// StageLayers returns the styled layers for a region/stage archive: a fill
// and an outline for polygons, a single line layer for lines.
func StageLayers(key string, stage domain.Stage, scale domain.ColorScale) []Layer {
	color := ColorExpression(scale)

	if stage.GeometryType == domain.GeometryLine {
		return []Layer{lineLayer(key, color)}
	}
	return []Layer{
		{
			ID:          key,
			Type:        "fill",
			Source:      key,
			SourceLayer: key,
			Paint: map[string]interface{}{
				"fill-color":   color,
				"fill-opacity": 0.7,
			},
		},
		{
			ID:          OutlineID(key),
			Type:        "line",
			Source:      key,
			SourceLayer: key,
			Paint: map[string]interface{}{
				"line-color":   "#ffffff",
				"line-width":   0.3,
				"line-opacity": 0.6,
			},
		},
	}
}

// OverlayLayer returns the single styled layer of an overlay.
func OverlayLayer(overlay domain.Overlay, scale *domain.ColorScale) Layer {
	var color interface{} = overlay.Color
	if scale != nil {
		color = ColorExpression(*scale)
	}

	switch overlay.GeometryType {
	case domain.GeometryPoint:
		return Layer{
			ID:          overlay.ID,
			Type:        "circle",
			Source:      overlay.ID,
			SourceLayer: overlay.ID,
			Paint: map[string]interface{}{
				"circle-color":        color,
				"circle-radius":       []interface{}{"interpolate", []interface{}{"linear"}, []interface{}{"zoom"}, 5, 2, 14, 6},
				"circle-stroke-color": "#ffffff",
				"circle-stroke-width": 1,
			},
		}
	case domain.GeometryLine:
		return lineLayer(overlay.ID, color)
	default:
		return Layer{
			ID:          overlay.ID,
			Type:        "fill",
			Source:      overlay.ID,
			SourceLayer: overlay.ID,
			Paint: map[string]interface{}{
				"fill-color":   color,
				"fill-opacity": 0.6,
			},
		}
	}
}

func lineLayer(key string, color interface{}) Layer {
	return Layer{
		ID:          key,
		Type:        "line",
		Source:      key,
		SourceLayer: key,
		Paint: map[string]interface{}{
			"line-color": color,
			"line-width": []interface{}{"interpolate", []interface{}{"linear"}, []interface{}{"zoom"}, 6, 0.5, 14, 2.5},
		},
		Layout: map[string]interface{}{
			"line-cap":  "round",
			"line-join": "round",
		},
	}
}

// BasemapStyle converts a basemap into a map style. Raster basemaps become
// a minimal inline style with a single raster layer.
func BasemapStyle(b domain.Basemap) Style {
	if b.StyleURL != "" {
		return Style{URL: b.StyleURL}
	}

	src := map[string]interface{}{
		"type":        "raster",
		"tiles":       b.Raster.Tiles,
		"tileSize":    b.Raster.TileSize,
		"attribution": b.Raster.Attribution,
	}
	if b.Raster.MaxZoom > 0 {
		src["maxzoom"] = b.Raster.MaxZoom
	}

	return Style{Inline: map[string]interface{}{
		"version": 8,
		"sources": map[string]interface{}{basemapSource: src},
		"layers": []interface{}{
			map[string]interface{}{"id": basemapSource, "type": "raster", "source": basemapSource},
		},
	}}
}
