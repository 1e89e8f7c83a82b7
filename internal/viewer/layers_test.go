package viewer

import (
	"encoding/json"
	"testing"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceURL(t *testing.T) {
	assert.Equal(t,
		"pmtiles://https://tiles.example.org/ev/hitrans_range_feasibility.pmtiles",
		SourceURL("https://tiles.example.org/ev/", "hitrans_range_feasibility"),
	)
}

func TestStageLayers(t *testing.T) {
	scale := domain.ColorScale{
		ID:       "propensity",
		Kind:     domain.ScaleContinuous,
		Property: "adoption_score",
		Stops:    []domain.ColorStop{{Value: 0, Color: "#ffffff"}, {Value: 1, Color: "#000000"}},
	}

	t.Run("polygon gets fill and outline", func(t *testing.T) {
		layers := StageLayers("spt_adoption_propensity", domain.Stage{GeometryType: domain.GeometryPolygon}, scale)
		require.Len(t, layers, 2)
		assert.Equal(t, "fill", layers[0].Type)
		assert.Equal(t, "spt_adoption_propensity", layers[0].ID)
		assert.Equal(t, "spt_adoption_propensity", layers[0].SourceLayer)
		assert.Equal(t, "line", layers[1].Type)
		assert.Equal(t, "spt_adoption_propensity-outline", layers[1].ID)
		assert.Equal(t, "spt_adoption_propensity", layers[1].Source)
	})

	t.Run("line gets a single line layer", func(t *testing.T) {
		layers := StageLayers("spt_range_feasibility", domain.Stage{GeometryType: domain.GeometryLine}, scale)
		require.Len(t, layers, 1)
		assert.Equal(t, "line", layers[0].Type)
		assert.Equal(t, "spt_range_feasibility", layers[0].SourceLayer)
	})
}

func TestColorExpression(t *testing.T) {
	continuous := ColorExpression(domain.ColorScale{
		Kind:     domain.ScaleContinuous,
		Property: "score",
		Stops:    []domain.ColorStop{{Value: 0, Color: "#fff"}, {Value: 1, Color: "#000"}},
	})
	data, err := json.Marshal(continuous)
	require.NoError(t, err)
	assert.JSONEq(t,
		`["interpolate",["linear"],["to-number",["get","score"],0],0,"#fff",1,"#000"]`,
		string(data),
	)

	categorical := ColorExpression(domain.ColorScale{
		Kind:       domain.ScaleCategorical,
		Property:   "priority_class",
		Categories: []domain.Category{{Value: "High", Color: "#f00"}, {Value: "Low", Color: "#00f"}},
		Fallback:   "#ccc",
	})
	data, err = json.Marshal(categorical)
	require.NoError(t, err)
	assert.JSONEq(t,
		`["match",["to-string",["get","priority_class"]],"High","#f00","Low","#00f","#ccc"]`,
		string(data),
	)
}

func TestOverlayLayer(t *testing.T) {
	chargers := OverlayLayer(domain.Overlay{ID: "chargers", GeometryType: domain.GeometryPoint, Color: "#00a86b"}, nil)
	assert.Equal(t, "circle", chargers.Type)
	assert.Equal(t, "#00a86b", chargers.Paint["circle-color"])

	scale := &domain.ColorScale{Kind: domain.ScaleContinuous, Property: "v", Stops: []domain.ColorStop{{Value: 0, Color: "#fff"}}}
	cars := OverlayLayer(domain.Overlay{ID: "car_availability", GeometryType: domain.GeometryPolygon}, scale)
	assert.Equal(t, "fill", cars.Type)
	assert.Equal(t, "car_availability", cars.SourceLayer)
	assert.IsType(t, []interface{}{}, cars.Paint["fill-color"])
}

func TestBasemapStyle(t *testing.T) {
	remote := BasemapStyle(domain.Basemap{ID: "positron", StyleURL: "https://example.org/style.json"})
	data, err := json.Marshal(remote)
	require.NoError(t, err)
	assert.JSONEq(t, `"https://example.org/style.json"`, string(data))

	raster := BasemapStyle(domain.Basemap{
		ID: "osm",
		Raster: &domain.RasterBasemap{
			Tiles:       []string{"https://tile.example.org/{z}/{x}/{y}.png"},
			TileSize:    256,
			Attribution: "OSM",
		},
	})
	data, err = json.Marshal(raster)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"version": 8,
		"sources": {"basemap": {"type": "raster", "tiles": ["https://tile.example.org/{z}/{x}/{y}.png"], "tileSize": 256, "attribution": "OSM"}},
		"layers": [{"id": "basemap", "type": "raster", "source": "basemap"}]
	}`, string(data))
}

func TestStyle_RoundTrip(t *testing.T) {
	var remote Style
	require.NoError(t, json.Unmarshal([]byte(`"https://example.org/style.json"`), &remote))
	assert.Equal(t, "https://example.org/style.json", remote.URL)

	var inline Style
	require.NoError(t, json.Unmarshal([]byte(`{"version":8}`), &inline))
	assert.Empty(t, inline.URL)
	assert.Equal(t, float64(8), inline.Inline["version"])
}
