package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testCatalog() *Catalog {
	c := &Catalog{
		Stages: []Stage{
			{ID: "adoption_propensity", GeometryType: GeometryPolygon, Scale: "propensity"},
			{ID: "range_feasibility", GeometryType: GeometryLine, Scale: "feasibility"},
		},
		Regions: []Region{
			{ID: "sestran", Name: "SEStran"},
			{ID: "spt", Name: "SPT"},
		},
		Overlays:  []Overlay{{ID: "car_availability", Title: "Car availability"}},
		Available: []string{"sestran_adoption_propensity"},
		Sampling: SamplingPolicy{Thresholds: []SampleThreshold{
			{MinBytes: 1, Rate: 0.5},
			{MinBytes: 100, Rate: 0.1},
		}},
	}
	c.Index()
	return c
}

func TestCatalog_Index(t *testing.T) {
	c := testCatalog()

	_, ok := c.Stage("range_feasibility")
	assert.True(t, ok)
	_, ok = c.Region("hitrans")
	assert.False(t, ok)

	assert.Equal(t, int64(100), c.Sampling.Thresholds[0].MinBytes, "thresholds sorted descending")
}

func TestCatalog_WithAvailable(t *testing.T) {
	c := testCatalog()
	merged := c.WithAvailable([]string{"spt_range_feasibility", "sestran_adoption_propensity"})

	assert.True(t, merged.IsAvailable("spt_range_feasibility"))
	assert.True(t, merged.IsAvailable("sestran_adoption_propensity"))
	assert.Len(t, merged.Available, 2)
	assert.False(t, c.IsAvailable("spt_range_feasibility"), "original catalog untouched")
}

func TestCatalog_ParseArchiveKey(t *testing.T) {
	c := testCatalog()

	region, stage, ok := c.ParseArchiveKey(ArchiveKey("spt", "range_feasibility"))
	assert.True(t, ok)
	assert.Equal(t, "spt", region)
	assert.Equal(t, "range_feasibility", stage)

	region, stage, ok = c.ParseArchiveKey("car_availability")
	assert.True(t, ok)
	assert.Empty(t, region)
	assert.Equal(t, "car_availability", stage)

	_, _, ok = c.ParseArchiveKey("spt_unknown_stage")
	assert.False(t, ok)
}

func TestCatalog_RegionIDs(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, []string{"sestran", "spt"}, c.RegionIDs(RegionAll))
	assert.Equal(t, []string{"spt"}, c.RegionIDs("spt"))
}

func TestColorScale_CategoryColor(t *testing.T) {
	s := ColorScale{
		Kind:       ScaleCategorical,
		Categories: []Category{{Value: "High", Color: "#ff0000"}},
		Fallback:   "#cccccc",
	}

	color, ok := s.CategoryColor("High")
	assert.True(t, ok)
	assert.Equal(t, "#ff0000", color)

	color, ok = s.CategoryColor("Unknown")
	assert.False(t, ok)
	assert.Equal(t, "#cccccc", color)
}

func TestParseGeometryType(t *testing.T) {
	g, ok := ParseGeometryType("MULTIPOLYGON")
	assert.True(t, ok)
	assert.Equal(t, GeometryPolygon, g)

	g, ok = ParseGeometryType("LINESTRING")
	assert.True(t, ok)
	assert.Equal(t, GeometryLine, g)

	_, ok = ParseGeometryType("GEOMETRY")
	assert.False(t, ok)
}
