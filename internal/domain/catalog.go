package domain

import (
	"sort"
	"strings"
)

// RegionAll selects every region at once in the viewer.
const RegionAll = "all"

// ScaleKind distinguishes interpolated from categorical colour scales.
type ScaleKind string

const (
	ScaleContinuous  ScaleKind = "continuous"
	ScaleCategorical ScaleKind = "categorical"
)

type ColorStop struct {
	Value float64 `json:"value" yaml:"value"`
	Color string  `json:"color" yaml:"color" validate:"required,hexcolor"`
}

type ScaleLabels struct {
	Min string `json:"min" yaml:"min" validate:"required"`
	Mid string `json:"mid" yaml:"mid" validate:"required"`
	Max string `json:"max" yaml:"max" validate:"required"`
}

type Category struct {
	Value string `json:"value" yaml:"value" validate:"required"`
	Label string `json:"label" yaml:"label"`
	Color string `json:"color" yaml:"color" validate:"required,hexcolor"`
}

// ColorScale is a declared colour mapping for one feature property.
type ColorScale struct {
	ID         string       `json:"id" yaml:"id" validate:"required"`
	Kind       ScaleKind    `json:"kind" yaml:"kind" validate:"required,oneof=continuous categorical"`
	Property   string       `json:"property" yaml:"property" validate:"required"`
	Stops      []ColorStop  `json:"stops,omitempty" yaml:"stops" validate:"dive"`
	Labels     *ScaleLabels `json:"labels,omitempty" yaml:"labels"`
	Categories []Category   `json:"categories,omitempty" yaml:"categories" validate:"dive"`
	Fallback   string       `json:"fallback,omitempty" yaml:"fallback" validate:"omitempty,hexcolor"`
}

// CategoryColor returns the declared colour for value and whether the value
// is covered by the category map. Unmapped values get the fallback colour.
func (s ColorScale) CategoryColor(value string) (string, bool) {
	for _, c := range s.Categories {
		if c.Value == value {
			return c.Color, true
		}
	}
	return s.Fallback, false
}

// Stage is one analysis layer with its own column slice and colour scale.
type Stage struct {
	ID            string       `json:"id" yaml:"id" validate:"required"`
	Title         string       `json:"title" yaml:"title" validate:"required"`
	GeometryType  GeometryType `json:"geometry_type" yaml:"geometry_type" validate:"required,oneof=polygon line"`
	Columns       *ColumnRange `json:"columns,omitempty" yaml:"columns"`
	Scale         string       `json:"scale" yaml:"scale" validate:"required"`
	LegendTitle   string       `json:"legend_title" yaml:"legend_title"`
	KeyProperties []string     `json:"key_properties,omitempty" yaml:"key_properties"`
}

// Region is a geographic partition of the dataset.
type Region struct {
	ID     string   `json:"id" yaml:"id" validate:"required,alphanum"`
	Name   string   `json:"name" yaml:"name" validate:"required"`
	Camera Camera   `json:"camera" yaml:"camera"`
	Stages []string `json:"stages" yaml:"stages"`
}

// Overlay is a region-independent supplementary layer.
type Overlay struct {
	ID           string       `json:"id" yaml:"id" validate:"required"`
	Title        string       `json:"title" yaml:"title" validate:"required"`
	GeometryType GeometryType `json:"geometry_type" yaml:"geometry_type" validate:"required,oneof=polygon line point"`
	Source       string       `json:"-" yaml:"source" validate:"required"`
	Columns      *ColumnRange `json:"-" yaml:"columns"`
	Scale        string       `json:"scale,omitempty" yaml:"scale"`
	Color        string       `json:"color,omitempty" yaml:"color" validate:"omitempty,hexcolor"`
}

type RasterBasemap struct {
	Tiles       []string `json:"tiles" yaml:"tiles" validate:"required,min=1,dive,url"`
	TileSize    int      `json:"tile_size" yaml:"tile_size" validate:"required,oneof=256 512"`
	Attribution string   `json:"attribution" yaml:"attribution"`
	MaxZoom     int      `json:"max_zoom,omitempty" yaml:"max_zoom"`
}

// Basemap is either a remote style document or an inline raster spec.
type Basemap struct {
	ID       string         `json:"id" yaml:"id" validate:"required"`
	Name     string         `json:"name" yaml:"name" validate:"required"`
	StyleURL string         `json:"style_url,omitempty" yaml:"style_url" validate:"omitempty,url"`
	Raster   *RasterBasemap `json:"raster,omitempty" yaml:"raster"`
}

type Defaults struct {
	Region  string `json:"region" yaml:"region" validate:"required"`
	Stage   string `json:"stage" yaml:"stage" validate:"required"`
	Basemap string `json:"basemap" yaml:"basemap" validate:"required"`
	Camera  Camera `json:"camera" yaml:"camera"`
}

// Catalog holds every static table: stages, regions, overlays, basemaps,
// colour scales, the sampling policy and the declared archive keys.
// It is built once at start-up and never mutated afterwards.
type Catalog struct {
	Defaults    Defaults       `json:"defaults" yaml:"defaults"`
	Stages      []Stage        `json:"stages" yaml:"stages" validate:"required,min=1,dive"`
	Regions     []Region       `json:"regions" yaml:"regions" validate:"required,min=1,dive"`
	Overlays    []Overlay      `json:"overlays" yaml:"overlays" validate:"dive"`
	Basemaps    []Basemap      `json:"basemaps" yaml:"basemaps" validate:"required,min=1,dive"`
	ColorScales []ColorScale   `json:"color_scales" yaml:"color_scales" validate:"required,min=1,dive"`
	Sampling    SamplingPolicy `json:"-" yaml:"sampling"`
	Available   []string       `json:"available" yaml:"available"`

	stages    map[string]Stage
	regions   map[string]Region
	overlays  map[string]Overlay
	basemaps  map[string]Basemap
	scales    map[string]ColorScale
	available map[string]struct{}
}

// Index builds the lookup maps. Thresholds are sorted descending by size.
func (c *Catalog) Index() {
	c.stages = make(map[string]Stage, len(c.Stages))
	for _, s := range c.Stages {
		c.stages[s.ID] = s
	}
	c.regions = make(map[string]Region, len(c.Regions))
	for _, r := range c.Regions {
		c.regions[r.ID] = r
	}
	c.overlays = make(map[string]Overlay, len(c.Overlays))
	for _, o := range c.Overlays {
		c.overlays[o.ID] = o
	}
	c.basemaps = make(map[string]Basemap, len(c.Basemaps))
	for _, b := range c.Basemaps {
		c.basemaps[b.ID] = b
	}
	c.scales = make(map[string]ColorScale, len(c.ColorScales))
	for _, s := range c.ColorScales {
		c.scales[s.ID] = s
	}
	c.available = make(map[string]struct{}, len(c.Available))
	for _, k := range c.Available {
		c.available[k] = struct{}{}
	}
	sort.SliceStable(c.Sampling.Thresholds, func(i, j int) bool {
		return c.Sampling.Thresholds[i].MinBytes > c.Sampling.Thresholds[j].MinBytes
	})
}

func (c *Catalog) Stage(id string) (Stage, bool) {
	s, ok := c.stages[id]
	return s, ok
}

func (c *Catalog) Region(id string) (Region, bool) {
	r, ok := c.regions[id]
	return r, ok
}

func (c *Catalog) Overlay(id string) (Overlay, bool) {
	o, ok := c.overlays[id]
	return o, ok
}

func (c *Catalog) Basemap(id string) (Basemap, bool) {
	b, ok := c.basemaps[id]
	return b, ok
}

func (c *Catalog) Scale(id string) (ColorScale, bool) {
	s, ok := c.scales[id]
	return s, ok
}

// IsAvailable reports whether an archive key is declared available.
func (c *Catalog) IsAvailable(key string) bool {
	_, ok := c.available[key]
	return ok
}

// WithAvailable returns a copy whose availability set also contains keys.
func (c *Catalog) WithAvailable(keys []string) *Catalog {
	cp := *c
	merged := make(map[string]struct{}, len(c.available)+len(keys))
	for k := range c.available {
		merged[k] = struct{}{}
	}
	for _, k := range keys {
		merged[k] = struct{}{}
	}
	cp.Available = make([]string, 0, len(merged))
	for k := range merged {
		cp.Available = append(cp.Available, k)
	}
	sort.Strings(cp.Available)
	cp.available = merged
	return &cp
}

// RegionIDs returns the ids selected by a region choice: every region for
// RegionAll, otherwise just the one.
func (c *Catalog) RegionIDs(choice string) []string {
	if choice != RegionAll {
		return []string{choice}
	}
	ids := make([]string, 0, len(c.Regions))
	for _, r := range c.Regions {
		ids = append(ids, r.ID)
	}
	return ids
}

// ArchiveKey names the archive for a region/stage pairing. The key doubles as
// file stem and source-layer name.
func ArchiveKey(region, stage string) string {
	return region + "_" + stage
}

// ParseArchiveKey splits a key back into region and stage using the catalog,
// since stage ids themselves contain underscores. Overlay keys return the
// overlay id in stage with an empty region.
func (c *Catalog) ParseArchiveKey(key string) (region, stage string, ok bool) {
	if _, isOverlay := c.overlays[key]; isOverlay {
		return "", key, true
	}
	for _, r := range c.Regions {
		prefix := r.ID + "_"
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if _, known := c.stages[strings.TrimPrefix(key, prefix)]; known {
			return r.ID, strings.TrimPrefix(key, prefix), true
		}
	}
	return "", "", false
}
