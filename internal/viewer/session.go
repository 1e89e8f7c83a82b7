package viewer

import (
	stderrors "errors"
	"fmt"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/ev-tile-publisher/internal/pkg/errors"
	"go.uber.org/zap"
)

// Selection is the user-visible state of one viewer.
type Selection struct {
	Region       string   `json:"region"`
	Stage        string   `json:"stage"`
	Basemap      string   `json:"basemap"`
	Overlays     []string `json:"overlays"`
	Analysis     bool     `json:"analysis"`
	ActiveLayers []string `json:"active_layers"`
}

// Session drives a Map from discrete UI events. It is not safe for
// concurrent use; callers serialize access per session.
type Session struct {
	catalog  *domain.Catalog
	m        Map
	tileBase string
	logger   *zap.Logger

	region   string
	stage    string
	basemap  string
	analysis bool
	overlays map[string]bool

	// analysis archive keys currently on the map, in add order
	active []string
	// categorical values seen in rendered data, per scale id
	observed map[string]map[string]struct{}
}

// NewSession starts from the catalog defaults with analysis layers enabled.
func NewSession(catalog *domain.Catalog, m Map, tileBase string, logger *zap.Logger) *Session {
	return &Session{
		catalog:  catalog,
		m:        m,
		tileBase: tileBase,
		logger:   logger,
		region:   catalog.Defaults.Region,
		stage:    catalog.Defaults.Stage,
		basemap:  catalog.Defaults.Basemap,
		analysis: true,
		overlays: make(map[string]bool),
		observed: make(map[string]map[string]struct{}),
	}
}

// Start loads the initial basemap. Layers are added once the style reports
// loaded.
func (s *Session) Start() error {
	b, ok := s.catalog.Basemap(s.basemap)
	if !ok {
		return errBasemap(s.basemap)
	}
	cam := s.regionCamera(s.region)
	s.m.SetStyle(BasemapStyle(b))
	s.m.OnceStyleLoad(func() {
		s.m.JumpTo(cam)
		s.addAll()
	})
	return nil
}

func (s *Session) Selection() Selection {
	return Selection{
		Region:       s.region,
		Stage:        s.stage,
		Basemap:      s.basemap,
		Overlays:     sortedKeys(s.overlays),
		Analysis:     s.analysis,
		ActiveLayers: s.activeLayerIDs(),
	}
}

// SetRegion swaps the analysis layers to the new region choice and flies to
// its camera, or to the default camera for RegionAll.
func (s *Session) SetRegion(region string) error {
	if region != domain.RegionAll {
		if _, ok := s.catalog.Region(region); !ok {
			return errors.ErrRegionNotFound.WithDetails(map[string]interface{}{"region": region})
		}
	}

	s.clearAnalysis()
	s.region = region
	if s.analysis {
		s.addAnalysis()
	}
	s.m.FlyTo(s.regionCamera(region))
	return nil
}

func (s *Session) SetStage(stage string) error {
	if _, ok := s.catalog.Stage(stage); !ok {
		return errStage(stage)
	}

	s.clearAnalysis()
	s.stage = stage
	if s.analysis {
		s.addAnalysis()
	}
	return nil
}

// SetBasemap replaces the style. Every source and layer is wiped by the
// style change, so the camera and all toggled layers are restored after the
// next style load. The camera restored is the one current at load time, so
// a region change made while loading wins.
func (s *Session) SetBasemap(id string) error {
	b, ok := s.catalog.Basemap(id)
	if !ok {
		return errBasemap(id)
	}
	if id == s.basemap {
		return nil
	}

	s.basemap = id
	s.active = nil
	s.m.SetStyle(BasemapStyle(b))
	s.m.OnceStyleLoad(func() {
		s.m.JumpTo(s.m.Camera())
		s.addAll()
	})
	return nil
}

// SetOverlay toggles one overlay without touching analysis layers.
func (s *Session) SetOverlay(id string, on bool) error {
	o, ok := s.catalog.Overlay(id)
	if !ok {
		return errOverlay(id)
	}

	if !on {
		delete(s.overlays, id)
		return s.removeKey(id)
	}
	s.overlays[id] = true
	return s.addOverlay(o)
}

func (s *Session) SetAnalysisEnabled(on bool) {
	if on == s.analysis {
		return
	}
	s.analysis = on
	if on {
		s.addAnalysis()
		return
	}
	s.clearAnalysis()
}

// Click returns the info panel for the first feature under p, or nil when
// nothing active was hit.
func (s *Session) Click(p domain.Point) *InfoPanel {
	hits := s.m.QueryRenderedFeatures(p, s.activeLayerIDs())
	if len(hits) == 0 {
		return nil
	}
	s.Observe(hits)

	first := hits[0]
	panel := &InfoPanel{Layer: first.LayerID}

	if o, ok := s.catalog.Overlay(first.LayerID); ok {
		panel.Title = o.Title
		panel.Rows = InfoRows(first.Properties, nil)
		return panel
	}

	stage, _ := s.catalog.Stage(s.stage)
	panel.Title = stage.Title
	if regionID, _, ok := s.catalog.ParseArchiveKey(first.LayerID); ok {
		if r, found := s.catalog.Region(regionID); found {
			panel.Title = fmt.Sprintf("%s (%s)", stage.Title, r.Name)
		}
	}
	panel.Rows = InfoRows(first.Properties, stage.KeyProperties)
	return panel
}

// Observe records categorical values found in rendered features so the
// legend can show the fallback row once an unmapped value appears.
func (s *Session) Observe(features []Feature) {
	for _, f := range features {
		scale, ok := s.scaleFor(f.LayerID)
		if !ok || scale.Kind != domain.ScaleCategorical {
			continue
		}
		v, present := f.Properties[scale.Property]
		if !present || v == nil {
			continue
		}
		seen := s.observed[scale.ID]
		if seen == nil {
			seen = make(map[string]struct{})
			s.observed[scale.ID] = seen
		}
		seen[fmt.Sprint(v)] = struct{}{}
	}
}

func (s *Session) Legend() ([]Legend, error) {
	return BuildLegends(s.catalog, s.stage, sortedKeys(s.overlays), s.observed)
}

func (s *Session) scaleFor(layerID string) (domain.ColorScale, bool) {
	if o, ok := s.catalog.Overlay(layerID); ok {
		if o.Scale == "" {
			return domain.ColorScale{}, false
		}
		return s.catalog.Scale(o.Scale)
	}
	stage, ok := s.catalog.Stage(s.stage)
	if !ok {
		return domain.ColorScale{}, false
	}
	return s.catalog.Scale(stage.Scale)
}

func (s *Session) regionCamera(region string) domain.Camera {
	if r, ok := s.catalog.Region(region); ok {
		return r.Camera
	}
	return s.catalog.Defaults.Camera
}

func (s *Session) activeLayerIDs() []string {
	ids := make([]string, 0, len(s.active)+len(s.overlays))
	for _, key := range s.active {
		if s.m.HasLayer(key) {
			ids = append(ids, key)
		}
	}
	for _, id := range sortedKeys(s.overlays) {
		if s.m.HasLayer(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Session) addAll() {
	if s.analysis {
		s.addAnalysis()
	}
	for _, id := range sortedKeys(s.overlays) {
		o, _ := s.catalog.Overlay(id)
		if err := s.addOverlay(o); err != nil {
			s.logger.Warn("Failed to add overlay",
				zap.String("overlay", id),
				zap.Error(err),
			)
		}
	}
}

// addAnalysis adds the current stage for every selected region. A failure
// in one region is logged and the loop moves on.
func (s *Session) addAnalysis() {
	stage, ok := s.catalog.Stage(s.stage)
	if !ok {
		return
	}
	scale, _ := s.catalog.Scale(stage.Scale)

	for _, regionID := range s.catalog.RegionIDs(s.region) {
		key := domain.ArchiveKey(regionID, stage.ID)
		added, err := s.addKey(key, StageLayers(key, stage, scale))
		if err != nil {
			s.logger.Warn("Failed to add analysis layer",
				zap.String("archive_key", key),
				zap.Error(err),
			)
			continue
		}
		if added && !contains(s.active, key) {
			s.active = append(s.active, key)
		}
	}
}

func (s *Session) addOverlay(o domain.Overlay) error {
	var scale *domain.ColorScale
	if o.Scale != "" {
		if sc, ok := s.catalog.Scale(o.Scale); ok {
			scale = &sc
		}
	}
	_, err := s.addKey(o.ID, []Layer{OverlayLayer(o, scale)})
	return err
}

// addKey adds one source and its layers. Keys missing from the availability
// list are skipped without touching the map, keys already present are left
// alone, and a partial add is rolled back. Adds attempted while a style is
// loading are dropped; the style-load callback re-adds them.
func (s *Session) addKey(key string, layers []Layer) (bool, error) {
	if !s.catalog.IsAvailable(key) {
		s.logger.Debug("Archive not available, skipping", zap.String("archive_key", key))
		return false, nil
	}
	if s.m.HasSource(key) {
		return true, nil
	}

	if err := s.m.AddSource(key, VectorSource(s.tileBase, key)); err != nil {
		if stderrors.Is(err, ErrStyleLoading) {
			return false, nil
		}
		return false, err
	}
	for i, l := range layers {
		if err := s.m.AddLayer(l); err != nil {
			s.rollback(key, layers[:i])
			return false, fmt.Errorf("add layer %s: %w", l.ID, err)
		}
	}
	return true, nil
}

// rollback undoes a partial addKey, newest first.
func (s *Session) rollback(key string, added []Layer) {
	for i := len(added) - 1; i >= 0; i-- {
		if err := s.m.RemoveLayer(added[i].ID); err != nil {
			s.logger.Warn("Rollback failed", zap.String("layer", added[i].ID), zap.Error(err))
		}
	}
	if err := s.m.RemoveSource(key); err != nil {
		s.logger.Warn("Rollback failed", zap.String("archive_key", key), zap.Error(err))
	}
}

// removeKey removes the outline, the layer and the source, tolerating any
// of them being absent.
func (s *Session) removeKey(key string) error {
	for _, id := range []string{OutlineID(key), key} {
		if err := s.m.RemoveLayer(id); err != nil && !stderrors.Is(err, ErrLayerNotFound) {
			return err
		}
	}
	if err := s.m.RemoveSource(key); err != nil && !stderrors.Is(err, ErrSourceNotFound) {
		return err
	}
	return nil
}

func (s *Session) clearAnalysis() {
	for _, key := range s.active {
		if err := s.removeKey(key); err != nil {
			s.logger.Warn("Failed to remove analysis layer",
				zap.String("archive_key", key),
				zap.Error(err),
			)
		}
	}
	s.active = nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func errStage(id string) error {
	return errors.ErrStageNotFound.WithDetails(map[string]interface{}{"stage": id})
}

func errOverlay(id string) error {
	return errors.ErrOverlayNotFound.WithDetails(map[string]interface{}{"overlay": id})
}

func errBasemap(id string) error {
	return errors.ErrBasemapNotFound.WithDetails(map[string]interface{}{"basemap": id})
}

