package viewer

import (
	"github.com/ev-tile-publisher/internal/domain"
)

// OpKind names a recorded map call.
type OpKind string

const (
	OpSetStyle     OpKind = "setStyle"
	OpAddSource    OpKind = "addSource"
	OpRemoveSource OpKind = "removeSource"
	OpAddLayer     OpKind = "addLayer"
	OpRemoveLayer  OpKind = "removeLayer"
	OpFlyTo        OpKind = "flyTo"
	OpJumpTo       OpKind = "jumpTo"
)

// Op is one map call for the browser to replay, in order.
type Op struct {
	Op     OpKind         `json:"op"`
	ID     string         `json:"id,omitempty"`
	Source *Source        `json:"source,omitempty"`
	Layer  *Layer         `json:"layer,omitempty"`
	Style  *Style         `json:"style,omitempty"`
	Camera *domain.Camera `json:"camera,omitempty"`
}

// Mirror is a Map that keeps the same source and layer bookkeeping as the
// browser's map and records every mutating call. The browser replays the
// drained ops and reports style loads and rendered features back.
type Mirror struct {
	sources     map[string]Source
	layers      []Layer
	camera      domain.Camera
	styleLoaded bool
	onLoad      []func()
	rendered    []Feature
	ops         []Op
}

// NewMirror creates a mirror with a loaded empty style.
func NewMirror(cam domain.Camera) *Mirror {
	return &Mirror{
		sources:     make(map[string]Source),
		camera:      cam,
		styleLoaded: true,
	}
}

func (m *Mirror) HasSource(id string) bool {
	_, ok := m.sources[id]
	return ok
}

func (m *Mirror) HasLayer(id string) bool {
	return m.layerIndex(id) >= 0
}

func (m *Mirror) AddSource(id string, src Source) error {
	if !m.styleLoaded {
		return ErrStyleLoading
	}
	if m.HasSource(id) {
		return ErrSourceExists
	}
	m.sources[id] = src
	m.ops = append(m.ops, Op{Op: OpAddSource, ID: id, Source: &src})
	return nil
}

func (m *Mirror) RemoveSource(id string) error {
	if !m.HasSource(id) {
		return ErrSourceNotFound
	}
	for _, l := range m.layers {
		if l.Source == id {
			return ErrSourceInUse
		}
	}
	delete(m.sources, id)
	m.ops = append(m.ops, Op{Op: OpRemoveSource, ID: id})
	return nil
}

func (m *Mirror) AddLayer(layer Layer) error {
	if !m.styleLoaded {
		return ErrStyleLoading
	}
	if m.HasLayer(layer.ID) {
		return ErrLayerExists
	}
	if !m.HasSource(layer.Source) {
		return ErrSourceNotFound
	}
	m.layers = append(m.layers, layer)
	m.ops = append(m.ops, Op{Op: OpAddLayer, ID: layer.ID, Layer: &layer})
	return nil
}

func (m *Mirror) RemoveLayer(id string) error {
	i := m.layerIndex(id)
	if i < 0 {
		return ErrLayerNotFound
	}
	m.layers = append(m.layers[:i], m.layers[i+1:]...)
	m.ops = append(m.ops, Op{Op: OpRemoveLayer, ID: id})
	return nil
}

func (m *Mirror) SetStyle(style Style) {
	m.sources = make(map[string]Source)
	m.layers = nil
	m.styleLoaded = false
	m.ops = append(m.ops, Op{Op: OpSetStyle, Style: &style})
}

func (m *Mirror) OnceStyleLoad(fn func()) {
	m.onLoad = append(m.onLoad, fn)
}

// StyleLoaded marks the current style as loaded and runs the pending
// callbacks exactly once. Repeated notifications are ignored.
func (m *Mirror) StyleLoaded() {
	if m.styleLoaded {
		return
	}
	m.styleLoaded = true
	pending := m.onLoad
	m.onLoad = nil
	for _, fn := range pending {
		fn()
	}
}

// IsStyleLoaded reports whether the last SetStyle has completed.
func (m *Mirror) IsStyleLoaded() bool {
	return m.styleLoaded
}

func (m *Mirror) Camera() domain.Camera {
	return m.camera
}

// SetCamera records where the user panned to without emitting an op.
func (m *Mirror) SetCamera(cam domain.Camera) {
	m.camera = cam
}

func (m *Mirror) FlyTo(cam domain.Camera) {
	m.camera = cam
	m.ops = append(m.ops, Op{Op: OpFlyTo, Camera: &cam})
}

func (m *Mirror) JumpTo(cam domain.Camera) {
	m.camera = cam
	m.ops = append(m.ops, Op{Op: OpJumpTo, Camera: &cam})
}

// SetRenderedFeatures supplies the features the browser rendered under the
// pointer for the next query.
func (m *Mirror) SetRenderedFeatures(features []Feature) {
	m.rendered = features
}

func (m *Mirror) QueryRenderedFeatures(_ domain.Point, layerIDs []string) []Feature {
	wanted := make(map[string]struct{}, len(layerIDs))
	for _, id := range layerIDs {
		if m.HasLayer(id) {
			wanted[id] = struct{}{}
		}
	}

	var hits []Feature
	for _, f := range m.rendered {
		if _, ok := wanted[f.LayerID]; ok {
			hits = append(hits, f)
		}
	}
	return hits
}

// Drain returns the ops recorded since the last call.
func (m *Mirror) Drain() []Op {
	ops := m.ops
	m.ops = nil
	if ops == nil {
		return []Op{}
	}
	return ops
}

// Snapshot is the mirrored map state, for comparisons.
type Snapshot struct {
	Sources map[string]Source
	Layers  []Layer
}

func (m *Mirror) Snapshot() Snapshot {
	s := Snapshot{
		Sources: make(map[string]Source, len(m.sources)),
		Layers:  make([]Layer, len(m.layers)),
	}
	for id, src := range m.sources {
		s.Sources[id] = src
	}
	copy(s.Layers, m.layers)
	return s
}

func (m *Mirror) layerIndex(id string) int {
	for i, l := range m.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}
