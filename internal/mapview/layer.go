package mapview

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// dataLayer is the overlay built from one feature collection.
type dataLayer struct {
	id        string
	fc        *geojson.FeatureCollection
	style     Style
	popups    []Popup
	bounds    orb.Bound
	hasBounds bool
	raw       []byte
}

// buildLayer constructs a complete layer before anything touches the map,
// so a failure leaves the previous layer attached.
func buildLayer(data []byte) (*dataLayer, error) {
	if len(data) == 0 {
		return nil, &RenderError{Op: "parse", Err: errors.New("empty feature collection body")}
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &RenderError{Op: "parse", Err: err}
	}

	popups, err := collectPopups(data)
	if err != nil {
		return nil, &RenderError{Op: "popups", Err: err}
	}

	layer := &dataLayer{
		id:     uuid.NewString(),
		fc:     fc,
		style:  DataStyle,
		popups: popups,
		raw:    append([]byte(nil), data...),
	}

	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		if !hasExtent(b) {
			continue
		}
		if !inWorld(b) {
			return nil, &RenderError{Op: "bounds", Err: fmt.Errorf("feature %d: coordinates out of range %v", i, b)}
		}
		if !layer.hasBounds {
			layer.bounds = b
			layer.hasBounds = true
			continue
		}
		layer.bounds = layer.bounds.Union(b)
	}
	return layer, nil
}

func (l *dataLayer) summary() *LayerSummary {
	popups := l.popups
	if popups == nil {
		popups = []Popup{}
	}
	return &LayerSummary{
		ID:           l.id,
		FeatureCount: len(l.fc.Features),
		Style:        l.style,
		Popups:       popups,
	}
}

// free drops the layer's references once it is detached from the map.
func (l *dataLayer) free() {
	l.fc = nil
	l.popups = nil
	l.raw = nil
}

// layerManager holds the one data layer attached to the map.
type layerManager struct {
	current *dataLayer
}

// replace detaches and frees the current layer, then attaches next.
func (m *layerManager) replace(next *dataLayer) {
	if m.current != nil {
		m.current.free()
	}
	m.current = next
}

func (m *layerManager) release() { m.replace(nil) }
