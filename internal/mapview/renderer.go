package mapview

import (
	"sync"

	"github.com/joeblew999/geo-analyzer/internal/monitoring"
)

// Renderer owns the map canvas and its single data layer. All mutation goes
// through Render, ToggleLegend and SetBaseLayer.
type Renderer struct {
	mu sync.RWMutex

	opts          Options
	initialized   bool
	baseLayer     BaseLayer
	controls      []Control
	viewport      Viewport
	layers        layerManager
	legendVisible bool
}

// NewRenderer creates an uninitialized renderer. Zero-sized options fall
// back to DefaultOptions.
func NewRenderer(opts Options) *Renderer {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultOptions.Width, DefaultOptions.Height
	}
	if opts.Padding < 0 || 2*opts.Padding >= opts.Width || 2*opts.Padding >= opts.Height {
		opts.Padding = 0
	}
	return &Renderer{opts: opts}
}

// Initialize creates the canvas with the default viewport, base layer and
// control set. A second call returns ErrAlreadyInitialized and changes nothing.
func (r *Renderer) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return ErrAlreadyInitialized
	}
	base, _ := findBaseLayer(DefaultBaseLayer)
	r.baseLayer = base
	r.controls = standardControls()
	r.viewport = DefaultViewport
	r.initialized = true
	return nil
}

// Render replaces the data layer with one built from a GeoJSON feature
// collection and fits the viewport to it. On error the map is unchanged.
func (r *Renderer) Render(data []byte) error {
	// Build outside the lock; parsing can be slow for large collections.
	layer, err := buildLayer(data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}

	r.layers.replace(layer)

	if layer.hasBounds {
		r.viewport = fitViewport(layer.bounds, r.opts, r.baseLayer.MaxZoom)
	} else {
		monitoring.Logf("mapview: layer %s has no bounds, viewport unchanged", layer.id)
	}
	return nil
}

// ToggleLegend flips legend visibility and returns the new value.
func (r *Renderer) ToggleLegend() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.legendVisible = !r.legendVisible
	return r.legendVisible
}

// SetBaseLayer switches the active base layer.
func (r *Renderer) SetBaseLayer(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return ErrNotInitialized
	}
	base, ok := findBaseLayer(name)
	if !ok {
		return ErrUnknownBaseLayer
	}
	r.baseLayer = base
	return nil
}

// Collection returns the raw feature collection of the attached layer.
func (r *Renderer) Collection() ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.layers.current == nil {
		return nil, false
	}
	return append([]byte(nil), r.layers.current.raw...), true
}

// Snapshot returns the current map state.
func (r *Renderer) Snapshot() MapState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := MapState{
		Initialized:   r.initialized,
		BaseLayers:    BaseLayers,
		Controls:      append([]Control{}, r.controls...),
		Viewport:      r.viewport,
		LegendVisible: r.legendVisible,
		Legend:        Legend,
	}
	if r.initialized {
		state.BaseLayer = r.baseLayer.Name
	}
	if l := r.layers.current; l != nil {
		state.DataLayer = l.summary()
		if l.hasBounds {
			state.Bounds = []float64{l.bounds.Min[0], l.bounds.Min[1], l.bounds.Max[0], l.bounds.Max[1]}
		}
	}
	return state
}

// Close releases the data layer and returns the renderer to its
// uninitialized state.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.layers.release()
	r.controls = nil
	r.viewport = Viewport{}
	r.baseLayer = BaseLayer{}
	r.legendVisible = false
	r.initialized = false
}
