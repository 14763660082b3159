// Package mapview owns the interactive map: base layers, controls, the
// single data layer, popups, legend and viewport.
package mapview

import "github.com/paulmach/orb"

// BaseLayer is a background tile source.
type BaseLayer struct {
	Name    string `json:"name" doc:"Base layer name" example:"Dark"`
	URL     string `json:"url" doc:"Tile URL template"`
	MaxZoom int    `json:"maxZoom" doc:"Maximum zoom level" example:"19"`
}

// BaseLayers is the fixed named set offered by the layer switcher.
var BaseLayers = []BaseLayer{
	{Name: "Dark", URL: "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png", MaxZoom: 19},
	{Name: "Satellite", URL: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}", MaxZoom: 19},
}

// DefaultBaseLayer is attached by Initialize.
const DefaultBaseLayer = "Dark"

func findBaseLayer(name string) (BaseLayer, bool) {
	for _, bl := range BaseLayers {
		if bl.Name == name {
			return bl, true
		}
	}
	return BaseLayer{}, false
}

// Control is a map control and where it is docked.
type Control struct {
	Kind     string         `json:"kind" enum:"zoom,attribution,layers,scale" doc:"Control type"`
	Position string         `json:"position" doc:"Corner the control is docked to" example:"topright"`
	Options  map[string]any `json:"options,omitempty" doc:"Control options"`
}

// standardControls is the control set attached once by Initialize.
func standardControls() []Control {
	return []Control{
		{Kind: "zoom", Position: "topright"},
		{Kind: "attribution", Position: "bottomright", Options: map[string]any{
			"prefix": `<a href="https://leafletjs.com/">Leaflet</a>`,
		}},
		{Kind: "layers", Position: "topright"},
		{Kind: "scale", Position: "bottomleft", Options: map[string]any{"imperial": false}},
	}
}

// Style is the fixed data-layer style.
type Style struct {
	FillColor   string  `json:"fillColor" doc:"Fill color (CSS)" example:"#3388ff"`
	Color       string  `json:"color" doc:"Stroke color (CSS)" example:"white"`
	Weight      float64 `json:"weight" doc:"Stroke width" example:"2"`
	Opacity     float64 `json:"opacity" doc:"Stroke opacity (0-1)" example:"1"`
	FillOpacity float64 `json:"fillOpacity" doc:"Fill opacity (0-1)" example:"0.7"`
}

// DataStyle is applied to every data layer. It is not user-configurable.
var DataStyle = Style{
	FillColor:   "#3388ff",
	Color:       "white",
	Weight:      2,
	Opacity:     1,
	FillOpacity: 0.7,
}

// LegendItem defines a legend entry.
type LegendItem struct {
	Label string `json:"label" doc:"Legend label"`
	Color string `json:"color" doc:"Legend color (CSS)"`
}

// Legend lists what the overlay colors mean.
var Legend = []LegendItem{
	{Label: "Polygons", Color: "#3388ff"},
	{Label: "Anomalies", Color: "#ff7800"},
}

// Viewport is the visible map area. Center is lon/lat.
type Viewport struct {
	Center orb.Point `json:"center" doc:"Center as [lon, lat]"`
	Zoom   int       `json:"zoom" minimum:"0" maximum:"19" doc:"Zoom level"`
}

// DefaultViewport is set by Initialize.
var DefaultViewport = Viewport{Center: orb.Point{0, 20}, Zoom: 2}

// Options configures the canvas the viewport is fitted to.
type Options struct {
	Width   int // pixels
	Height  int // pixels
	Padding int // pixels kept free around fitted bounds
}

// DefaultOptions matches a typical desktop map panel.
var DefaultOptions = Options{Width: 1024, Height: 768}

// MapState is a read-only snapshot of the renderer.
type MapState struct {
	Initialized   bool          `json:"initialized" doc:"Whether the map canvas exists"`
	BaseLayer     string        `json:"baseLayer,omitempty" doc:"Active base layer" example:"Dark"`
	BaseLayers    []BaseLayer   `json:"baseLayers" doc:"Available base layers"`
	Controls      []Control     `json:"controls" doc:"Attached controls"`
	Viewport      Viewport      `json:"viewport" doc:"Current viewport"`
	DataLayer     *LayerSummary `json:"dataLayer,omitempty" doc:"Attached data layer, if any"`
	Bounds        []float64     `json:"bounds,omitempty" doc:"Data layer bounds as [minLon, minLat, maxLon, maxLat]"`
	LegendVisible bool          `json:"legendVisible" doc:"Whether the legend overlay is shown"`
	Legend        []LegendItem  `json:"legend" doc:"Legend entries"`
}

// LayerSummary describes the attached data layer.
type LayerSummary struct {
	ID           string  `json:"id" doc:"Data layer ID"`
	FeatureCount int     `json:"featureCount" doc:"Number of features"`
	Style        Style   `json:"style" doc:"Layer style"`
	Popups       []Popup `json:"popups" doc:"Per-feature popups"`
}
