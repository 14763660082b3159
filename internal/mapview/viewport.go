package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	tileSize = 256.0
	// maxLatitude is the web mercator limit.
	maxLatitude = 85.0511287798
)

// fitViewport returns the highest zoom at which b fits the canvas, centered on b.
func fitViewport(b orb.Bound, opts Options, maxZoom int) Viewport {
	width := float64(opts.Width - 2*opts.Padding)
	height := float64(opts.Height - 2*opts.Padding)

	topLeft := orb.Point{b.Min[0], clampLat(b.Max[1])}
	bottomRight := orb.Point{b.Max[0], clampLat(b.Min[1])}

	zoom := 0
	for z := maxZoom; z >= 0; z-- {
		tl := maptile.Fraction(topLeft, maptile.Zoom(z))
		br := maptile.Fraction(bottomRight, maptile.Zoom(z))
		if (br[0]-tl[0])*tileSize <= width && (br[1]-tl[1])*tileSize <= height {
			zoom = z
			break
		}
	}
	return Viewport{Center: b.Center(), Zoom: zoom}
}

func clampLat(lat float64) float64 {
	switch {
	case lat > maxLatitude:
		return maxLatitude
	case lat < -maxLatitude:
		return -maxLatitude
	}
	return lat
}

// worldBound is the valid lon/lat range.
var worldBound = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// hasExtent is false for the inverted bound orb returns for geometries
// without coordinates. Points have a zero-area extent and count.
func hasExtent(b orb.Bound) bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1]
}

func inWorld(b orb.Bound) bool {
	return worldBound.Contains(b.Min) && worldBound.Contains(b.Max)
}
