package viewer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/geo-analyzer/internal/mapview"
	"github.com/joeblew999/geo-analyzer/internal/session"
	"github.com/joeblew999/geo-analyzer/internal/templates"
	"github.com/joeblew999/geo-analyzer/internal/upload"
)

type staticService []byte

func (s staticService) Submit(context.Context, upload.File) ([]byte, error) {
	return s, nil
}

func TestSignals(t *testing.T) {
	r, err := templates.New()
	require.NoError(t, err)

	s, err := session.New(session.Config{
		Submitter: staticService(`{"geoJson": {"type": "FeatureCollection", "features": [
			{"type": "Feature", "properties": {"name": "A"}, "geometry": {"type": "Point", "coordinates": [10, 50]}},
			{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [11, 51]}}
		]}, "anomalies": [], "model_type": "LOF"}`),
		Renderer: mapview.NewRenderer(mapview.DefaultOptions),
	})
	require.NoError(t, err)

	before := Signals(r, s.State())
	assert.Equal(t, "Dark", before["baseLayer"])
	assert.Equal(t, []float64{20, 0}, before["center"])
	assert.Equal(t, 2, before["zoom"])
	assert.Empty(t, before["popups"])
	assert.NotContains(t, before, "layerId")

	st, err := s.Analyze(context.Background(), upload.File{Name: "points.geojson"})
	require.NoError(t, err)

	after := Signals(r, st)
	assert.Equal(t, "success", after["status"])
	assert.Equal(t, "points.geojson", after["filename"])
	assert.Equal(t, st.Map.DataLayer.ID, after["layerId"])
	assert.Equal(t, 0, after["invalidFeatures"])
	assert.Empty(t, after["validationErrors"])

	popups := after["popups"].(map[string]string)
	require.Len(t, popups, 1)
	assert.Contains(t, popups["0"], "<strong>name:</strong> A")
}
