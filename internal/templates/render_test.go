package templates

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/geo-analyzer/internal/mapview"
	"github.com/joeblew999/geo-analyzer/internal/report"
)

func TestRender_ReportPanel(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html, err := r.Render("report-panel", report.AnalysisReport{
		Anomalies: 3, MeanScore: "0.50", ModelType: "IsolationForest",
		Errors: []string{"Feature 1: <bad>"},
	})
	require.NoError(t, err)
	assert.Contains(t, html, "IsolationForest")
	assert.Contains(t, html, "Issues Found")
	assert.Contains(t, html, "Feature 1: &lt;bad&gt;")

	clean := r.MustRender("report-panel", report.Empty())
	assert.NotContains(t, clean, "Issues Found")
	assert.Contains(t, clean, "N/A")
}

func TestRender_Popup(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html := r.MustRender("popup", mapview.Popup{Entries: []mapview.PopupEntry{
		{Key: "name", Value: "B"}, {Key: "score", Value: "0.9"},
	}})
	assert.Less(t, strings.Index(html, "name:"), strings.Index(html, "score:"))
}

func TestRender_Legend(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	hidden := r.MustRender("legend", map[string]any{"Visible": false, "Items": mapview.Legend})
	assert.Empty(t, strings.TrimSpace(hidden))

	shown := r.MustRender("legend", map[string]any{"Visible": true, "Items": mapview.Legend})
	assert.Contains(t, shown, "Anomalies")
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	_, err = r.Render("missing", nil)
	assert.Error(t, err)
}

func TestRender_MapOverlay(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	html := r.MustRender("map-overlay", mapview.MapState{LegendVisible: true, Legend: mapview.Legend})
	assert.Contains(t, html, "Polygons")
	assert.Contains(t, html, "#3388ff")
}
