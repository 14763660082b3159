package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/joeblew999/geo-analyzer/internal/analysis"
)

func decode(t *testing.T, body string) analysis.AnalysisResponse {
	t.Helper()
	resp, err := analysis.Decode([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestFromResponse_Empty(t *testing.T) {
	got := FromResponse(decode(t, `{}`))
	want := AnalysisReport{Anomalies: 0, MeanScore: "N/A", ModelType: "Unknown", Errors: []string{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestFromResponse_ZeroValue(t *testing.T) {
	got := FromResponse(analysis.AnalysisResponse{})
	assert.Equal(t, Empty(), got)
	assert.NotNil(t, got.Errors)
}

func TestFromResponse_AnomaliesAndModel(t *testing.T) {
	got := FromResponse(decode(t, `{"anomalies": ["a", "b", "c", "d", "e"], "model_type": "IsolationForest"}`))
	want := AnalysisReport{Anomalies: 5, MeanScore: "N/A", ModelType: "IsolationForest", Errors: []string{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestFromResponse_ScoreAndErrors(t *testing.T) {
	got := FromResponse(decode(t, `{
		"statistics": {"mean_anomaly_score": 0.4567},
		"validation_errors": [{"feature_id": 1, "error": "ring not closed"}, {"feature_id": 4, "error": "empty"}],
		"error": "foundation model unavailable"
	}`))
	assert.Equal(t, "0.46", got.MeanScore)
	assert.Equal(t, []string{
		"Feature 1: ring not closed",
		"Feature 4: empty",
		"foundation model unavailable",
	}, got.Errors)
}

func TestFromResponse_ScoreFormatting(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"statistics": {"mean_anomaly_score": 0}}`, "0.00"},
		{`{"statistics": {"mean_anomaly_score": 1}}`, "1.00"},
		{`{"statistics": {"mean_anomaly_score": -0.25}}`, "-0.25"},
		{`{"statistics": {"mean_anomaly_score": 0.125}}`, "0.13"},
		{`{"statistics": {"mean_anomaly_score": -0.125}}`, "-0.13"},
		{`{"statistics": {"mean_anomaly_score": 0.375}}`, "0.38"},
		{`{"statistics": {"mean_anomaly_score": 1.005}}`, "1.00"},
		{`{"statistics": {"mean_anomaly_score": 0.4567}}`, "0.46"},
		{`{"statistics": {"mean_anomaly_score": -0.0}}`, "0.00"},
		{`{"statistics": {"mean_anomaly_score": 1234.5}}`, "1234.50"},
		{`{"statistics": {"mean_anomaly_score": "0.3"}}`, "N/A"},
		{`{"statistics": null}`, "N/A"},
		{`{"statistics": {}}`, "N/A"},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assert.Equal(t, tt.want, FromResponse(decode(t, tt.body)).MeanScore)
		})
	}
}

func TestFromResponse_Idempotent(t *testing.T) {
	resp := decode(t, `{"anomalies": [1], "validation_errors": [{"feature_id": 2, "error": "x"}], "error": "y"}`)
	first := FromResponse(resp)
	second := FromResponse(resp)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("reports differ (-first +second):\n%s", diff)
	}
	assert.Len(t, resp.ValidationErrors, 1)
}

func TestSynthesize_Outcomes(t *testing.T) {
	partial := analysis.PartialSuccess{
		ValidFeatures: 8, InvalidFeatures: 2,
		Errors: []string{"Feature 3: self-intersection (TopologyError)"},
	}
	got := Synthesize(partial)
	assert.Equal(t, []string{"Feature 3: self-intersection (TopologyError)"}, got.Errors)
	assert.Equal(t, "Unknown", got.ModelType)

	failed := Synthesize(analysis.Failure{Reason: analysis.GenericAnalysisError, Message: "Service unavailable"})
	assert.Equal(t, []string{"Service unavailable"}, failed.Errors)

	assert.Equal(t, Empty(), Synthesize(nil))
}
