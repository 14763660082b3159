package analysis

import (
	"encoding/json"
)

// GeometryValidationErrorType tags an error body that reports per-feature
// validation failures alongside a usable result.
const GeometryValidationErrorType = "GeometryValidationError"

// ValidationError describes why a single feature failed validation.
// The same record shape appears in success bodies (validation_errors,
// using Error) and partial-failure bodies (errors, using Message and
// ErrorType).
type ValidationError struct {
	FeatureID string `json:"feature_id" yaml:"feature_id"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
	ErrorType string `json:"error_type,omitempty" yaml:"error_type,omitempty"`
}

// AnalysisResponse is the typed view of a service body. Every field is
// optional; absent fields hold their zero value.
type AnalysisResponse struct {
	GeoJSON          json.RawMessage   `json:"geoJson,omitempty"`
	Anomalies        []any             `json:"anomalies,omitempty"`
	MeanAnomalyScore *float64          `json:"mean_anomaly_score,omitempty"`
	ModelType        string            `json:"model_type,omitempty"`
	ValidationErrors []ValidationError `json:"validation_errors,omitempty"`
	Error            string            `json:"error,omitempty"`
	Status           string            `json:"status,omitempty"`

	// Error-body fields.
	Type            string            `json:"type,omitempty"`
	Message         string            `json:"message,omitempty"`
	Detail          string            `json:"detail,omitempty"`
	ValidFeatures   int               `json:"valid_features,omitempty"`
	InvalidFeatures int               `json:"invalid_features,omitempty"`
	Errors          []ValidationError `json:"errors,omitempty"`

	// Raw is the lenient map the fields were read from.
	Raw Payload `json:"-"`
}

// HasGeoJSON reports whether the body carried a feature collection.
func (r AnalysisResponse) HasGeoJSON() bool {
	return len(r.GeoJSON) > 0 && string(r.GeoJSON) != "null"
}

// Decode builds an AnalysisResponse from a raw body. It fails only when the
// body is not a JSON object; individual fields never cause an error.
func Decode(body []byte) (AnalysisResponse, error) {
	p, err := ParsePayload(body)
	if err != nil {
		return AnalysisResponse{}, err
	}
	resp := FromPayload(p)

	// Keep the feature collection byte-for-byte so property order survives.
	var raw struct {
		GeoJSON json.RawMessage `json:"geoJson"`
	}
	if err := json.Unmarshal(body, &raw); err == nil {
		resp.GeoJSON = raw.GeoJSON
	}
	return resp, nil
}

// FromPayload reads the typed fields out of a lenient payload. GeoJSON is
// re-encoded from the map, so property order is not preserved; use Decode
// when the original bytes are available.
func FromPayload(p Payload) AnalysisResponse {
	resp := AnalysisResponse{
		Anomalies:        p.List("anomalies"),
		ModelType:        p.String("model_type"),
		ValidationErrors: validationErrors(p.List("validation_errors")),
		Error:            p.String("error"),
		Status:           p.String("status"),
		Type:             p.String("type"),
		Message:          p.String("message"),
		Detail:           p.String("detail"),
		ValidFeatures:    p.Int("valid_features"),
		InvalidFeatures:  p.Int("invalid_features"),
		Errors:           validationErrors(p.List("errors")),
		Raw:              p,
	}
	if score, ok := p.Object("statistics").Float("mean_anomaly_score"); ok {
		resp.MeanAnomalyScore = &score
	}
	if fc := p.Object("geoJson"); fc != nil {
		if b, err := json.Marshal(map[string]any(fc)); err == nil {
			resp.GeoJSON = b
		}
	}
	return resp
}

func validationErrors(items []any) []ValidationError {
	if len(items) == 0 {
		return nil
	}
	out := make([]ValidationError, 0, len(items))
	for _, item := range items {
		var m Payload
		if obj, ok := item.(map[string]any); ok {
			m = obj
		}
		out = append(out, ValidationError{
			FeatureID: scalarText(m["feature_id"]),
			Error:     scalarText(m["error"]),
			Message:   scalarText(m["message"]),
			ErrorType: scalarText(m["error_type"]),
		})
	}
	return out
}
