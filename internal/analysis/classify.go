package analysis

import (
	"errors"
	"fmt"

	"github.com/joeblew999/geo-analyzer/internal/monitoring"
)

// UnknownErrorMessage is shown when an error carries nothing recognizable.
const UnknownErrorMessage = "Unknown error during analysis"

// Classify turns the result of one submission into an Outcome. A nil err
// means the request succeeded and body is its response. Classify is total:
// it never panics and missing fields fall through to the default branches.
func Classify(body []byte, err error) Outcome {
	if err == nil {
		resp, derr := Decode(body)
		if derr != nil {
			monitoring.Logf("analysis: success body is not a JSON object: %v", derr)
		}
		return Success{Response: resp}
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return ClassifyError(se.Payload())
	}

	if msg := err.Error(); msg != "" {
		return Failure{Reason: TransportError, Message: msg}
	}
	return Failure{Reason: UnknownError, Message: UnknownErrorMessage}
}

// ClassifyError classifies a decoded error body.
func ClassifyError(p Payload) Outcome {
	// FastAPI wraps structured errors as {"detail": {...}}.
	if inner := p.Object("detail"); inner != nil {
		p = inner
	}

	if p.String("type") == GeometryValidationErrorType {
		raw := validationErrors(p.List("errors"))
		formatted := make([]string, 0, len(raw))
		for _, ve := range raw {
			formatted = append(formatted, fmt.Sprintf("Feature %s: %s (%s)", ve.FeatureID, ve.Message, ve.ErrorType))
		}
		out := PartialSuccess{
			ValidFeatures:   p.Int("valid_features"),
			InvalidFeatures: p.Int("invalid_features"),
			Errors:          formatted,
			RawErrors:       raw,
		}
		if resp := FromPayload(p); resp.HasGeoJSON() {
			out.GeoJSON = resp.GeoJSON
		}
		return out
	}

	if msg := p.String("message"); msg != "" {
		return Failure{Reason: GenericAnalysisError, Message: msg}
	}
	if msg := p.String("detail"); msg != "" {
		return Failure{Reason: GenericAnalysisError, Message: msg}
	}
	return Failure{Reason: UnknownError, Message: UnknownErrorMessage}
}

// Message returns the text shown to the user for an outcome, or "" for a
// clean success.
func Message(o Outcome) string {
	switch v := o.(type) {
	case PartialSuccess:
		return fmt.Sprintf("Found %d invalid geometries", v.InvalidFeatures)
	case Failure:
		return v.Message
	}
	return ""
}
