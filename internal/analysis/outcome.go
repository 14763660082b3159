// Package analysis classifies analysis service responses into a fixed set
// of outcomes.
package analysis

import "encoding/json"

// Kind identifies which outcome variant is active.
type Kind int

const (
	KindSuccess Kind = iota
	KindPartialSuccess
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindPartialSuccess:
		return "partial_success"
	case KindFailure:
		return "failure"
	}
	return "unknown"
}

// ErrorKind is the error taxonomy surfaced to the UI.
type ErrorKind int

const (
	// PartialValidationFailure means some features were invalid; the result is still usable.
	PartialValidationFailure ErrorKind = iota + 1
	// GenericAnalysisError is a failure reported by the service with a message.
	GenericAnalysisError
	// UnknownError is an error body with no recognizable shape.
	UnknownError
	// TransportError is a network or submission failure.
	TransportError
)

func (k ErrorKind) String() string {
	switch k {
	case PartialValidationFailure:
		return "PartialValidationFailure"
	case GenericAnalysisError:
		return "GenericAnalysisError"
	case UnknownError:
		return "UnknownError"
	case TransportError:
		return "TransportError"
	}
	return ""
}

// Outcome is one of Success, PartialSuccess or Failure.
type Outcome interface {
	Kind() Kind
	// Usable reports whether the outcome feeds the map and the report.
	Usable() bool
}

// Success wraps a body from a request that succeeded.
type Success struct {
	Response AnalysisResponse
}

func (Success) Kind() Kind   { return KindSuccess }
func (Success) Usable() bool { return true }

// PartialSuccess is a validation failure on some features. It is still a
// usable result, not a hard failure.
type PartialSuccess struct {
	ValidFeatures   int
	InvalidFeatures int
	// Errors are formatted "Feature {id}: {message} ({error_type})", in source order.
	Errors    []string
	RawErrors []ValidationError
	// GeoJSON is set when the error body carried a feature collection.
	GeoJSON json.RawMessage
}

func (PartialSuccess) Kind() Kind   { return KindPartialSuccess }
func (PartialSuccess) Usable() bool { return true }

// Failure is a hard failure surfaced as a single message.
type Failure struct {
	Reason  ErrorKind
	Message string
}

func (Failure) Kind() Kind   { return KindFailure }
func (Failure) Usable() bool { return false }
