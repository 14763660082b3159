package mapview

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyInitialized = errors.New("mapview: already initialized")
	ErrNotInitialized     = errors.New("mapview: not initialized")
	ErrUnknownBaseLayer   = errors.New("mapview: unknown base layer")
)

// RenderError reports a feature collection that could not be rendered. The
// map is left exactly as it was before the failed call.
type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("mapview: render %s: %v", e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
