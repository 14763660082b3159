package analysis

import (
	"fmt"
	"net/http"
)

// ServiceError is returned by a transport when the analysis service answers
// with a non-2xx status. Body holds the undecoded error body.
type ServiceError struct {
	StatusCode int
	Body       []byte
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("analysis service returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Payload decodes the error body. Bodies that are not JSON objects yield nil.
func (e *ServiceError) Payload() Payload {
	p, err := ParsePayload(e.Body)
	if err != nil {
		return nil
	}
	return p
}
