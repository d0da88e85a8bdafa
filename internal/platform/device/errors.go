package device

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("device: no data for pin")
	ErrNetwork    = errors.New("device: network failure")
	ErrHTTPStatus = errors.New("device: unexpected http status")
	ErrMalformed  = errors.New("device: malformed response")
)

// StatusError reports a non-2xx response. It matches ErrHTTPStatus.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("device: %s returned status %d", e.Endpoint, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}
