package reports

import "errors"

var (
	ErrUnknownVariant = errors.New("unknown report variant")
	ErrInvalidRange   = errors.New("report date range is invalid")
	ErrRunNotFound    = errors.New("report run not found")
)
