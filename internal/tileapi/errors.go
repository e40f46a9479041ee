package tileapi

import (
	"errors"
	"fmt"
)

// ErrDeviceNotFound reports that the configured device name matched none of
// the account's devices.
var ErrDeviceNotFound = errors.New("device not found")

// APIError reports a non-2xx response from the Tile API.
type APIError struct {
	Op         string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}
