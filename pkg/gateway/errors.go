package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrCircuitOpen    = errors.New("gateway circuit open")
	ErrRemoteRejected = errors.New("remote rejected submission")
)

// RemoteError is a response from the endpoint that did not accept the
// submission. StatusCode is the HTTP status; a 2xx reply carrying
// success=false keeps its status.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error { return ErrRemoteRejected }
