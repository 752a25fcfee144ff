package core

import "errors"

// ErrCodeUpstreamDown is pushed to browsers while the feed is disconnected.
const ErrCodeUpstreamDown = "upstream_unavailable"

// ErrHubStopped is returned when the hub run loop has exited.
var ErrHubStopped = errors.New("hub stopped")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewError builds a CoreError.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
