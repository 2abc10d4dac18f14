package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeForbidden      = "forbidden"
	ErrCodeNotInRoom      = "not_in_room"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeInvalidMessage = "invalid_message"
)

var (
	// ErrUninitialized is returned when the process-wide channel is read before Initialize.
	ErrUninitialized = errors.New("notification channel uninitialized")
	// ErrAlreadyInitialized is returned by a second Initialize without Teardown.
	ErrAlreadyInitialized = errors.New("notification channel already initialized")
	// ErrHubStopped is returned when the hub's run loop has exited.
	ErrHubStopped = errors.New("hub stopped")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
