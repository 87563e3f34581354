package session

import "errors"

// Sentinel errors for session operations, checked with errors.Is().
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSender indicates a message sender outside user/assistant.
	ErrInvalidSender = errors.New("invalid message sender")
)
