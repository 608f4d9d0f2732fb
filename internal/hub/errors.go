package hub

import (
	"errors"
	"fmt"
)

// Domain errors for the hub package.
var (
	// ErrConnectionFailed is returned when the WebSocket connection to the
	// hub cannot be established.
	ErrConnectionFailed = errors.New("hub: connection failed")

	// ErrAuthFailed is returned when the hub rejects the access token
	// during the auth handshake.
	ErrAuthFailed = errors.New("hub: authentication failed")

	// ErrAlreadyConnected is returned by Connect when a session is already
	// established or a concurrent Connect is in progress.
	ErrAlreadyConnected = errors.New("hub: already connected")

	// ErrNotConnected is returned when an operation requires an open
	// session but none exists.
	ErrNotConnected = errors.New("hub: not connected")

	// ErrTransport is returned when the connection fails mid-session
	// (unexpected close, write failure, keepalive timeout).
	ErrTransport = errors.New("hub: transport failure")

	// ErrRequestTimeout is returned when the hub does not answer a request
	// within the request timeout.
	ErrRequestTimeout = errors.New("hub: request timed out")

	// ErrRetriesExhausted is reported once the reconnection policy gives up;
	// a manual Connect is required afterwards.
	ErrRetriesExhausted = errors.New("hub: reconnection retries exhausted")

	// ErrClosed is returned for any operation on a closed client. Pending
	// requests are settled with this error on Close.
	ErrClosed = errors.New("hub: client closed")
)

// RequestError is returned when the hub answers a request with
// success=false. Code and Message are taken verbatim from the result frame.
type RequestError struct {
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("hub: request failed: %s (code %s)", e.Message, e.Code)
}
