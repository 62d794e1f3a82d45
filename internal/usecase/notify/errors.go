package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrChannelDisabled indicates that Send() was called on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrInvalidEvent indicates that the event data is invalid or missing
	// required fields. Returned when the event is nil or its title is empty.
	ErrInvalidEvent = errors.New("invalid event data")

	// ErrNotificationDropped indicates that a notification was dropped due to
	// goroutine pool saturation or timeout waiting for a worker slot.
	// This is a non-critical error used for observability.
	ErrNotificationDropped = errors.New("notification dropped due to pool saturation")

	// ErrCircuitBreakerOpen indicates that the circuit breaker is open for this
	// channel and notifications are being rejected to prevent continuous
	// failures. The circuit breaker automatically closes after the timeout.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open for this channel")
)
