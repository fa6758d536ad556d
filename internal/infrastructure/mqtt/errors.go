package mqtt

import "errors"

// Sentinel errors for broker operations. Wrapped errors carry detail;
// callers branch with errors.Is.
var (
	// ErrNotConnected means the broker session is down. Publishes and
	// subscribes fail fast rather than queueing.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps the reason the initial dial failed.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps broker-side or timeout failures on publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps failures to establish a subscription.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps failures to remove a subscription.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels outside 0 to 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topic strings.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
