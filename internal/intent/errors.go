package intent

import "errors"

var (
	// ErrDeviceNotReady means the physical driver is unavailable. The render
	// is skipped and retried on the next state change.
	ErrDeviceNotReady = errors.New("device not ready")

	// ErrQueueFull means an admission was dropped by a full render queue.
	ErrQueueFull = errors.New("render queue full")

	// ErrSuppressed means the spam guard refused a request during cooldown.
	ErrSuppressed = errors.New("suppressed by spam guard")

	// ErrUnknownSignal marks a signal value that has not been sampled yet.
	ErrUnknownSignal = errors.New("signal value unknown")
)
