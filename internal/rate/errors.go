package rate

import "errors"

var (
	// ErrUnavailable is returned when the counter store cannot answer.
	ErrUnavailable = errors.New("rate limiter store unavailable")
	// ErrInvalidConfig is returned by New for non-positive windows or limits.
	ErrInvalidConfig = errors.New("invalid rate limiter config")
)
