package waitgate

import "errors"

var (
	// ErrInvalidInput is returned for syntactic validation failures. It never involves the store.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSuspiciousInput is returned when input matches a denylist pattern.
	ErrSuspiciousInput = errors.New("suspicious input")
	// ErrRateLimited is returned when a limiter policy rejects the actor.
	ErrRateLimited = errors.New("rate limited")
	// ErrContentSpam is returned when the content fingerprint filter rejects a message.
	ErrContentSpam = errors.New("duplicate content")
	// ErrBotCheckFailed is returned when human verification rejects or cannot be completed.
	ErrBotCheckFailed = errors.New("bot verification failed")
	// ErrStoreUnavailable is returned when the counter store cannot be reached during a check.
	ErrStoreUnavailable = errors.New("abuse store unavailable")

	// ErrGateNotReady is returned when a nil or unbuilt Gate is used.
	ErrGateNotReady = errors.New("gate not initialized")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrRedisRequired is returned by Build without a Redis client.
	ErrRedisRequired = errors.New("redis client required")
	// ErrInvalidConfig wraps every Config.Validate failure.
	ErrInvalidConfig = errors.New("invalid gate config")
)
