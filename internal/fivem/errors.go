package fivem

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnreachable covers timeouts and transport failures.
var ErrUnreachable = errors.New("server unreachable")

// ErrUnrecognizedShape means the response body did not match any of the
// known roster schemas.
var ErrUnrecognizedShape = errors.New("response shape not recognised")

// StatusError is a non-2xx, non-429 HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned HTTP %d", e.Code)
}

// RateLimitError is a 429 response. RetryAfter is the server-supplied
// delay, clamped to maxRetryAfter, or zero when the header was absent.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
