package domain

import "errors"

// ErrInvalidCount is returned when the requested story count is not positive.
var ErrInvalidCount = errors.New("story count must be greater than 0")

// ErrUpstreamUnavailable is returned when the provider refuses a call without
// attempting it, e.g. while its circuit breaker is open.
var ErrUpstreamUnavailable = errors.New("upstream temporarily unavailable")
