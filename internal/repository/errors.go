// Package repository defines error types that are reused across multiple
// repositories and by the queue engine. These sentinel values allow
// higher layers such as handlers to distinguish between failure
// scenarios: validation errors that the client can correct (4xx class)
// versus a degraded backing store that the caller may retry (503 class).
package repository

import "errors"

// ErrQueueNotFound is returned when a queue id does not resolve to a
// durable metadata record. Handlers translate it into HTTP 404.
var ErrQueueNotFound = errors.New("queue not found")

// ErrQueueNotActive is returned when a join or advance targets a paused
// or closed queue. Handlers translate it into HTTP 409.
var ErrQueueNotActive = errors.New("queue not active")

// ErrDuplicateClient is returned when a join request carries a phone or
// email already present in the same queue. No entry is created.
var ErrDuplicateClient = errors.New("client already in queue")

// ErrClientNotInQueue is returned when the referenced client has no entry
// in the queue (left already, was never there, or the queue was closed).
var ErrClientNotInQueue = errors.New("client not in queue")

// ErrInvalidAdvanceCount is returned when the requested advance count is
// outside 1..min(maxAdvance, currentPosition-1), or when the queue holds
// a single entry so advancing is meaningless.
var ErrInvalidAdvanceCount = errors.New("invalid advance count")

// ErrPaymentDeclined is returned when the payment gate refuses the
// charge. The queue ordering is guaranteed untouched.
var ErrPaymentDeclined = errors.New("payment declined")

// ErrInvalidStatusTransition is returned for lifecycle transitions the
// queue state machine forbids, e.g. reopening a closed queue.
var ErrInvalidStatusTransition = errors.New("invalid status transition")

// ErrStoreUnavailable signals that the ordering store (or metadata cache)
// cannot be reached. It is retryable; handlers translate it into 503 and
// the engine never retries by itself.
var ErrStoreUnavailable = errors.New("ordering store unavailable")

// ErrMemberNotFound is returned by the ordered store when the requested
// member is absent from the set.
var ErrMemberNotFound = errors.New("member not found")

// ErrCacheMiss is returned by the metadata cache when no record is
// cached for the queue; the engine falls back to the durable store.
var ErrCacheMiss = errors.New("cache miss")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")
