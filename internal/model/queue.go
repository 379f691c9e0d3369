package model

import "time"

// Queue status values.  A queue starts ACTIVE, may be toggled to PAUSED and
// back, and ends in CLOSED.  CLOSED is terminal: no transition leaves it.
const (
    QueueStatusActive = "ACTIVE"
    QueueStatusPaused = "PAUSED"
    QueueStatusClosed = "CLOSED"
)

// Advance limits enforced by the engine.  A single payment can never skip
// more than MaxAdvanceCeiling positions regardless of queue configuration.
const (
    MinAdvancePositions = 1
    MaxAdvanceCeiling   = 8
)

// Queue represents a virtual waiting line owned by one establishment.
// The row in the `queues` table holds only metadata; the live ordering of
// clients lives in the ordered store and is reconstructible (a total loss
// of the ordering tier presents as an empty queue, never fabricated
// positions).
//
// Fields:
//  ID                 – opaque UUID identifier.
//  EstablishmentID    – owning establishment.
//  Name               – display name.
//  Description        – optional free text.
//  Status             – ACTIVE, PAUSED or CLOSED.
//  MaxAdvance         – most positions a single payment may skip (1..8).
//  AdvancePriceCents  – base price P of advancing one position, in cents.
//  MinutesPerPosition – estimated service minutes per position.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Queue struct {
    ID                 string    `json:"id"`
    EstablishmentID    uint64    `json:"establishment_id"`
    Name               string    `json:"name"`
    Description        string    `json:"description,omitempty"`
    Status             string    `json:"status"`
    MaxAdvance         int       `json:"max_advance"`
    AdvancePriceCents  uint32    `json:"advance_price_cents"`
    MinutesPerPosition int       `json:"minutes_per_position"`
    CreatedAt          time.Time `json:"created_at"`
    UpdatedAt          time.Time `json:"updated_at"`
}

// IsActive reports whether clients may currently join or advance.
func (q *Queue) IsActive() bool { return q.Status == QueueStatusActive }

// CanTransitionTo validates the queue lifecycle state machine:
// ACTIVE <-> PAUSED, {ACTIVE, PAUSED} -> CLOSED.  Closing an already
// closed queue is allowed so that Close stays idempotent; every other
// transition out of CLOSED is rejected.
func (q *Queue) CanTransitionTo(next string) bool {
    switch q.Status {
    case QueueStatusActive:
        return next == QueueStatusPaused || next == QueueStatusClosed
    case QueueStatusPaused:
        return next == QueueStatusActive || next == QueueStatusClosed
    case QueueStatusClosed:
        return next == QueueStatusClosed
    }
    return false
}

// QueueStats is the read-only summary returned for any queue, including
// empty ones (zero values, never an error).
type QueueStats struct {
    QueueID         string    `json:"queue_id"`
    Status          string    `json:"status"`
    Waiting         int64     `json:"waiting"`
    AvgWaitMinutes  int64     `json:"avg_wait_minutes"`
    CreatedAt       time.Time `json:"created_at"`
    UpdatedAt       time.Time `json:"updated_at"`
}
