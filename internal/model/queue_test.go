package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
    cases := []struct {
        from, to string
        ok       bool
    }{
        {QueueStatusActive, QueueStatusPaused, true},
        {QueueStatusActive, QueueStatusClosed, true},
        {QueueStatusActive, QueueStatusActive, false},
        {QueueStatusPaused, QueueStatusActive, true},
        {QueueStatusPaused, QueueStatusClosed, true},
        {QueueStatusClosed, QueueStatusActive, false},
        {QueueStatusClosed, QueueStatusPaused, false},
        {QueueStatusClosed, QueueStatusClosed, true},
        {"BOGUS", QueueStatusActive, false},
    }
    for _, tc := range cases {
        q := Queue{Status: tc.from}
        assert.Equal(t, tc.ok, q.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
    }
}

func TestIsActive(t *testing.T) {
    assert.True(t, (&Queue{Status: QueueStatusActive}).IsActive())
    assert.False(t, (&Queue{Status: QueueStatusPaused}).IsActive())
    assert.False(t, (&Queue{Status: QueueStatusClosed}).IsActive())
}
