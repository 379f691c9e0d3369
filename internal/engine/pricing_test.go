package engine

import (
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/quepass/quepass/internal/repository"
)

func TestAdvancePriceCents(t *testing.T) {
    cases := []struct {
        n    int
        want uint32
    }{
        {1, 1000},
        {2, 1500},
        {3, 2000},
        {4, 2500},
        {5, 3000},
        {6, 3500},
        {7, 4000},
        {8, 4500},
    }
    for _, tc := range cases {
        got, err := AdvancePriceCents(1000, tc.n)
        assert.NoError(t, err)
        assert.Equal(t, tc.want, got, "n=%d", tc.n)
    }
}

func TestAdvancePriceCentsOddBase(t *testing.T) {
    // Half-unit steps on an odd base truncate toward zero in cents.
    got, err := AdvancePriceCents(333, 2)
    assert.NoError(t, err)
    assert.Equal(t, uint32(499), got)
}

func TestAdvancePriceCentsRejectsOutOfTable(t *testing.T) {
    for _, n := range []int{-1, 0, 9, 100} {
        _, err := AdvancePriceCents(1000, n)
        assert.ErrorIs(t, err, repository.ErrInvalidAdvanceCount, "n=%d", n)
    }
}
