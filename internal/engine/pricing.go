package engine

import "github.com/quepass/quepass/internal/repository"

// advancePriceHalves maps the requested position count to the price
// expressed in half-units of the queue's base price: 1 position costs
// the base price, every additional position adds half of it. The table
// is the product definition; it is intentionally not a formula, and
// requests above eight positions are rejected rather than extrapolated.
//
//  n=1 -> 1.0P   n=5 -> 3.0P
//  n=2 -> 1.5P   n=6 -> 3.5P
//  n=3 -> 2.0P   n=7 -> 4.0P
//  n=4 -> 2.5P   n=8 -> 4.5P
var advancePriceHalves = map[int]uint32{
    1: 2,
    2: 3,
    3: 4,
    4: 5,
    5: 6,
    6: 7,
    7: 8,
    8: 9,
}

// AdvancePriceCents computes the charge for advancing n positions given
// the queue's base price in cents. n outside the table returns
// ErrInvalidAdvanceCount.
func AdvancePriceCents(baseCents uint32, n int) (uint32, error) {
    halves, ok := advancePriceHalves[n]
    if !ok {
        return 0, repository.ErrInvalidAdvanceCount
    }
    return baseCents * halves / 2, nil
}
