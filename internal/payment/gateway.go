// Package payment defines the charge gateway consumed by the queue
// engine. The gateway only answers approved/declined with a transaction
// id; it never touches queue ordering.
package payment

import (
    "context"
    "strings"
    "time"

    "github.com/google/uuid"
)

// Card is the method descriptor sent by clients. Only the fields needed
// by the simulated gateway are modeled.
type Card struct {
    Number     string `json:"number"`
    HolderName string `json:"holder_name"`
    ExpMonth   int    `json:"exp_month"`
    ExpYear    int    `json:"exp_year"`
    CVV        string `json:"cvv"`
}

// ChargeRequest carries everything the gateway needs for one charge.
type ChargeRequest struct {
    ClientID    string
    QueueID     string
    AmountCents uint32
    Card        Card
}

// ChargeResult is the gateway's answer. TransactionID is set on both
// outcomes so declines can be audited too.
type ChargeResult struct {
    Approved      bool
    TransactionID string
    DeclineReason string
}

// Gate is implemented by payment providers. Charge must respect ctx
// deadlines; the engine calls it with a bounded timeout and never while
// holding a queue lock.
type Gate interface {
    Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// SimulatedGateway approves or declines charges deterministically so the
// rest of the system can be exercised without a real provider. Cards
// failing the Luhn check decline with invalid_card; a zero amount
// declines with invalid_amount; everything else is approved.
type SimulatedGateway struct {
    // Latency, when positive, is slept before answering to imitate a
    // slow provider. Charge still honors ctx cancellation while waiting.
    Latency time.Duration
}

// NewSimulatedGateway returns a gateway with no artificial latency.
func NewSimulatedGateway() *SimulatedGateway { return &SimulatedGateway{} }

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
    if g.Latency > 0 {
        select {
        case <-time.After(g.Latency):
        case <-ctx.Done():
            return ChargeResult{}, ctx.Err()
        }
    }
    res := ChargeResult{TransactionID: uuid.NewString()}
    switch {
    case req.AmountCents == 0:
        res.DeclineReason = "invalid_amount"
    case !luhnValid(req.Card.Number):
        res.DeclineReason = "invalid_card"
    default:
        res.Approved = true
    }
    return res, nil
}

// luhnValid reports whether the digits of number pass the Luhn checksum.
// Spaces and dashes are ignored; any other non-digit fails.
func luhnValid(number string) bool {
    cleaned := strings.Map(func(r rune) rune {
        if r == ' ' || r == '-' {
            return -1
        }
        return r
    }, number)
    if len(cleaned) < 12 || len(cleaned) > 19 {
        return false
    }
    sum := 0
    double := false
    for i := len(cleaned) - 1; i >= 0; i-- {
        c := cleaned[i]
        if c < '0' || c > '9' {
            return false
        }
        d := int(c - '0')
        if double {
            d *= 2
            if d > 9 {
                d -= 9
            }
        }
        sum += d
        double = !double
    }
    return sum%10 == 0
}
