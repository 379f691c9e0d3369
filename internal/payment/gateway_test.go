package payment

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestChargeApprovesValidCard(t *testing.T) {
    g := NewSimulatedGateway()
    res, err := g.Charge(context.Background(), ChargeRequest{
        ClientID:    "c-1",
        QueueID:     "q-1",
        AmountCents: 1500,
        Card:        Card{Number: "4242 4242 4242 4242"},
    })
    require.NoError(t, err)
    assert.True(t, res.Approved)
    assert.NotEmpty(t, res.TransactionID)
    assert.Empty(t, res.DeclineReason)
}

func TestChargeDeclines(t *testing.T) {
    g := NewSimulatedGateway()

    res, err := g.Charge(context.Background(), ChargeRequest{AmountCents: 0, Card: Card{Number: "4242424242424242"}})
    require.NoError(t, err)
    assert.False(t, res.Approved)
    assert.Equal(t, "invalid_amount", res.DeclineReason)

    res, err = g.Charge(context.Background(), ChargeRequest{AmountCents: 100, Card: Card{Number: "4242424242424243"}})
    require.NoError(t, err)
    assert.False(t, res.Approved)
    assert.Equal(t, "invalid_card", res.DeclineReason)
    assert.NotEmpty(t, res.TransactionID, "declines carry a transaction id for auditing")
}

func TestChargeHonorsContext(t *testing.T) {
    g := &SimulatedGateway{Latency: time.Second}
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
    defer cancel()

    _, err := g.Charge(ctx, ChargeRequest{AmountCents: 100, Card: Card{Number: "4242424242424242"}})
    assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLuhnValid(t *testing.T) {
    valid := []string{
        "4242424242424242",
        "4242-4242-4242-4242",
        "5555 5555 5555 4444",
    }
    for _, n := range valid {
        assert.True(t, luhnValid(n), n)
    }
    invalid := []string{
        "4242424242424243", // bad checksum
        "1234",             // too short
        "42424242424242424242", // too long
        "4242abcd42424242",
    }
    for _, n := range invalid {
        assert.False(t, luhnValid(n), n)
    }
}
