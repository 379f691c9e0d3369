package model

import "time"

// AdvanceTransaction records one completed payment-for-positions event.
// The engine only emits it; durable persistence belongs to a downstream
// consumer (see internal/queue).  Shape mirrors the audit records kept by
// the reporting side: who paid, where, how far they moved and what the
// gateway answered.
type AdvanceTransaction struct {
    TransactionID string    `json:"transaction_id"`
    QueueID       string    `json:"queue_id"`
    ClientID      string    `json:"client_id"`
    FromPosition  int64     `json:"from_position"`
    ToPosition    int64     `json:"to_position"`
    Positions     int       `json:"positions"`
    AmountCents   uint32    `json:"amount_cents"`
    Approved      bool      `json:"approved"`
    CreatedAt     time.Time `json:"created_at"`
}
