// Package queue defines message payloads exchanged over the message broker.
package queue

// ClientJoinedEvent is published when a client enters a queue. It carries
// enough information for downstream consumers to notify or count without
// querying the primary database.
type ClientJoinedEvent struct {
    QueueID    string `json:"queue_id"`
    ClientID   string `json:"client_id"`
    ClientName string `json:"client_name"`
    Position   int64  `json:"position"`
    JoinedAt   string `json:"joined_at"`
}

// AdvanceCompletedEvent is published after an approved payment moved a
// client forward. It is the wire form of the advance transaction record;
// the reporting consumer persists it for audit.
type AdvanceCompletedEvent struct {
    TransactionID string `json:"transaction_id"`
    QueueID       string `json:"queue_id"`
    ClientID      string `json:"client_id"`
    FromPosition  int64  `json:"from_position"`
    ToPosition    int64  `json:"to_position"`
    Positions     int    `json:"positions"`
    AmountCents   uint32 `json:"amount_cents"`
    CompletedAt   string `json:"completed_at"`
}
