package model

import "time"

// QueueEntry is one waiting client inside exactly one queue.  The entry is
// serialized as JSON and stored as the ordered-store member value; its
// position is never stored, it is derived from the entry's rank at read
// time (rank + 1, 1-based).
//
// Within one queue no two entries may share a phone or an email; the
// engine rejects duplicate joins.
//
// Fields:
//  ClientID – opaque UUID assigned at join time, unique within the queue.
//  Name     – display name of the client.
//  Phone    – contact phone, used for de-duplication only.
//  Email    – contact email, used for de-duplication only.
//  JoinedAt – when the client entered the queue.
type QueueEntry struct {
    ClientID string    `json:"client_id"`
    Name     string    `json:"name"`
    Phone    string    `json:"phone"`
    Email    string    `json:"email"`
    JoinedAt time.Time `json:"joined_at"`
}

// PositionedEntry pairs an entry with its derived 1-based position and the
// wait estimate computed from queue metadata.
type PositionedEntry struct {
    QueueEntry
    Position         int64 `json:"position"`
    EstimatedWaitMin int64 `json:"estimated_wait_minutes"`
}
