// Package engine implements the virtual queue core: it owns every
// mutation of a queue's ordering and is the only component allowed to
// touch the ordered store. Handlers call it with plain data and receive
// plain data or one of the sentinel errors from internal/repository.
//
// Concurrency contract: all mutating operations on the same queue run
// inside one exclusive critical section keyed by queue id; operations on
// different queues never block each other. Payment is charged before the
// critical section begins so a slow gateway cannot hold a queue lock.
package engine

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/quepass/quepass/internal/model"
    "github.com/quepass/quepass/internal/payment"
    "github.com/quepass/quepass/internal/repository"
)

// DurableStore is the slice of the relational layer the engine needs:
// cold-start rehydration of metadata and persisting lifecycle changes.
// *repository.QueueRepo satisfies it.
type DurableStore interface {
    GetByID(ctx context.Context, id string) (*model.Queue, error)
    UpdateStatus(ctx context.Context, id, status string) error
}

// EventSink receives domain events after a mutation commits. The engine
// never fails an operation because of the sink; implementations log and
// swallow their own errors.
type EventSink interface {
    ClientJoined(ctx context.Context, queueID string, entry model.QueueEntry, position int64)
    AdvanceCompleted(ctx context.Context, txn model.AdvanceTransaction)
}

// NopSink discards all events. Used in tests and when no broker is
// configured.
type NopSink struct{}

func (NopSink) ClientJoined(context.Context, string, model.QueueEntry, int64) {}
func (NopSink) AdvanceCompleted(context.Context, model.AdvanceTransaction)    {}

// JoinResult is returned to a client who entered a queue.
type JoinResult struct {
    ClientID         string `json:"client_id"`
    Position         int64  `json:"position"`
    EstimatedWaitMin int64  `json:"estimated_wait_minutes"`
}

// AdvanceResult reports the outcome of a paid advance.
type AdvanceResult struct {
    OldPosition   int64  `json:"old_position"`
    NewPosition   int64  `json:"new_position"`
    Advanced      int    `json:"advanced"`
    AmountCents   uint32 `json:"amount_cents"`
    TransactionID string `json:"transaction_id"`
}

// Engine wires the ordered store, the metadata cache, the durable
// metadata record, the payment gate and the event sink together.
type Engine struct {
    store      repository.OrderedStore
    cache      repository.MetadataCache
    durable    DurableStore
    gate       payment.Gate
    sink       EventSink
    locks      *lockTable
    payTimeout time.Duration
}

// New constructs an Engine. sink may be nil (NopSink is used);
// payTimeout bounds every payment gate call and defaults to 5s.
func New(store repository.OrderedStore, cache repository.MetadataCache, durable DurableStore, gate payment.Gate, sink EventSink, payTimeout time.Duration) *Engine {
    if sink == nil {
        sink = NopSink{}
    }
    if payTimeout <= 0 {
        payTimeout = 5 * time.Second
    }
    return &Engine{
        store:      store,
        cache:      cache,
        durable:    durable,
        gate:       gate,
        sink:       sink,
        locks:      newLockTable(),
        payTimeout: payTimeout,
    }
}

// loadQueue resolves queue metadata through the cache. On a miss it
// falls back to the durable record, repopulates the cache and only then
// proceeds; the engine never operates on assumed-default metadata.
func (e *Engine) loadQueue(ctx context.Context, queueID string) (*model.Queue, error) {
    q, err := e.cache.Get(ctx, queueID)
    if err == nil {
        return q, nil
    }
    if !errors.Is(err, repository.ErrCacheMiss) {
        return nil, err
    }
    q, err = e.durable.GetByID(ctx, queueID)
    if err != nil {
        return nil, err
    }
    if err := e.cache.Set(ctx, q); err != nil {
        return nil, err
    }
    return q, nil
}

// CacheMetadata write-throughs a fresh metadata record, e.g. right after
// a queue is created or its durable row edited.
func (e *Engine) CacheMetadata(ctx context.Context, q *model.Queue) error {
    return e.cache.Set(ctx, q)
}

// entries loads and decodes the full ordered list of a queue.
func (e *Engine) entries(ctx context.Context, queueID string) ([]repository.ScoredMember, []model.QueueEntry, error) {
    members, err := e.store.Range(ctx, queueID, 0, -1)
    if err != nil {
        return nil, nil, err
    }
    decoded := make([]model.QueueEntry, len(members))
    for i, m := range members {
        if err := json.Unmarshal([]byte(m.Member), &decoded[i]); err != nil {
            return nil, nil, fmt.Errorf("corrupt entry in queue %s: %w", queueID, err)
        }
    }
    return members, decoded, nil
}

// Join appends a client to the tail of an active queue. Steps dedupe,
// id assignment and insert run as one atomic unit under the queue lock
// so two concurrent joins can never compute the same tail score.
func (e *Engine) Join(ctx context.Context, queueID, name, phone, email string) (*JoinResult, error) {
    q, err := e.loadQueue(ctx, queueID)
    if err != nil {
        return nil, err
    }
    if !q.IsActive() {
        return nil, repository.ErrQueueNotActive
    }

    var (
        entry    model.QueueEntry
        position int64
    )
    lock := e.locks.forQueue(queueID)
    lock.Lock()
    err = func() error {
        _, decoded, err := e.entries(ctx, queueID)
        if err != nil {
            return err
        }
        // Empty contact fields never collide with each other.
        phoneNorm := normalizePhone(phone)
        for _, ex := range decoded {
            if email != "" && strings.EqualFold(ex.Email, email) {
                return repository.ErrDuplicateClient
            }
            if phoneNorm != "" && normalizePhone(ex.Phone) == phoneNorm {
                return repository.ErrDuplicateClient
            }
        }
        entry = model.QueueEntry{
            ClientID: uuid.NewString(),
            Name:     name,
            Phone:    phone,
            Email:    email,
            JoinedAt: time.Now().UTC(),
        }
        member, err := json.Marshal(entry)
        if err != nil {
            return err
        }
        // New clients always enter at the back, never interleaved.
        position = int64(len(decoded)) + 1
        return e.store.Insert(ctx, queueID, float64(position), string(member))
    }()
    lock.Unlock()
    if err != nil {
        return nil, err
    }

    e.sink.ClientJoined(ctx, queueID, entry, position)
    return &JoinResult{
        ClientID:         entry.ClientID,
        Position:         position,
        EstimatedWaitMin: (position - 1) * int64(q.MinutesPerPosition),
    }, nil
}

// Leave removes exactly one entry, matched by client id or by an exact
// contact field. Trailing entries are renumbered back to a contiguous
// 1..N score sequence so that a later tail join cannot collide with a
// surviving score.
func (e *Engine) Leave(ctx context.Context, queueID, identifier string) error {
    if _, err := e.loadQueue(ctx, queueID); err != nil {
        return err
    }

    lock := e.locks.forQueue(queueID)
    lock.Lock()
    defer lock.Unlock()

    members, decoded, err := e.entries(ctx, queueID)
    if err != nil {
        return err
    }
    idx := findEntry(decoded, identifier)
    if idx < 0 {
        return repository.ErrClientNotInQueue
    }
    if err := e.store.Remove(ctx, queueID, members[idx].Member); err != nil {
        return err
    }
    // Everyone behind the leaver shifts forward one slot, keeping the
    // score sequence dense 1..N.
    trailing := make([]repository.ScoredMember, 0, len(members)-idx-1)
    for j := idx + 1; j < len(members); j++ {
        trailing = append(trailing, repository.ScoredMember{Member: members[j].Member, Score: float64(j)})
    }
    return e.store.InsertAll(ctx, queueID, trailing)
}

// Advance moves a paying client a bounded number of positions toward the
// front. The charge happens synchronously before the queue lock is
// taken; a declined payment mutates nothing. Under the lock the queue
// status and the rank are re-validated and the shift clamped to what is
// still possible, then the
// affected slice of the ordering is rewritten as a contiguous integer
// sequence with the client exactly n slots earlier.
func (e *Engine) Advance(ctx context.Context, queueID, clientID string, positions int, card payment.Card) (*AdvanceResult, error) {
    q, err := e.loadQueue(ctx, queueID)
    if err != nil {
        return nil, err
    }
    if !q.IsActive() {
        return nil, repository.ErrQueueNotActive
    }

    // Pre-payment validation against a point-in-time read. The same
    // checks are repeated under the lock before re-scoring.
    _, decoded, err := e.entries(ctx, queueID)
    if err != nil {
        return nil, err
    }
    if len(decoded) < 2 {
        // Advancing is meaningless when the requester is alone.
        return nil, repository.ErrInvalidAdvanceCount
    }
    idx := findEntry(decoded, clientID)
    if idx < 0 {
        return nil, repository.ErrClientNotInQueue
    }
    maxN := q.MaxAdvance
    if maxN > model.MaxAdvanceCeiling {
        maxN = model.MaxAdvanceCeiling
    }
    if idx < maxN {
        maxN = idx // cannot advance past the front
    }
    if positions < model.MinAdvancePositions || positions > maxN {
        return nil, repository.ErrInvalidAdvanceCount
    }
    amount, err := AdvancePriceCents(q.AdvancePriceCents, positions)
    if err != nil {
        return nil, err
    }

    payCtx, cancel := context.WithTimeout(ctx, e.payTimeout)
    res, err := e.gate.Charge(payCtx, payment.ChargeRequest{
        ClientID:    clientID,
        QueueID:     queueID,
        AmountCents: amount,
        Card:        card,
    })
    cancel()
    if err != nil {
        return nil, fmt.Errorf("payment gate: %w", err)
    }
    if !res.Approved {
        return nil, fmt.Errorf("%w: %s", repository.ErrPaymentDeclined, res.DeclineReason)
    }

    var out *AdvanceResult
    lock := e.locks.forQueue(queueID)
    lock.Lock()
    err = func() error {
        // The queue may have been paused or closed while the charge was
        // in flight; never re-score an inactive queue.
        q, err := e.loadQueue(ctx, queueID)
        if err != nil {
            return err
        }
        if !q.IsActive() {
            return repository.ErrQueueNotActive
        }
        members, decoded, err := e.entries(ctx, queueID)
        if err != nil {
            return err
        }
        idx := findEntry(decoded, clientID)
        if idx < 0 {
            // The client paid and then left (or the queue was closed)
            // before the re-scoring section. The ordering is untouched.
            return repository.ErrClientNotInQueue
        }
        shift := positions
        if shift > idx {
            shift = idx
        }
        oldPos := int64(idx) + 1
        newIdx := idx - shift
        // Rewrite the affected window in one atomic operation: the
        // mover lands on newIdx, every displaced entry slides back one
        // slot. Scores stay a dense 1..N sequence throughout.
        window := make([]repository.ScoredMember, 0, shift+1)
        window = append(window, repository.ScoredMember{Member: members[idx].Member, Score: float64(newIdx + 1)})
        for j := newIdx; j < idx; j++ {
            window = append(window, repository.ScoredMember{Member: members[j].Member, Score: float64(j + 2)})
        }
        if err := e.store.InsertAll(ctx, queueID, window); err != nil {
            return err
        }
        out = &AdvanceResult{
            OldPosition:   oldPos,
            NewPosition:   int64(newIdx) + 1,
            Advanced:      shift,
            AmountCents:   amount,
            TransactionID: res.TransactionID,
        }
        return nil
    }()
    lock.Unlock()
    if err != nil {
        return nil, err
    }

    e.sink.AdvanceCompleted(ctx, model.AdvanceTransaction{
        TransactionID: out.TransactionID,
        QueueID:       queueID,
        ClientID:      clientID,
        FromPosition:  out.OldPosition,
        ToPosition:    out.NewPosition,
        Positions:     out.Advanced,
        AmountCents:   out.AmountCents,
        Approved:      true,
        CreatedAt:     time.Now().UTC(),
    })
    return out, nil
}

// Position returns a client's current 1-based position and wait estimate.
func (e *Engine) Position(ctx context.Context, queueID, clientID string) (*model.PositionedEntry, error) {
    q, err := e.loadQueue(ctx, queueID)
    if err != nil {
        return nil, err
    }
    _, decoded, err := e.entries(ctx, queueID)
    if err != nil {
        return nil, err
    }
    idx := findEntry(decoded, clientID)
    if idx < 0 {
        return nil, repository.ErrClientNotInQueue
    }
    return positioned(decoded[idx], int64(idx)+1, q), nil
}

// ListEntries returns the whole ordering with derived positions, front
// first.
func (e *Engine) ListEntries(ctx context.Context, queueID string) ([]*model.PositionedEntry, error) {
    q, err := e.loadQueue(ctx, queueID)
    if err != nil {
        return nil, err
    }
    _, decoded, err := e.entries(ctx, queueID)
    if err != nil {
        return nil, err
    }
    out := make([]*model.PositionedEntry, len(decoded))
    for i, entry := range decoded {
        out[i] = positioned(entry, int64(i)+1, q)
    }
    return out, nil
}

// Stats is a pure read and succeeds for empty queues with zero values.
func (e *Engine) Stats(ctx context.Context, queueID string) (*model.QueueStats, error) {
    q, err := e.loadQueue(ctx, queueID)
    if err != nil {
        return nil, err
    }
    n, err := e.store.Cardinality(ctx, queueID)
    if err != nil {
        return nil, err
    }
    return &model.QueueStats{
        QueueID:        queueID,
        Status:         q.Status,
        Waiting:        n,
        AvgWaitMinutes: n * int64(q.MinutesPerPosition) / 2,
        CreatedAt:      q.CreatedAt,
        UpdatedAt:      q.UpdatedAt,
    }, nil
}

// UpdateStatus toggles a queue between ACTIVE and PAUSED. Closing goes
// through Close so that the ordering teardown cannot be skipped.
func (e *Engine) UpdateStatus(ctx context.Context, queueID, status string) error {
    status = strings.ToUpper(strings.TrimSpace(status))
    if status != model.QueueStatusActive && status != model.QueueStatusPaused {
        return repository.ErrInvalidStatusTransition
    }
    lock := e.locks.forQueue(queueID)
    lock.Lock()
    defer lock.Unlock()

    q, err := e.loadQueue(ctx, queueID)
    if err != nil {
        return err
    }
    if !q.CanTransitionTo(status) {
        return repository.ErrInvalidStatusTransition
    }
    if err := e.durable.UpdateStatus(ctx, queueID, status); err != nil {
        return err
    }
    q.Status = status
    q.UpdatedAt = time.Now().UTC()
    return e.cache.Set(ctx, q)
}

// Close transitions a queue to its terminal state and discards the live
// ordering. The metadata row is preserved for history. Closing an
// already-closed queue is a no-op success.
func (e *Engine) Close(ctx context.Context, queueID string) error {
    lock := e.locks.forQueue(queueID)
    lock.Lock()
    defer lock.Unlock()

    q, err := e.loadQueue(ctx, queueID)
    if err != nil {
        return err
    }
    if q.Status == model.QueueStatusClosed {
        return nil
    }
    if err := e.durable.UpdateStatus(ctx, queueID, model.QueueStatusClosed); err != nil {
        return err
    }
    // The cached record still says ACTIVE or PAUSED; drop it so the next
    // read rehydrates CLOSED from the durable row.
    if err := e.cache.Invalidate(ctx, queueID); err != nil {
        return err
    }
    return e.store.DeleteAll(ctx, queueID)
}

// MyQueues reports the client's position in each of the given queues.
// One read per queue; the results are each independently current as of
// their own read, not a consistent cross-queue snapshot.
func (e *Engine) MyQueues(ctx context.Context, clientID string, queueIDs []string) (map[string]*model.PositionedEntry, error) {
    out := make(map[string]*model.PositionedEntry)
    for _, id := range queueIDs {
        pe, err := e.Position(ctx, id, clientID)
        if err != nil {
            if errors.Is(err, repository.ErrClientNotInQueue) || errors.Is(err, repository.ErrQueueNotFound) {
                continue
            }
            return nil, err
        }
        out[id] = pe
    }
    return out, nil
}

// findEntry matches by client id first, then by exact email or phone.
func findEntry(entries []model.QueueEntry, identifier string) int {
    for i, e := range entries {
        if e.ClientID == identifier {
            return i
        }
    }
    norm := normalizePhone(identifier)
    for i, e := range entries {
        if e.Email != "" && strings.EqualFold(e.Email, identifier) {
            return i
        }
        if e.Phone != "" && normalizePhone(e.Phone) == norm {
            return i
        }
    }
    return -1
}

func positioned(entry model.QueueEntry, pos int64, q *model.Queue) *model.PositionedEntry {
    return &model.PositionedEntry{
        QueueEntry:       entry,
        Position:         pos,
        EstimatedWaitMin: (pos - 1) * int64(q.MinutesPerPosition),
    }
}

// normalizePhone strips spaces, dashes and parentheses so that the same
// number written differently still collides on dedupe.
func normalizePhone(p string) string {
    var b strings.Builder
    for _, r := range p {
        switch r {
        case ' ', '-', '(', ')':
        default:
            b.WriteRune(r)
        }
    }
    return b.String()
}
