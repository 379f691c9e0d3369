package engine

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/quepass/quepass/internal/model"
    "github.com/quepass/quepass/internal/payment"
    "github.com/quepass/quepass/internal/repository"
)

// fakeDurable is an in-memory DurableStore so engine tests run without a
// database.
type fakeDurable struct {
    mu     sync.Mutex
    queues map[string]*model.Queue
}

func newFakeDurable(qs ...*model.Queue) *fakeDurable {
    f := &fakeDurable{queues: make(map[string]*model.Queue)}
    for _, q := range qs {
        cp := *q
        f.queues[q.ID] = &cp
    }
    return f
}

func (f *fakeDurable) GetByID(_ context.Context, id string) (*model.Queue, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    q, ok := f.queues[id]
    if !ok {
        return nil, repository.ErrQueueNotFound
    }
    cp := *q
    return &cp, nil
}

func (f *fakeDurable) UpdateStatus(_ context.Context, id, status string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    q, ok := f.queues[id]
    if !ok {
        return repository.ErrQueueNotFound
    }
    q.Status = status
    return nil
}

func testQueue() *model.Queue {
    now := time.Now().UTC()
    return &model.Queue{
        ID:                 "q-1",
        EstablishmentID:    1,
        Name:               "Front desk",
        Status:             model.QueueStatusActive,
        MaxAdvance:         8,
        AdvancePriceCents:  1000,
        MinutesPerPosition: 10,
        CreatedAt:          now,
        UpdatedAt:          now,
    }
}

func newTestEngine(t *testing.T, qs ...*model.Queue) (*Engine, *repository.MemoryOrderedStore, *fakeDurable) {
    t.Helper()
    store := repository.NewMemoryOrderedStore()
    cache := repository.NewMemoryMetadataCache()
    durable := newFakeDurable(qs...)
    for _, q := range qs {
        require.NoError(t, cache.Set(context.Background(), q))
    }
    eng := New(store, cache, durable, payment.NewSimulatedGateway(), nil, time.Second)
    return eng, store, durable
}

// goodCard passes the Luhn check; badCard fails it on the last digit.
var (
    goodCard = payment.Card{Number: "4242 4242 4242 4242", HolderName: "T Tester", ExpMonth: 12, ExpYear: 2030, CVV: "123"}
    badCard  = payment.Card{Number: "4242 4242 4242 4243", HolderName: "T Tester", ExpMonth: 12, ExpYear: 2030, CVV: "123"}
)

func mustJoin(t *testing.T, eng *Engine, queueID, name, phone, email string) *JoinResult {
    t.Helper()
    res, err := eng.Join(context.Background(), queueID, name, phone, email)
    require.NoError(t, err)
    return res
}

// names reads the current ordering as a list of display names.
func names(t *testing.T, eng *Engine, queueID string) []string {
    t.Helper()
    entries, err := eng.ListEntries(context.Background(), queueID)
    require.NoError(t, err)
    out := make([]string, len(entries))
    for i, e := range entries {
        out[i] = e.Name
    }
    return out
}

func TestJoinAssignsTailPositions(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())

    a := mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    b := mustJoin(t, eng, "q-1", "Bob", "222", "bob@example.com")
    c := mustJoin(t, eng, "q-1", "Cara", "333", "cara@example.com")

    assert.Equal(t, int64(1), a.Position)
    assert.Equal(t, int64(2), b.Position)
    assert.Equal(t, int64(3), c.Position)
    assert.NotEmpty(t, a.ClientID)

    // Wait estimate is (position-1) * minutes_per_position.
    assert.Equal(t, int64(0), a.EstimatedWaitMin)
    assert.Equal(t, int64(20), c.EstimatedWaitMin)

    assert.Equal(t, []string{"Alice", "Bob", "Cara"}, names(t, eng, "q-1"))
}

func TestJoinRejectsDuplicateContact(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    mustJoin(t, eng, "q-1", "Alice", "555 000-1111", "alice@example.com")

    _, err := eng.Join(context.Background(), "q-1", "Other", "999", "ALICE@example.com")
    assert.ErrorIs(t, err, repository.ErrDuplicateClient, "same email, different case")

    _, err = eng.Join(context.Background(), "q-1", "Other", "5550001111", "other@example.com")
    assert.ErrorIs(t, err, repository.ErrDuplicateClient, "same phone, different formatting")

    // Two email-only clients with no phone must not collide on the
    // empty phone field.
    mustJoin(t, eng, "q-1", "Bob", "", "bob@example.com")
    mustJoin(t, eng, "q-1", "Cara", "", "cara@example.com")
}

func TestJoinRequiresActiveQueue(t *testing.T) {
    q := testQueue()
    q.Status = model.QueueStatusPaused
    eng, _, _ := newTestEngine(t, q)

    _, err := eng.Join(context.Background(), "q-1", "Alice", "111", "alice@example.com")
    assert.ErrorIs(t, err, repository.ErrQueueNotActive)
}

func TestJoinUnknownQueue(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    _, err := eng.Join(context.Background(), "missing", "Alice", "111", "alice@example.com")
    assert.ErrorIs(t, err, repository.ErrQueueNotFound)
}

func TestLeaveRenumbersTrailers(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    b := mustJoin(t, eng, "q-1", "Bob", "222", "bob@example.com")
    c := mustJoin(t, eng, "q-1", "Cara", "333", "cara@example.com")

    require.NoError(t, eng.Leave(context.Background(), "q-1", b.ClientID))

    assert.Equal(t, []string{"Alice", "Cara"}, names(t, eng, "q-1"))
    pe, err := eng.Position(context.Background(), "q-1", c.ClientID)
    require.NoError(t, err)
    assert.Equal(t, int64(2), pe.Position)

    // After the renumber a fresh join lands at 3, not on a stale score.
    d := mustJoin(t, eng, "q-1", "Dan", "444", "dan@example.com")
    assert.Equal(t, int64(3), d.Position)
    assert.Equal(t, []string{"Alice", "Cara", "Dan"}, names(t, eng, "q-1"))
}

func TestLeaveByContactIdentifier(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    mustJoin(t, eng, "q-1", "Alice", "555-000-1111", "alice@example.com")

    require.NoError(t, eng.Leave(context.Background(), "q-1", "5550001111"))
    assert.Empty(t, names(t, eng, "q-1"))
}

func TestLeaveUnknownClient(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")

    err := eng.Leave(context.Background(), "q-1", "nobody")
    assert.ErrorIs(t, err, repository.ErrClientNotInQueue)
}

func TestAdvanceMovesClientForward(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    a := mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    mustJoin(t, eng, "q-1", "Bob", "222", "bob@example.com")
    c := mustJoin(t, eng, "q-1", "Cara", "333", "cara@example.com")

    res, err := eng.Advance(context.Background(), "q-1", c.ClientID, 2, goodCard)
    require.NoError(t, err)
    assert.Equal(t, int64(3), res.OldPosition)
    assert.Equal(t, int64(1), res.NewPosition)
    assert.Equal(t, 2, res.Advanced)
    assert.Equal(t, uint32(1500), res.AmountCents) // 1.5P for two positions
    assert.NotEmpty(t, res.TransactionID)

    assert.Equal(t, []string{"Cara", "Alice", "Bob"}, names(t, eng, "q-1"))
    pe, err := eng.Position(context.Background(), "q-1", a.ClientID)
    require.NoError(t, err)
    assert.Equal(t, int64(2), pe.Position)
}

func TestAdvanceSingleStep(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    b := mustJoin(t, eng, "q-1", "Bob", "222", "bob@example.com")
    mustJoin(t, eng, "q-1", "Cara", "333", "cara@example.com")

    res, err := eng.Advance(context.Background(), "q-1", b.ClientID, 1, goodCard)
    require.NoError(t, err)
    assert.Equal(t, uint32(1000), res.AmountCents) // 1P for one position
    assert.Equal(t, []string{"Bob", "Alice", "Cara"}, names(t, eng, "q-1"))
}

func TestAdvanceRejectsOutOfBounds(t *testing.T) {
    q := testQueue()
    q.MaxAdvance = 3
    eng, _, _ := newTestEngine(t, q)
    mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    b := mustJoin(t, eng, "q-1", "Bob", "222", "bob@example.com")

    // Bob is second; two positions would overshoot the front.
    _, err := eng.Advance(context.Background(), "q-1", b.ClientID, 2, goodCard)
    assert.ErrorIs(t, err, repository.ErrInvalidAdvanceCount)

    _, err = eng.Advance(context.Background(), "q-1", b.ClientID, 0, goodCard)
    assert.ErrorIs(t, err, repository.ErrInvalidAdvanceCount)

    // MaxAdvance caps the request even when there is room.
    for i := 0; i < 4; i++ {
        mustJoin(t, eng, "q-1", "Filler", "", "filler"+string(rune('a'+i))+"@example.com")
    }
    tail := mustJoin(t, eng, "q-1", "Tail", "777", "tail@example.com")
    _, err = eng.Advance(context.Background(), "q-1", tail.ClientID, 4, goodCard)
    assert.ErrorIs(t, err, repository.ErrInvalidAdvanceCount)
}

func TestAdvanceAloneInQueue(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    a := mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")

    _, err := eng.Advance(context.Background(), "q-1", a.ClientID, 1, goodCard)
    assert.ErrorIs(t, err, repository.ErrInvalidAdvanceCount)
}

func TestAdvanceDeclinedPaymentLeavesOrder(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    b := mustJoin(t, eng, "q-1", "Bob", "222", "bob@example.com")

    _, err := eng.Advance(context.Background(), "q-1", b.ClientID, 1, badCard)
    assert.ErrorIs(t, err, repository.ErrPaymentDeclined)
    assert.Equal(t, []string{"Alice", "Bob"}, names(t, eng, "q-1"))
}

func TestAdvancePausedQueue(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    b := mustJoin(t, eng, "q-1", "Bob", "222", "bob@example.com")

    require.NoError(t, eng.UpdateStatus(context.Background(), "q-1", model.QueueStatusPaused))
    _, err := eng.Advance(context.Background(), "q-1", b.ClientID, 1, goodCard)
    assert.ErrorIs(t, err, repository.ErrQueueNotActive)
}

func TestStatsEmptyQueue(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())

    stats, err := eng.Stats(context.Background(), "q-1")
    require.NoError(t, err)
    assert.Equal(t, int64(0), stats.Waiting)
    assert.Equal(t, int64(0), stats.AvgWaitMinutes)
    assert.Equal(t, model.QueueStatusActive, stats.Status)
}

func TestStatsCountsWaiting(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    mustJoin(t, eng, "q-1", "Bob", "222", "bob@example.com")
    mustJoin(t, eng, "q-1", "Cara", "333", "cara@example.com")

    stats, err := eng.Stats(context.Background(), "q-1")
    require.NoError(t, err)
    assert.Equal(t, int64(3), stats.Waiting)
    assert.Equal(t, int64(15), stats.AvgWaitMinutes) // 3*10/2
}

func TestUpdateStatusLifecycle(t *testing.T) {
    eng, _, durable := newTestEngine(t, testQueue())
    ctx := context.Background()

    require.NoError(t, eng.UpdateStatus(ctx, "q-1", "paused"))
    q, err := durable.GetByID(ctx, "q-1")
    require.NoError(t, err)
    assert.Equal(t, model.QueueStatusPaused, q.Status)

    require.NoError(t, eng.UpdateStatus(ctx, "q-1", model.QueueStatusActive))

    // Closing is not an UpdateStatus transition.
    err = eng.UpdateStatus(ctx, "q-1", model.QueueStatusClosed)
    assert.ErrorIs(t, err, repository.ErrInvalidStatusTransition)
    err = eng.UpdateStatus(ctx, "q-1", "bogus")
    assert.ErrorIs(t, err, repository.ErrInvalidStatusTransition)
}

func TestCloseDiscardsOrderingAndIsIdempotent(t *testing.T) {
    eng, _, durable := newTestEngine(t, testQueue())
    ctx := context.Background()
    mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    mustJoin(t, eng, "q-1", "Bob", "222", "bob@example.com")

    require.NoError(t, eng.Close(ctx, "q-1"))
    q, err := durable.GetByID(ctx, "q-1")
    require.NoError(t, err)
    assert.Equal(t, model.QueueStatusClosed, q.Status)

    // The live ordering is gone and the metadata rehydrates CLOSED.
    stats, err := eng.Stats(ctx, "q-1")
    require.NoError(t, err)
    assert.Equal(t, int64(0), stats.Waiting)
    assert.Equal(t, model.QueueStatusClosed, stats.Status)

    _, err = eng.Join(ctx, "q-1", "Late", "999", "late@example.com")
    assert.ErrorIs(t, err, repository.ErrQueueNotActive)

    // Closing again is a no-op success.
    require.NoError(t, eng.Close(ctx, "q-1"))

    // Reopening a closed queue is rejected.
    err = eng.UpdateStatus(ctx, "q-1", model.QueueStatusActive)
    assert.ErrorIs(t, err, repository.ErrInvalidStatusTransition)
}

func TestCloseInvalidatesCachedMetadata(t *testing.T) {
    store := repository.NewMemoryOrderedStore()
    cache := repository.NewMemoryMetadataCache()
    durable := newFakeDurable(testQueue())
    eng := New(store, cache, durable, payment.NewSimulatedGateway(), nil, time.Second)
    ctx := context.Background()

    q, err := durable.GetByID(ctx, "q-1")
    require.NoError(t, err)
    require.NoError(t, cache.Set(ctx, q))

    require.NoError(t, eng.Close(ctx, "q-1"))

    // The stale ACTIVE record must be gone from the cache itself, not
    // just from whatever keys the ordering store shares with it.
    _, err = cache.Get(ctx, "q-1")
    assert.ErrorIs(t, err, repository.ErrCacheMiss)

    stats, err := eng.Stats(ctx, "q-1")
    require.NoError(t, err)
    assert.Equal(t, model.QueueStatusClosed, stats.Status)
}

// pausingGate approves the charge but pauses the queue first, modeling a
// lifecycle change landing inside the payment window.
type pausingGate struct {
    eng     *Engine
    queueID string
}

func (g *pausingGate) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
    if err := g.eng.UpdateStatus(ctx, g.queueID, model.QueueStatusPaused); err != nil {
        return payment.ChargeResult{}, err
    }
    return payment.ChargeResult{Approved: true, TransactionID: "txn-paused"}, nil
}

func TestAdvanceRejectsQueuePausedDuringPayment(t *testing.T) {
    store := repository.NewMemoryOrderedStore()
    cache := repository.NewMemoryMetadataCache()
    durable := newFakeDurable(testQueue())
    ctx := context.Background()
    require.NoError(t, cache.Set(ctx, durable.queues["q-1"]))

    gate := &pausingGate{queueID: "q-1"}
    eng := New(store, cache, durable, gate, nil, time.Second)
    gate.eng = eng

    mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    b := mustJoin(t, eng, "q-1", "Bob", "222", "bob@example.com")

    _, err := eng.Advance(ctx, "q-1", b.ClientID, 1, goodCard)
    assert.ErrorIs(t, err, repository.ErrQueueNotActive)
    assert.Equal(t, []string{"Alice", "Bob"}, names(t, eng, "q-1"))
}

func TestCacheMissRehydratesFromDurable(t *testing.T) {
    store := repository.NewMemoryOrderedStore()
    cache := repository.NewMemoryMetadataCache()
    durable := newFakeDurable(testQueue())
    eng := New(store, cache, durable, payment.NewSimulatedGateway(), nil, time.Second)

    // Nothing was cached; the first operation must fall back to the
    // durable record and then repopulate the cache.
    res := mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    assert.Equal(t, int64(1), res.Position)

    cached, err := cache.Get(context.Background(), "q-1")
    require.NoError(t, err)
    assert.Equal(t, "Front desk", cached.Name)
}

func TestStoreUnavailableSurfaces(t *testing.T) {
    eng, store, _ := newTestEngine(t, testQueue())
    store.Fail = true

    _, err := eng.Join(context.Background(), "q-1", "Alice", "111", "alice@example.com")
    assert.ErrorIs(t, err, repository.ErrStoreUnavailable)

    _, err = eng.Stats(context.Background(), "q-1")
    assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
}

func TestMyQueuesSkipsAbsentMemberships(t *testing.T) {
    q2 := testQueue()
    q2.ID = "q-2"
    eng, _, _ := newTestEngine(t, testQueue(), q2)
    ctx := context.Background()

    a := mustJoin(t, eng, "q-1", "Alice", "111", "alice@example.com")
    mustJoin(t, eng, "q-2", "Bob", "222", "bob@example.com")

    positions, err := eng.MyQueues(ctx, a.ClientID, []string{"q-1", "q-2", "missing"})
    require.NoError(t, err)
    require.Len(t, positions, 1)
    assert.Equal(t, int64(1), positions["q-1"].Position)
}

func TestConcurrentJoinsStayDense(t *testing.T) {
    eng, _, _ := newTestEngine(t, testQueue())
    ctx := context.Background()

    const n = 20
    var wg sync.WaitGroup
    errs := make([]error, n)
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            email := "client" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + "@example.com"
            _, errs[i] = eng.Join(ctx, "q-1", "Client", "", email)
        }(i)
    }
    wg.Wait()
    for _, err := range errs {
        require.NoError(t, err)
    }

    entries, err := eng.ListEntries(ctx, "q-1")
    require.NoError(t, err)
    require.Len(t, entries, n)
    for i, e := range entries {
        assert.Equal(t, int64(i)+1, e.Position)
    }
}
