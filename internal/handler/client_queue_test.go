package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/quepass/quepass/internal/engine"
    "github.com/quepass/quepass/internal/model"
    "github.com/quepass/quepass/internal/payment"
    "github.com/quepass/quepass/internal/repository"
)

// staticDurable serves a fixed set of queues so handler tests run
// without a database.
type staticDurable struct {
    queues map[string]*model.Queue
}

func (s *staticDurable) GetByID(_ context.Context, id string) (*model.Queue, error) {
    q, ok := s.queues[id]
    if !ok {
        return nil, repository.ErrQueueNotFound
    }
    cp := *q
    return &cp, nil
}

func (s *staticDurable) UpdateStatus(_ context.Context, id, status string) error {
    q, ok := s.queues[id]
    if !ok {
        return repository.ErrQueueNotFound
    }
    q.Status = status
    return nil
}

func newClientHandlerTest(t *testing.T) *ClientHandler {
    t.Helper()
    q := &model.Queue{
        ID:                 "q-1",
        EstablishmentID:    1,
        Name:               "Front desk",
        Status:             model.QueueStatusActive,
        MaxAdvance:         8,
        AdvancePriceCents:  1000,
        MinutesPerPosition: 5,
        CreatedAt:          time.Now().UTC(),
        UpdatedAt:          time.Now().UTC(),
    }
    eng := engine.New(
        repository.NewMemoryOrderedStore(),
        repository.NewMemoryMetadataCache(),
        &staticDurable{queues: map[string]*model.Queue{"q-1": q}},
        payment.NewSimulatedGateway(),
        nil,
        time.Second,
    )
    return NewClientHandler(eng)
}

func doJSON(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func newTestServer(t *testing.T) (*echo.Echo, *ClientHandler) {
    t.Helper()
    h := newClientHandlerTest(t)
    e := echo.New()
    e.POST("/v1/queues/:id/join", h.Join)
    e.DELETE("/v1/queues/:id/leave", h.Leave)
    e.POST("/v1/queues/:id/advance", h.Advance)
    e.GET("/v1/queues/:id/position", h.Position)
    e.GET("/v1/queues/:id/stats", h.Stats)
    e.GET("/v1/my-queues", h.MyQueues)
    return e, h
}

func TestJoinEndpoint(t *testing.T) {
    e, _ := newTestServer(t)

    rec := doJSON(t, e, http.MethodPost, "/v1/queues/q-1/join",
        `{"name":"Alice","phone":"555-0001","email":"alice@example.com"}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

    var res engine.JoinResult
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
    assert.Equal(t, int64(1), res.Position)
    assert.NotEmpty(t, res.ClientID)

    // Same contact again conflicts.
    rec = doJSON(t, e, http.MethodPost, "/v1/queues/q-1/join",
        `{"name":"Alice","phone":"555-0001","email":"alice@example.com"}`)
    assert.Equal(t, http.StatusConflict, rec.Code)

    // Missing contact info is a client error before the engine is hit.
    rec = doJSON(t, e, http.MethodPost, "/v1/queues/q-1/join", `{"name":"NoContact"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = doJSON(t, e, http.MethodPost, "/v1/queues/unknown/join",
        `{"name":"Bob","email":"bob@example.com"}`)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdvanceEndpoint(t *testing.T) {
    e, _ := newTestServer(t)

    join := func(name, email string) engine.JoinResult {
        rec := doJSON(t, e, http.MethodPost, "/v1/queues/q-1/join",
            `{"name":"`+name+`","email":"`+email+`"}`)
        require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
        var res engine.JoinResult
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
        return res
    }
    alice := join("Alice", "alice@example.com")
    bob := join("Bob", "bob@example.com")

    rec := doJSON(t, e, http.MethodPost, "/v1/queues/q-1/advance",
        `{"client_id":"`+bob.ClientID+`","positions":1,"card":{"number":"4242424242424242"}}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

    var res engine.AdvanceResult
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
    assert.Equal(t, int64(1), res.NewPosition)
    assert.Equal(t, uint32(1000), res.AmountCents)

    // Alice now sits second with room to move, so a failing card reaches
    // the gateway: 402 and nothing moves.
    rec = doJSON(t, e, http.MethodPost, "/v1/queues/q-1/advance",
        `{"client_id":"`+alice.ClientID+`","positions":1,"card":{"number":"4242424242424243"}}`)
    assert.Equal(t, http.StatusPaymentRequired, rec.Code)

    rec = doJSON(t, e, http.MethodGet, "/v1/queues/q-1/position?client_id="+alice.ClientID, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var pe model.PositionedEntry
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pe))
    assert.Equal(t, int64(2), pe.Position)

    // Bob already holds the front; another step is out of bounds and is
    // rejected before any charge.
    rec = doJSON(t, e, http.MethodPost, "/v1/queues/q-1/advance",
        `{"client_id":"`+bob.ClientID+`","positions":1,"card":{"number":"4242424242424242"}}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaveAndPositionEndpoints(t *testing.T) {
    e, _ := newTestServer(t)

    rec := doJSON(t, e, http.MethodPost, "/v1/queues/q-1/join",
        `{"name":"Alice","email":"alice@example.com"}`)
    require.Equal(t, http.StatusCreated, rec.Code)
    var joined engine.JoinResult
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))

    rec = doJSON(t, e, http.MethodGet, "/v1/queues/q-1/position?client_id="+joined.ClientID, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var pe model.PositionedEntry
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pe))
    assert.Equal(t, int64(1), pe.Position)

    rec = doJSON(t, e, http.MethodDelete, "/v1/queues/q-1/leave",
        `{"identifier":"alice@example.com"}`)
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = doJSON(t, e, http.MethodGet, "/v1/queues/q-1/position?client_id="+joined.ClientID, "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpointPublic(t *testing.T) {
    e, _ := newTestServer(t)

    rec := doJSON(t, e, http.MethodGet, "/v1/queues/q-1/stats", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var stats model.QueueStats
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
    assert.Equal(t, int64(0), stats.Waiting)
    assert.Equal(t, model.QueueStatusActive, stats.Status)

    rec = doJSON(t, e, http.MethodGet, "/v1/queues/unknown/stats", "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMyQueuesEndpoint(t *testing.T) {
    e, _ := newTestServer(t)

    rec := doJSON(t, e, http.MethodPost, "/v1/queues/q-1/join",
        `{"name":"Alice","email":"alice@example.com"}`)
    require.Equal(t, http.StatusCreated, rec.Code)
    var joined engine.JoinResult
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))

    rec = doJSON(t, e, http.MethodGet, "/v1/my-queues?client_id="+joined.ClientID+"&queue_ids=q-1,missing", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var body struct {
        Queues map[string]model.PositionedEntry `json:"queues"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    require.Len(t, body.Queues, 1)
    assert.Equal(t, int64(1), body.Queues["q-1"].Position)

    rec = doJSON(t, e, http.MethodGet, "/v1/my-queues?client_id="+joined.ClientID, "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}
