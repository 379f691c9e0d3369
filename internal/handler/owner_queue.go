package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/quepass/quepass/internal/model"
    "github.com/quepass/quepass/internal/repository"
)

// queueBody is the owner-editable metadata of a queue.
type queueBody struct {
    Name               string `json:"name"`
    Description        string `json:"description"`
    MaxAdvance         int    `json:"max_advance"`
    AdvancePriceCents  uint32 `json:"advance_price_cents"`
    MinutesPerPosition int    `json:"minutes_per_position"`
}

func (b *queueBody) validate() string {
    b.Name = strings.TrimSpace(b.Name)
    if b.Name == "" {
        return "name is required"
    }
    if b.MaxAdvance < model.MinAdvancePositions || b.MaxAdvance > model.MaxAdvanceCeiling {
        return "max_advance must be between 1 and 8"
    }
    if b.MinutesPerPosition <= 0 {
        return "minutes_per_position must be positive"
    }
    return ""
}

// CreateQueue handles POST /v1/establishments/:id/queues. The durable
// row is created first; the metadata cache is then write-throughed so
// the first join does not pay a relational round trip.
func (h *OwnerHandler) CreateQueue(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    estID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || estID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid establishment id"})
    }
    ctx := c.Request().Context()
    if _, err := h.Establishments.GetByIDAndOwner(ctx, estID, ownerID); err != nil {
        if err == repository.ErrEstablishmentNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "establishment not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    var body queueBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if msg := body.validate(); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    q := &model.Queue{
        ID:                 uuid.NewString(),
        EstablishmentID:    estID,
        Name:               body.Name,
        Description:        body.Description,
        MaxAdvance:         body.MaxAdvance,
        AdvancePriceCents:  body.AdvancePriceCents,
        MinutesPerPosition: body.MinutesPerPosition,
    }
    if err := h.Queues.Create(ctx, q); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create queue"})
    }
    if err := h.Engine.CacheMetadata(ctx, q); err != nil {
        // The cache will repopulate on first read; log-worthy but not fatal.
        c.Logger().Warnf("cache queue %s failed: %v", q.ID, err)
    }
    return c.JSON(http.StatusCreated, q)
}

// ListQueues handles GET /v1/establishments/:id/queues, including closed
// queues so owners keep their history.
func (h *OwnerHandler) ListQueues(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    estID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || estID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid establishment id"})
    }
    ctx := c.Request().Context()
    if _, err := h.Establishments.GetByIDAndOwner(ctx, estID, ownerID); err != nil {
        if err == repository.ErrEstablishmentNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "establishment not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    items, err := h.Queues.ListByEstablishment(ctx, estID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list queues"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UpdateQueue handles PUT /v1/queues/:id (metadata edit; lifecycle goes
// through UpdateQueueStatus/CloseQueue).
func (h *OwnerHandler) UpdateQueue(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    queueID := c.Param("id")
    ctx := c.Request().Context()
    q, err := h.Queues.GetByIDAndOwner(ctx, queueID, ownerID)
    if err != nil {
        return engineError(c, err)
    }
    var body queueBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if msg := body.validate(); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    q.Name = body.Name
    q.Description = body.Description
    q.MaxAdvance = body.MaxAdvance
    q.AdvancePriceCents = body.AdvancePriceCents
    q.MinutesPerPosition = body.MinutesPerPosition
    if err := h.Queues.Update(ctx, q); err != nil {
        return engineError(c, err)
    }
    if err := h.Engine.CacheMetadata(ctx, q); err != nil {
        c.Logger().Warnf("cache queue %s failed: %v", q.ID, err)
    }
    return c.JSON(http.StatusOK, q)
}

// UpdateQueueStatus handles PATCH /v1/queues/:id/status, toggling
// between ACTIVE and PAUSED.
func (h *OwnerHandler) UpdateQueueStatus(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    queueID := c.Param("id")
    ctx := c.Request().Context()
    if _, err := h.Queues.GetByIDAndOwner(ctx, queueID, ownerID); err != nil {
        return engineError(c, err)
    }
    var body struct {
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := h.Engine.UpdateStatus(ctx, queueID, body.Status); err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": queueID, "status": strings.ToUpper(strings.TrimSpace(body.Status))})
}

// CloseQueue handles POST /v1/queues/:id/close. Terminal and idempotent:
// a second close succeeds as a no-op.
func (h *OwnerHandler) CloseQueue(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    queueID := c.Param("id")
    ctx := c.Request().Context()
    if _, err := h.Queues.GetByIDAndOwner(ctx, queueID, ownerID); err != nil {
        return engineError(c, err)
    }
    if err := h.Engine.Close(ctx, queueID); err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": queueID, "status": model.QueueStatusClosed})
}

// ListClients handles GET /v1/queues/:id/clients: the full ordering with
// derived positions, front first.
func (h *OwnerHandler) ListClients(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    queueID := c.Param("id")
    ctx := c.Request().Context()
    if _, err := h.Queues.GetByIDAndOwner(ctx, queueID, ownerID); err != nil {
        return engineError(c, err)
    }
    entries, err := h.Engine.ListEntries(ctx, queueID)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": entries, "count": len(entries)})
}
