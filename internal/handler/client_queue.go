package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/quepass/quepass/internal/payment"
)

// ClientHandler serves the client-facing queue operations. Clients are
// identified inside a queue by the client_id handed out at join time,
// independently of the authenticated account.
type ClientHandler struct {
    Engine QueueEngine
}

func NewClientHandler(eng QueueEngine) *ClientHandler {
    if eng == nil {
        panic("nil engine passed to NewClientHandler")
    }
    return &ClientHandler{Engine: eng}
}

// Join handles POST /v1/queues/:id/join.
func (h *ClientHandler) Join(c echo.Context) error {
    queueID := c.Param("id")
    var body struct {
        Name  string `json:"name"`
        Phone string `json:"phone"`
        Email string `json:"email"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.Name = strings.TrimSpace(body.Name)
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    if strings.TrimSpace(body.Phone) == "" && strings.TrimSpace(body.Email) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone or email is required"})
    }
    res, err := h.Engine.Join(c.Request().Context(), queueID, body.Name, body.Phone, body.Email)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusCreated, res)
}

// Leave handles DELETE /v1/queues/:id/leave. The identifier may be the
// client id from join or the contact the client joined with.
func (h *ClientHandler) Leave(c echo.Context) error {
    queueID := c.Param("id")
    var body struct {
        Identifier string `json:"identifier"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if strings.TrimSpace(body.Identifier) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "identifier is required"})
    }
    if err := h.Engine.Leave(c.Request().Context(), queueID, body.Identifier); err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"left": true})
}

// Advance handles POST /v1/queues/:id/advance: charge first, reorder on
// approval. A 402 means the card was declined and nothing moved.
func (h *ClientHandler) Advance(c echo.Context) error {
    queueID := c.Param("id")
    var body struct {
        ClientID  string       `json:"client_id"`
        Positions int          `json:"positions"`
        Card      payment.Card `json:"card"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if strings.TrimSpace(body.ClientID) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id is required"})
    }
    res, err := h.Engine.Advance(c.Request().Context(), queueID, body.ClientID, body.Positions, body.Card)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Position handles GET /v1/queues/:id/position?client_id=...
func (h *ClientHandler) Position(c echo.Context) error {
    queueID := c.Param("id")
    clientID := strings.TrimSpace(c.QueryParam("client_id"))
    if clientID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id is required"})
    }
    entry, err := h.Engine.Position(c.Request().Context(), queueID, clientID)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, entry)
}

// MyQueues handles GET /v1/my-queues?client_id=...&queue_ids=a,b,c and
// returns the client's standing in each queue it is still part of.
func (h *ClientHandler) MyQueues(c echo.Context) error {
    clientID := strings.TrimSpace(c.QueryParam("client_id"))
    if clientID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id is required"})
    }
    var ids []string
    for _, raw := range strings.Split(c.QueryParam("queue_ids"), ",") {
        if id := strings.TrimSpace(raw); id != "" {
            ids = append(ids, id)
        }
    }
    if len(ids) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "queue_ids is required"})
    }
    positions, err := h.Engine.MyQueues(c.Request().Context(), clientID, ids)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"queues": positions})
}

// Stats handles GET /v1/queues/:id/stats. Public, no auth.
func (h *ClientHandler) Stats(c echo.Context) error {
    stats, err := h.Engine.Stats(c.Request().Context(), c.Param("id"))
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, stats)
}
