package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/quepass/quepass/internal/model"
    "github.com/quepass/quepass/internal/repository"
)

// OwnerHandler bundles dependencies for owners to manage establishments
// and their queues. All methods assume JWT authentication and the OWNER
// role have been enforced by middleware.
type OwnerHandler struct {
    Establishments *repository.EstablishmentRepo
    Queues         *repository.QueueRepo
    Engine         QueueEngine
}

// NewOwnerHandler constructs a new OwnerHandler and panics if any
// dependency is nil.
func NewOwnerHandler(est *repository.EstablishmentRepo, queues *repository.QueueRepo, eng QueueEngine) *OwnerHandler {
    if est == nil || queues == nil || eng == nil {
        panic("nil dependency passed to NewOwnerHandler")
    }
    return &OwnerHandler{Establishments: est, Queues: queues, Engine: eng}
}

// CreateEstablishment handles POST /v1/establishments.
func (h *OwnerHandler) CreateEstablishment(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Name string `json:"name"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.Name = strings.TrimSpace(body.Name)
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    e := &model.Establishment{OwnerID: ownerID, Name: body.Name}
    if err := h.Establishments.Create(c.Request().Context(), e); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create establishment"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"id": e.ID, "name": e.Name})
}

// ListEstablishments handles GET /v1/establishments.
func (h *OwnerHandler) ListEstablishments(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    items, err := h.Establishments.ListByOwner(c.Request().Context(), ownerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list establishments"})
    }
    out := make([]echo.Map, 0, len(items))
    for _, e := range items {
        out = append(out, echo.Map{"id": e.ID, "name": e.Name, "created_at": e.CreatedAt})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// RenameEstablishment handles PUT /v1/establishments/:id.
func (h *OwnerHandler) RenameEstablishment(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid establishment id"})
    }
    var body struct {
        Name string `json:"name"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.Name = strings.TrimSpace(body.Name)
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    if err := h.Establishments.UpdateName(c.Request().Context(), id, ownerID, body.Name); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "establishment not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to rename establishment"})
    }
    return c.JSON(http.StatusOK, echo.Map{"id": id, "name": body.Name})
}
