package router

import (
    "github.com/labstack/echo/v4"

    "github.com/quepass/quepass/internal/handler"
    "github.com/quepass/quepass/internal/middleware"
)

// RegisterOwner registers OWNER-scoped endpoints under /v1.
// All routes require a valid JWT and the OWNER role.
func RegisterOwner(e *echo.Echo, o *handler.OwnerHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("OWNER"),
    )

    // ---- Establishments ----
    g.POST("/establishments", o.CreateEstablishment)
    g.GET("/establishments", o.ListEstablishments)
    g.PUT("/establishments/:id", o.RenameEstablishment)
    g.PATCH("/establishments/:id", o.RenameEstablishment)

    // ---- Queues ----
    g.POST("/establishments/:id/queues", o.CreateQueue)
    g.GET("/establishments/:id/queues", o.ListQueues)
    g.PUT("/queues/:id", o.UpdateQueue)
    g.PATCH("/queues/:id/status", o.UpdateQueueStatus)
    g.POST("/queues/:id/close", o.CloseQueue)

    // ---- Clients in a queue ----
    g.GET("/queues/:id/clients", o.ListClients)
}
