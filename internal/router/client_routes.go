package router

import (
    "github.com/labstack/echo/v4"

    "github.com/quepass/quepass/internal/handler"
    "github.com/quepass/quepass/internal/middleware"
)

// RegisterClient registers client-scoped endpoints under /v1. All routes
// require a valid JWT and the CLIENT role. The mutating operations
// additionally pass through the Redis token bucket so a hot queue cannot
// be hammered by a single caller.
func RegisterClient(e *echo.Echo, h *handler.ClientHandler, jwtSecret string, limit echo.MiddlewareFunc) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("CLIENT"),
    )

    // Note: GET /v1/queues/:id/stats is registered on the public router
    // so guests can inspect a queue before joining.
    g.POST("/queues/:id/join", h.Join, limit)
    g.DELETE("/queues/:id/leave", h.Leave, limit)
    g.POST("/queues/:id/advance", h.Advance, limit)
    g.GET("/queues/:id/position", h.Position)
    g.GET("/my-queues", h.MyQueues)
}
