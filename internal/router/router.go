package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/quepass/quepass/internal/handler"
    "github.com/quepass/quepass/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Load balancers and monitoring systems use this endpoint to verify
    // that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware. Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    // Operations that do not require an existing session: register,
    // login and the two refresh variants. Each handler generates or
    // exchanges tokens on its own.
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    // Rotates the refresh token and issues a fresh pair.
    g.POST("/refresh", a.Refresh)
    // Issues a new access token without rotating the refresh token.
    g.POST("/refresh-access", a.RefreshAccess)
    // Logout accepts a JSON body with a refresh_token and invalidates
    // it; no access token is required.
    g.POST("/logout", a.Logout)

    // Protected endpoints require a valid access token. Both roles may
    // inspect their own account.
    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.Use(middleware.RequireRole("OWNER", "CLIENT"))
    auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated queue endpoints. Stats are
// deliberately public so clients can size up a queue before joining.
func RegisterPublic(e *echo.Echo, h *handler.ClientHandler) {
    e.GET("/v1/queues/:id/stats", h.Stats)
}
