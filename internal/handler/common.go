package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/quepass/quepass/internal/engine"
    "github.com/quepass/quepass/internal/model"
    "github.com/quepass/quepass/internal/payment"
    "github.com/quepass/quepass/internal/repository"
)

// QueueEngine is the slice of the engine the HTTP layer depends on.
// *engine.Engine satisfies it; handler tests may substitute fakes.
type QueueEngine interface {
    Join(ctx context.Context, queueID, name, phone, email string) (*engine.JoinResult, error)
    Leave(ctx context.Context, queueID, identifier string) error
    Advance(ctx context.Context, queueID, clientID string, positions int, card payment.Card) (*engine.AdvanceResult, error)
    Position(ctx context.Context, queueID, clientID string) (*model.PositionedEntry, error)
    ListEntries(ctx context.Context, queueID string) ([]*model.PositionedEntry, error)
    Stats(ctx context.Context, queueID string) (*model.QueueStats, error)
    UpdateStatus(ctx context.Context, queueID, status string) error
    Close(ctx context.Context, queueID string) error
    MyQueues(ctx context.Context, clientID string, queueIDs []string) (map[string]*model.PositionedEntry, error)
    CacheMetadata(ctx context.Context, q *model.Queue) error
}

// getUserID extracts the user_id placed in the context by JWTAuth and
// converts it to uint64. JWT numeric claims decode as float64, so a few
// representations must be accepted.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// engineError maps an engine failure onto the HTTP response contract:
// validation errors become 4xx with a stable error string the client can
// act on, a degraded store becomes 503 with a retry hint, anything else
// is a 500.
func engineError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrQueueNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "queue not found"})
    case errors.Is(err, repository.ErrQueueNotActive):
        return c.JSON(http.StatusConflict, echo.Map{"error": "queue not active"})
    case errors.Is(err, repository.ErrDuplicateClient):
        return c.JSON(http.StatusConflict, echo.Map{"error": "client already in queue"})
    case errors.Is(err, repository.ErrClientNotInQueue):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "client not in queue"})
    case errors.Is(err, repository.ErrInvalidAdvanceCount):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid advance count"})
    case errors.Is(err, repository.ErrPaymentDeclined):
        return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment declined"})
    case errors.Is(err, repository.ErrInvalidStatusTransition):
        return c.JSON(http.StatusConflict, echo.Map{"error": "invalid status transition"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrStoreUnavailable):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable", "retryable": true})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
