package main // Entry point package

import (
    "log" // Logging library

    "github.com/joho/godotenv"    // .env loader for local development
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/quepass/quepass/internal/config"
    "github.com/quepass/quepass/internal/database"
    "github.com/quepass/quepass/internal/engine"
    "github.com/quepass/quepass/internal/handler"
    "github.com/quepass/quepass/internal/middleware"
    "github.com/quepass/quepass/internal/payment"
    "github.com/quepass/quepass/internal/queue"
    "github.com/quepass/quepass/internal/repository"
    "github.com/quepass/quepass/internal/router"
    queue_publisher "github.com/quepass/quepass/internal/service"
)

func main() {
    // Best effort; in containers the environment is injected directly.
    _ = godotenv.Load()

    cfg := config.Load() // Load environment config

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis backs the live ordering, the metadata cache and the rate
    // limiter. Without it the engine cannot run, so a missing client is
    // fatal here even though NewRedisClient itself only warns.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Fatal("redis: REDIS_ADDR is required")
    }

    queues := repository.NewQueueRepo(db)
    establishments := repository.NewEstablishmentRepo(db)
    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)

    eng := engine.New(
        repository.NewRedisOrderedStore(rdb),
        repository.NewRedisMetadataCache(rdb),
        queues,
        payment.NewSimulatedGateway(),
        queue_publisher.Sink{},
        cfg.PaymentTimeout,
    )

    // Consume advance events in the background. The consumer reconnects
    // on its own; a returned error means it gave up for good.
    go func() {
        if err := queue.StartAdvanceConsumer(); err != nil {
            log.Printf("advance consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
    clientHandler := handler.NewClientHandler(eng)
    router.RegisterPublic(e, clientHandler)
    router.RegisterOwner(e, handler.NewOwnerHandler(establishments, queues, eng), cfg.JWTSecret)
    router.RegisterClient(e, clientHandler, cfg.JWTSecret, limit)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil { // Start HTTP server
        log.Fatal(err)
    }
}
