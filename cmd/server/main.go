package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	requestlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/makeasinger/fabricator/internal/catalog"
	"github.com/makeasinger/fabricator/internal/client"
	"github.com/makeasinger/fabricator/internal/config"
	"github.com/makeasinger/fabricator/internal/handler"
	"github.com/makeasinger/fabricator/internal/lifecycle"
	"github.com/makeasinger/fabricator/internal/logging"
	"github.com/makeasinger/fabricator/internal/middleware"
	"github.com/makeasinger/fabricator/internal/service"
	"github.com/makeasinger/fabricator/internal/ship"
	"github.com/makeasinger/fabricator/internal/store"
	ws "github.com/makeasinger/fabricator/internal/websocket"
	"github.com/makeasinger/fabricator/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Redis client
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", zap.Error(err))
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	// Initialize validator
	validate := validator.New()

	// Object storage is optional; without it shipped segments live in redis only
	var r2 *client.R2Client
	if cfg.R2.AccessKeyID != "" {
		r2, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			logger.Warn("object storage disabled", zap.Error(err))
			r2 = nil
		}
	}

	// Load the content catalog
	loadCatalog := func(ctx context.Context) (*catalog.Content, error) {
		if r2.IsConfigured() && cfg.Catalog.ObjectKey != "" {
			return catalog.LoadObject(ctx, r2, cfg.Catalog.ObjectKey, validate)
		}
		return catalog.LoadFile(cfg.Catalog.Path, validate)
	}
	content, err := loadCatalog(ctx)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	holder := catalog.NewHolder(content)
	logger.Info("catalog loaded",
		zap.Int("programs", len(content.Programs)),
		zap.Int("instruments", len(content.Instruments)),
	)

	// Initialize WebSocket hub
	hub := ws.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	// Initialize fabrication components
	st := store.New(validate)
	machine := lifecycle.NewMachine(st, logger)
	scheduler := service.NewTaskScheduler(asynqClient, inspector, logger)

	var objects client.StorageClient
	if r2.IsConfigured() {
		objects = r2
	}
	shipper := ship.NewShipper(redisClient, objects, cfg.Fabrication.ShipTTL, logger)

	// Initialize services
	chainService := service.NewChainService(st, machine, scheduler, shipper, logger)

	// Initialize handlers
	chainHandler := handler.NewChainHandler(chainService, validate, logger)
	catalogHandler := handler.NewCatalogHandler(holder, loadCatalog, logger)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, time.Duration(cfg.JWT.Expiration)*time.Hour)
	rateLimiter := middleware.NewRateLimiter(redisClient, logger)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestlog.New(requestlog.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate(), rateLimiter.APILimit(cfg.RateLimit.APIPerMin))

	// Chain routes
	chains := api.Group("/chains")
	chains.Post("/", chainHandler.Create)
	chains.Get("/:chainId", chainHandler.Get)
	chains.Post("/:chainId/bindings", chainHandler.AddBinding)
	chains.Post("/:chainId/state", chainHandler.Transition)
	chains.Get("/:chainId/segments", chainHandler.ListSegments)

	api.Get("/segments/:segmentId", chainHandler.SegmentGraph)

	// Catalog routes
	api.Get("/catalog", catalogHandler.Summary)
	api.Post("/catalog/reload", catalogHandler.Reload)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, authMiddleware.Authenticate())

	app.Get("/ws/chains/:chainId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("chainId"))
	}))

	// Start Asynq worker server
	fabricateWorker := worker.NewFabricateWorker(st, machine, scheduler, shipper, hub, holder, worker.FabricateConfig{
		CycleDelay:     cfg.Fabrication.CycleDelay,
		RetryDelay:     cfg.Fabrication.RetryDelay,
		BufferAhead:    cfg.Fabrication.BufferAhead,
		RetainSegments: cfg.Fabrication.RetainSegments,
		Seed:           cfg.Craft.Seed,
		Tuning:         cfg.Craft.Tuning(),
	}, logger)
	srv := newWorkerServer(cfg, redisOpt, logger)
	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeFabricate, fabricateWorker.ProcessTask)
	if err := srv.Start(mux); err != nil {
		logger.Fatal("failed to start asynq worker", zap.Error(err))
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutting down server")
		srv.Shutdown()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	logger.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Server.Env))
	if err := app.Listen(addr); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newWorkerServer(cfg *config.Config, redisOpt asynq.RedisClientOpt, logger *zap.Logger) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Fabrication.Workers,
		Queues: map[string]int{
			service.QueueFabricate: 1,
		},
		Logger:   logging.NewAsynqLogger(logger),
		LogLevel: logging.AsynqLevel(cfg.Server.LogLevel),
	})
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
