package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/armelgeek/heysprech-api/internal/client"
	"github.com/armelgeek/heysprech-api/internal/config"
	"github.com/armelgeek/heysprech-api/internal/handler"
	"github.com/armelgeek/heysprech-api/internal/middleware"
	"github.com/armelgeek/heysprech-api/internal/queue"
	"github.com/armelgeek/heysprech-api/internal/service"
	"github.com/armelgeek/heysprech-api/internal/store"
	"github.com/armelgeek/heysprech-api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Open the job store
	jobStore, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open job store: %v", err)
	}
	defer jobStore.Close()

	// Work queues
	workQueue := queue.New(redisClient)

	// Initialize validator
	validate := validator.New()

	// Initialize external clients
	extractor := client.NewYtdlpExtractor(&cfg.Media)
	whisperClient := client.NewWhisperClient(&cfg.Whisper)
	translateClient := client.NewTranslateClient(&cfg.Translator)

	// Start the stage workers
	pipelineCtx, stopPipeline := context.WithCancel(ctx)
	pipeline := worker.NewPipeline(jobStore, workQueue, whisperClient, translateClient, &cfg.Pipeline)
	pipeline.Start(pipelineCtx)

	// Initialize services
	videoService := service.NewVideoService(jobStore, workQueue, extractor)
	systemService := service.NewSystemService(workQueue, pipeline)

	// Initialize handlers
	videoHandler := handler.NewVideoHandler(videoService, validate)
	systemHandler := handler.NewSystemHandler(systemService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, cfg.JWT.Expiration)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   redisClient.Ping(c.Context()).Err() == nil,
				"workers": pipeline.ActiveWorkers(),
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Video routes
	videos := api.Group("/videos")
	videos.Post("/", rateLimiter.SubmitLimit(cfg.RateLimit.SubmitPerHour), videoHandler.Submit)
	videos.Get("/", videoHandler.List)
	videos.Get("/:id", videoHandler.Get)
	videos.Delete("/:id", videoHandler.Delete)

	// System routes
	api.Get("/system/status", systemHandler.Status)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	// Stop workers after the HTTP surface is gone
	stopPipeline()
	pipeline.Wait()
	log.Println("Pipeline stopped")
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
