package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/topic-eval/backend/internal/agents"
	"github.com/topic-eval/backend/internal/api/handlers"
	"github.com/topic-eval/backend/internal/literature"
	"github.com/topic-eval/backend/internal/llm"
	"github.com/topic-eval/backend/internal/metrics"
	"github.com/topic-eval/backend/internal/middleware/ratelimit"
	"github.com/topic-eval/backend/internal/middleware/security"
	"github.com/topic-eval/backend/internal/middleware/validation"
	"github.com/topic-eval/backend/internal/orchestrator"
	"github.com/topic-eval/backend/pkg/config"
	appLogger "github.com/topic-eval/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Topic Evaluation API Server")

	metrics.Init()

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.TopP,
		cfg.LLM.MaxTokens,
		time.Duration(cfg.LLM.TimeoutSec)*time.Second,
	)

	literatureClient := literature.NewClient(
		cfg.Literature.APIKey,
		cfg.Literature.BaseURL,
		time.Duration(cfg.Literature.TimeoutSec)*time.Second,
	)
	synthesizer := literature.NewSynthesizer(llmClient, literatureClient, cfg.Literature.MaxResults)

	agentList := agents.All(llmClient, cfg.Evaluation.FallbackDimensionScore)
	orchestratorAgents := make([]orchestrator.Agent, len(agentList))
	for i, a := range agentList {
		orchestratorAgents[i] = a
	}

	engine := orchestrator.New(orchestratorAgents, synthesizer, cfg.Evaluation.Weights)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxTopicLength: cfg.Evaluation.MaxTopicLength,
		Logger:         appLogger.GetLogger(),
	}))

	evaluateHandler := handlers.NewEvaluateHandler(engine, cfg.Literature.Enabled)
	wsHandler := handlers.NewWebSocketHandler(engine, cfg.Literature.Enabled)

	api := app.Group("/api/v1")

	api.Post("/evaluate", evaluateHandler.HandleEvaluate)
	api.Post("/evaluate/:role", evaluateHandler.HandleEvaluateRole)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/evaluate", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
