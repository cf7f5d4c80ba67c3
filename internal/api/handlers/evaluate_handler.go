package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/topic-eval/backend/internal/agents"
	"github.com/topic-eval/backend/internal/orchestrator"
	"github.com/topic-eval/backend/pkg/logger"
)

// Engine is the orchestration surface the transport layer consumes.
type Engine interface {
	Evaluate(ctx context.Context, topic string, useLiterature bool) (*orchestrator.Result, error)
	EvaluateRole(ctx context.Context, role, topic string, useLiterature bool) (*agents.Score, error)
	EvaluateWithProgress(ctx context.Context, topic string, useLiterature bool, notify func(orchestrator.Event)) (*orchestrator.Result, error)
}

type EvaluateHandler struct {
	engine            Engine
	literatureDefault bool
}

func NewEvaluateHandler(engine Engine, literatureDefault bool) *EvaluateHandler {
	return &EvaluateHandler{
		engine:            engine,
		literatureDefault: literatureDefault,
	}
}

type evaluateRequest struct {
	Topic string `json:"topic"`
	// Nil means "use the configured default".
	UseLiteratureBackground *bool `json:"use_literature_background"`
}

func (h *EvaluateHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req evaluateRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Topic == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Topic is required",
		})
	}

	useLiterature := h.literatureDefault
	if req.UseLiteratureBackground != nil {
		useLiterature = *req.UseLiteratureBackground
	}

	result, err := h.engine.Evaluate(c.Context(), req.Topic, useLiterature)
	if err != nil {
		if errors.Is(err, orchestrator.ErrAllAgentsFailed) {
			logger.Error("Evaluation failed for all agents", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "All evaluation agents failed",
			})
		}
		logger.Error("Failed to evaluate topic", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to evaluate topic",
		})
	}

	return c.JSON(result)
}

func (h *EvaluateHandler) HandleEvaluateRole(c *fiber.Ctx) error {
	role := c.Params("role")
	if !isKnownRole(role) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown agent role",
		})
	}

	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Topic == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Topic is required",
		})
	}

	useLiterature := h.literatureDefault
	if req.UseLiteratureBackground != nil {
		useLiterature = *req.UseLiteratureBackground
	}

	score, err := h.engine.EvaluateRole(c.Context(), role, req.Topic, useLiterature)
	if err != nil {
		logger.Error("Failed to evaluate topic for role",
			zap.String("role", role),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Agent evaluation failed",
		})
	}

	return c.JSON(score)
}

func isKnownRole(role string) bool {
	for _, known := range agents.Roles {
		if role == known {
			return true
		}
	}
	return false
}
