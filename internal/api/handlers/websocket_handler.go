package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/topic-eval/backend/internal/orchestrator"
	"github.com/topic-eval/backend/pkg/logger"
)

// WebSocketHandler streams evaluation progress: one frame per finished
// background build and per agent, then a terminal frame with the full result.
type WebSocketHandler struct {
	engine            Engine
	literatureDefault bool
}

func NewWebSocketHandler(engine Engine, literatureDefault bool) *WebSocketHandler {
	return &WebSocketHandler{
		engine:            engine,
		literatureDefault: literatureDefault,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type                    string `json:"type"`
			Topic                   string `json:"topic"`
			UseLiteratureBackground *bool  `json:"use_literature_background"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "evaluate" {
			continue
		}
		if msg.Topic == "" {
			h.sendError(c, "Topic is required")
			continue
		}

		useLiterature := h.literatureDefault
		if msg.UseLiteratureBackground != nil {
			useLiterature = *msg.UseLiteratureBackground
		}

		if err := h.streamEvaluation(c, msg.Topic, useLiterature); err != nil {
			logger.Error("Failed to stream evaluation", zap.Error(err))
			h.sendError(c, "Failed to evaluate topic")
		}
	}
}

func (h *WebSocketHandler) streamEvaluation(c *websocket.Conn, topic string, useLiterature bool) error {
	ctx := context.Background()

	h.send(c, map[string]interface{}{
		"type":  "status",
		"topic": topic,
	})

	// Writes from the progress callback and the terminal frame share the
	// connection; the callback itself is already serialized upstream.
	var writeMu sync.Mutex

	result, err := h.engine.EvaluateWithProgress(ctx, topic, useLiterature, func(event orchestrator.Event) {
		writeMu.Lock()
		defer writeMu.Unlock()

		switch {
		case event.Stage == "background":
			h.send(c, map[string]interface{}{
				"type": "background_ready",
			})
		case event.Err != nil:
			h.send(c, map[string]interface{}{
				"type": "agent_failed",
				"role": event.Role,
			})
		default:
			h.send(c, map[string]interface{}{
				"type":  "agent_completed",
				"role":  event.Role,
				"score": event.Score,
			})
		}
	})

	writeMu.Lock()
	defer writeMu.Unlock()

	if err != nil {
		if errors.Is(err, orchestrator.ErrAllAgentsFailed) {
			h.sendError(c, "All evaluation agents failed")
			return nil
		}
		return err
	}

	return c.WriteJSON(map[string]interface{}{
		"type":   "complete",
		"result": result,
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, msg map[string]interface{}) {
	if err := c.WriteJSON(msg); err != nil {
		logger.Debug("WebSocket write failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
