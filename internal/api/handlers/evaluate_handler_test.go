package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topic-eval/backend/internal/agents"
	"github.com/topic-eval/backend/internal/orchestrator"
)

type stubEngine struct {
	result        *orchestrator.Result
	roleScore     *agents.Score
	err           error
	gotTopic      string
	gotLiterature bool
	gotRole       string
}

func (s *stubEngine) Evaluate(ctx context.Context, topic string, useLiterature bool) (*orchestrator.Result, error) {
	s.gotTopic = topic
	s.gotLiterature = useLiterature
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubEngine) EvaluateRole(ctx context.Context, role, topic string, useLiterature bool) (*agents.Score, error) {
	s.gotRole = role
	s.gotTopic = topic
	s.gotLiterature = useLiterature
	if s.err != nil {
		return nil, s.err
	}
	return s.roleScore, nil
}

func (s *stubEngine) EvaluateWithProgress(ctx context.Context, topic string, useLiterature bool, notify func(orchestrator.Event)) (*orchestrator.Result, error) {
	return s.Evaluate(ctx, topic, useLiterature)
}

func newTestApp(engine Engine, literatureDefault bool) *fiber.App {
	app := fiber.New()
	h := NewEvaluateHandler(engine, literatureDefault)
	app.Post("/api/v1/evaluate", h.HandleEvaluate)
	app.Post("/api/v1/evaluate/:role", h.HandleEvaluateRole)
	return app
}

func postJSON(app *fiber.App, path, body string) (int, map[string]interface{}, error) {
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	var parsed map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return 0, nil, err
		}
	}
	return resp.StatusCode, parsed, nil
}

func TestHandleEvaluate(t *testing.T) {
	engine := &stubEngine{result: &orchestrator.Result{
		ID:                 "eval-1",
		Topic:              "Plant growth in microgravity",
		AgentScores:        map[string]*agents.Score{"researcher": {Role: "researcher", Score: 8.6}},
		WeightedTotalScore: 8.27,
	}}
	app := newTestApp(engine, true)

	status, body, err := postJSON(app, "/api/v1/evaluate", `{"topic":"Plant growth in microgravity"}`)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "eval-1", body["evaluation_id"])
	assert.Equal(t, "Plant growth in microgravity", body["topic"])
	assert.InDelta(t, 8.27, body["weighted_total_score"], 0.001)
	assert.Contains(t, body["agent_scores"], "researcher")

	assert.Equal(t, "Plant growth in microgravity", engine.gotTopic)
	assert.True(t, engine.gotLiterature)
}

func TestHandleEvaluateLiteratureOverride(t *testing.T) {
	engine := &stubEngine{result: &orchestrator.Result{}}
	app := newTestApp(engine, true)

	status, _, err := postJSON(app, "/api/v1/evaluate", `{"topic":"T","use_literature_background":false}`)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, status)
	assert.False(t, engine.gotLiterature)
}

func TestHandleEvaluateMissingTopic(t *testing.T) {
	app := newTestApp(&stubEngine{}, false)

	status, body, err := postJSON(app, "/api/v1/evaluate", `{}`)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.NotEmpty(t, body["error"])
}

func TestHandleEvaluateInvalidBody(t *testing.T) {
	app := newTestApp(&stubEngine{}, false)

	status, _, err := postJSON(app, "/api/v1/evaluate", `{not json`)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleEvaluateAllAgentsFailed(t *testing.T) {
	engine := &stubEngine{err: orchestrator.ErrAllAgentsFailed}
	app := newTestApp(engine, false)

	status, body, err := postJSON(app, "/api/v1/evaluate", `{"topic":"T"}`)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.NotEmpty(t, body["error"])
}

func TestHandleEvaluateInternalError(t *testing.T) {
	engine := &stubEngine{err: errors.New("aggregation failed")}
	app := newTestApp(engine, false)

	status, _, err := postJSON(app, "/api/v1/evaluate", `{"topic":"T"}`)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, status)
}

func TestHandleEvaluateRole(t *testing.T) {
	engine := &stubEngine{roleScore: &agents.Score{Role: "astronaut", Score: 7.5}}
	app := newTestApp(engine, false)

	status, body, err := postJSON(app, "/api/v1/evaluate/astronaut", `{"topic":"T"}`)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "astronaut", body["agent_role"])
	assert.InDelta(t, 7.5, body["score"], 0.001)
	assert.Equal(t, "astronaut", engine.gotRole)
}

func TestHandleEvaluateRoleUnknown(t *testing.T) {
	app := newTestApp(&stubEngine{}, false)

	status, _, err := postJSON(app, "/api/v1/evaluate/pilot", `{"topic":"T"}`)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHandleEvaluateRoleFailure(t *testing.T) {
	engine := &stubEngine{err: errors.New("model unavailable")}
	app := newTestApp(engine, false)

	status, _, err := postJSON(app, "/api/v1/evaluate/researcher", `{"topic":"T"}`)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadGateway, status)
}
