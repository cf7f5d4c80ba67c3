package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topic-eval/backend/internal/agents"
	"github.com/topic-eval/backend/internal/literature"
)

type stubAgent struct {
	role       string
	score      float64
	err        error
	background *literature.Background
}

func (s *stubAgent) Role() string {
	return s.role
}

func (s *stubAgent) Evaluate(ctx context.Context, topic string, background *literature.Background) (*agents.Score, error) {
	s.background = background
	if s.err != nil {
		return nil, s.err
	}
	return &agents.Score{
		Role:                  s.role,
		Analysis:              "stub analysis",
		Score:                 s.score,
		DimensionScores:       map[string]int{},
		BackgroundContextUsed: background != nil,
	}, nil
}

type stubBackgroundBuilder struct {
	background *literature.Background
	calls      int
}

func (s *stubBackgroundBuilder) Build(ctx context.Context, topic string) *literature.Background {
	s.calls++
	return s.background
}

func fiveAgents() []*stubAgent {
	return []*stubAgent{
		{role: "science_project_manager", score: 6.0},
		{role: "engineer", score: 7.0},
		{role: "researcher", score: 9.0},
		{role: "astronaut", score: 8.0},
		{role: "sociologist", score: 8.5},
	}
}

func asAgents(stubs []*stubAgent) []Agent {
	out := make([]Agent, len(stubs))
	for i, s := range stubs {
		out[i] = s
	}
	return out
}

func TestEvaluateAllAgentsSucceed(t *testing.T) {
	stubs := fiveAgents()
	o := New(asAgents(stubs), nil, nil)

	result, err := o.Evaluate(context.Background(), "Plant growth in microgravity", false)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "Plant growth in microgravity", result.Topic)
	assert.Len(t, result.AgentScores, 5)
	assert.InDelta(t, 8.265, result.WeightedTotalScore, 0.006)
	assert.Nil(t, result.LiteratureBackground)

	for _, role := range []string{"researcher", "engineer", "astronaut", "science_project_manager", "sociologist"} {
		require.Contains(t, result.AgentScores, role)
		assert.Equal(t, role, result.AgentScores[role].Role)
	}
}

func TestEvaluateSurvivesPartialFailure(t *testing.T) {
	stubs := fiveAgents()
	stubs[3].err = errors.New("model timeout") // astronaut
	o := New(asAgents(stubs), nil, nil)

	result, err := o.Evaluate(context.Background(), "Topic", false)
	require.NoError(t, err)

	assert.Len(t, result.AgentScores, 4)
	assert.NotContains(t, result.AgentScores, "astronaut")
	assert.InDelta(t, 7.945/0.96, result.WeightedTotalScore, 0.006)
}

func TestEvaluateAllAgentsFailed(t *testing.T) {
	stubs := fiveAgents()
	for _, s := range stubs {
		s.err = errors.New("model unavailable")
	}
	o := New(asAgents(stubs), nil, nil)

	result, err := o.Evaluate(context.Background(), "Topic", false)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrAllAgentsFailed)
}

func TestEvaluateSharesOneBackground(t *testing.T) {
	background := &literature.Background{
		Entities: []string{"Microgravity"},
		EntityBackgrounds: map[string]literature.EntityBackground{
			"Microgravity": {Background: literature.EntityInfo{Definition: "Apparent weightlessness."}},
		},
	}
	builder := &stubBackgroundBuilder{background: background}
	stubs := fiveAgents()
	o := New(asAgents(stubs), builder, nil)

	result, err := o.Evaluate(context.Background(), "Topic", true)
	require.NoError(t, err)

	assert.Equal(t, 1, builder.calls)
	assert.Same(t, background, result.LiteratureBackground)
	for _, s := range stubs {
		assert.Same(t, background, s.background)
	}
}

func TestEvaluateSkipsBackgroundWhenDisabled(t *testing.T) {
	builder := &stubBackgroundBuilder{}
	o := New(asAgents(fiveAgents()), builder, nil)

	result, err := o.Evaluate(context.Background(), "Topic", false)
	require.NoError(t, err)

	assert.Equal(t, 0, builder.calls)
	assert.Nil(t, result.LiteratureBackground)
}

func TestEvaluateDegradedBackgroundKeepsResultShape(t *testing.T) {
	// A builder that yields nil simulates a failed literature provider; the
	// response must look exactly like a no-background run.
	builder := &stubBackgroundBuilder{background: nil}
	o := New(asAgents(fiveAgents()), builder, nil)

	withLit, err := o.Evaluate(context.Background(), "Topic", true)
	require.NoError(t, err)

	without, err := New(asAgents(fiveAgents()), nil, nil).Evaluate(context.Background(), "Topic", false)
	require.NoError(t, err)

	assert.Nil(t, withLit.LiteratureBackground)
	assert.Equal(t, without.WeightedTotalScore, withLit.WeightedTotalScore)
	assert.Len(t, withLit.AgentScores, len(without.AgentScores))
}

func TestEvaluateWithProgressEmitsEvents(t *testing.T) {
	builder := &stubBackgroundBuilder{background: &literature.Background{
		Entities:          []string{"Bone Loss"},
		EntityBackgrounds: map[string]literature.EntityBackground{},
	}}
	stubs := fiveAgents()
	stubs[1].err = errors.New("model timeout") // engineer
	o := New(asAgents(stubs), builder, nil)

	var events []Event
	result, err := o.EvaluateWithProgress(context.Background(), "Topic", true, func(e Event) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	backgroundEvents := 0
	succeeded := map[string]bool{}
	failed := map[string]bool{}
	for _, e := range events {
		switch e.Stage {
		case "background":
			backgroundEvents++
		case "agent":
			if e.Err != nil {
				failed[e.Role] = true
			} else {
				require.NotNil(t, e.Score)
				succeeded[e.Role] = true
			}
		}
	}

	assert.Equal(t, 1, backgroundEvents)
	assert.Len(t, succeeded, 4)
	assert.True(t, failed["engineer"])
}

func TestEvaluateRole(t *testing.T) {
	stubs := fiveAgents()
	o := New(asAgents(stubs), nil, nil)

	score, err := o.EvaluateRole(context.Background(), "researcher", "Topic", false)
	require.NoError(t, err)
	assert.Equal(t, "researcher", score.Role)
	assert.InDelta(t, 9.0, score.Score, 0.001)

	_, err = o.EvaluateRole(context.Background(), "pilot", "Topic", false)
	assert.Error(t, err)
}
