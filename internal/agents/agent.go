package agents

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/topic-eval/backend/internal/literature"
	"github.com/topic-eval/backend/internal/llm"
	"github.com/topic-eval/backend/pkg/logger"
)

// ErrUnparseable reports a completion from which no dimension score could be
// recovered. The orchestrator treats it like any other agent failure.
var ErrUnparseable = errors.New("no dimension scores could be parsed from agent response")

type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// Agent is one role-specialized evaluator. The five variants differ only in
// role identifier, prompt text and dimension set.
type Agent struct {
	role          string
	dimensions    []string
	systemPrompt  string
	criteria      string
	completer     Completer
	fallbackScore int
}

// Score is the structured outcome of one agent invocation.
type Score struct {
	Role                  string         `json:"agent_role"`
	Analysis              string         `json:"analysis"`
	Score                 float64        `json:"score"`
	DimensionScores       map[string]int `json:"dimension_scores"`
	BackgroundContextUsed bool           `json:"background_context_used"`
	Degraded              bool           `json:"-"`
}

// New builds the agent for a role identifier. fallbackScore substitutes for
// dimensions the model answer omits or garbles; use 0 for the default of 5.
func New(role string, completer Completer, fallbackScore int) (*Agent, error) {
	spec, ok := roleSpecs[role]
	if !ok {
		return nil, fmt.Errorf("unknown agent role: %s", role)
	}
	if fallbackScore < 1 || fallbackScore > 10 {
		fallbackScore = 5
	}

	return &Agent{
		role:          spec.role,
		dimensions:    spec.dimensions,
		systemPrompt:  spec.systemPrompt,
		criteria:      spec.criteria,
		completer:     completer,
		fallbackScore: fallbackScore,
	}, nil
}

// All returns the five agents in dispatch order.
func All(completer Completer, fallbackScore int) []*Agent {
	out := make([]*Agent, 0, len(Roles))
	for _, role := range Roles {
		agent, _ := New(role, completer, fallbackScore)
		out = append(out, agent)
	}
	return out
}

func (a *Agent) Role() string {
	return a.role
}

// Dimensions returns the role's fixed, ordered dimension set.
func (a *Agent) Dimensions() []string {
	dims := make([]string, len(a.dimensions))
	copy(dims, a.dimensions)
	return dims
}

// Evaluate scores the topic from this role's perspective. The background is
// read-only shared state; it is rendered into the prompt, never mutated.
func (a *Agent) Evaluate(ctx context.Context, topic string, background *literature.Background) (*Score, error) {
	backgroundUsed := background != nil && len(background.Entities) > 0

	resp, err := a.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: a.systemPrompt,
		UserPrompt:   a.renderPrompt(topic, background),
	})
	if err != nil {
		return nil, fmt.Errorf("%s evaluation failed: %w", a.role, err)
	}

	parsed := parseDimensionScores(llm.StripThinking(resp.Content), a.dimensions)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("%s: %w", a.role, ErrUnparseable)
	}

	degraded := false
	dimensionScores := make(map[string]int, len(a.dimensions))
	total := 0
	for _, dim := range a.dimensions {
		value, ok := parsed[dim]
		if !ok {
			value = a.fallbackScore
			degraded = true
		}
		dimensionScores[dim] = value
		total += value
	}

	mean := float64(total) / float64(len(a.dimensions))
	score := math.Round(mean*10) / 10

	if degraded {
		logger.Warn("Agent response partially degraded",
			zap.String("role", a.role),
			zap.Int("parsed_dimensions", len(parsed)),
			zap.Int("declared_dimensions", len(a.dimensions)),
		)
	}

	return &Score{
		Role:                  a.role,
		Analysis:              resp.Content,
		Score:                 score,
		DimensionScores:       dimensionScores,
		BackgroundContextUsed: backgroundUsed,
		Degraded:              degraded,
	}, nil
}

func (a *Agent) renderPrompt(topic string, background *literature.Background) string {
	backgroundSection := ""
	if text := background.ContextText(); text != "" {
		backgroundSection = fmt.Sprintf(`
The following is background information on key scientific entities in this topic. Use this knowledge to inform your evaluation, but do not explicitly mention or summarize this background in your response:

%s
`, text)
	}

	return fmt.Sprintf(`
%s
%s
Please evaluate the following space science research topic:

Topic: %s

For EACH evaluation dimension listed above, provide:
1. A brief analysis (2-3 sentences)
2. A specific score from 1 to 10

Scoring guide:
- 1-3: Low priority/value
- 4-6: Medium priority/value
- 7-8: High priority/value
- 9-10: Critical/essential priority/value

Please structure your response as follows (use this exact format for each dimension):

[DIMENSION NAME]
Analysis: [Your analysis for this specific dimension]
Score: [X]/10

... (repeat for each dimension)

Be specific about why you give each score based on your professional background and concerns.
`, a.criteria, backgroundSection, topic)
}
