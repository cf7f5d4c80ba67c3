package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/topic-eval/backend/internal/agents"
	"github.com/topic-eval/backend/internal/literature"
	"github.com/topic-eval/backend/internal/metrics"
	"github.com/topic-eval/backend/pkg/logger"
)

// ErrAllAgentsFailed is the one fatal pipeline condition: every agent failed
// and there is nothing to aggregate.
var ErrAllAgentsFailed = errors.New("all evaluation agents failed")

type Agent interface {
	Role() string
	Evaluate(ctx context.Context, topic string, background *literature.Background) (*agents.Score, error)
}

type BackgroundBuilder interface {
	Build(ctx context.Context, topic string) *literature.Background
}

// Orchestrator fans one topic out to the role agents and folds their scores
// into a single weighted total. One instance serves all requests; every
// evaluation is independent and stateless.
type Orchestrator struct {
	agents     []Agent
	background BackgroundBuilder
	weights    map[string]float64
}

// Result is the terminal artifact of one evaluation.
type Result struct {
	ID                   string                   `json:"evaluation_id"`
	Topic                string                   `json:"topic"`
	AgentScores          map[string]*agents.Score `json:"agent_scores"`
	WeightedTotalScore   float64                  `json:"weighted_total_score"`
	LiteratureBackground *literature.Background   `json:"literature_background,omitempty"`
}

// Event reports evaluation progress to streaming consumers.
type Event struct {
	Stage string // "background", "agent"
	Role  string
	Score *agents.Score
	Err   error
}

func New(agentList []Agent, background BackgroundBuilder, weights map[string]float64) *Orchestrator {
	if len(weights) == 0 {
		weights = DefaultWeights
	}
	return &Orchestrator{
		agents:     agentList,
		background: background,
		weights:    weights,
	}
}

// Evaluate runs the full pipeline: optional shared background, concurrent
// agent fan-out, weighted aggregation over whichever agents succeeded.
func (o *Orchestrator) Evaluate(ctx context.Context, topic string, useLiterature bool) (*Result, error) {
	return o.EvaluateWithProgress(ctx, topic, useLiterature, nil)
}

// EvaluateWithProgress is Evaluate with a progress callback. notify may be
// nil; it is never invoked concurrently.
func (o *Orchestrator) EvaluateWithProgress(ctx context.Context, topic string, useLiterature bool, notify func(Event)) (*Result, error) {
	start := time.Now()
	evaluationID := uuid.New().String()

	logger.Info("Evaluating topic",
		zap.String("evaluation_id", evaluationID),
		zap.String("topic", topic),
		zap.Bool("use_literature_background", useLiterature),
	)

	// The background must be finished before any agent starts so all five
	// see the same context, or none.
	var background *literature.Background
	if useLiterature && o.background != nil {
		background = o.background.Build(ctx, topic)
		if notify != nil {
			notify(Event{Stage: "background"})
		}
	}

	scores, lastErr := o.fanOut(ctx, topic, background, notify)

	if len(scores) == 0 {
		metrics.EvaluationTotal.WithLabelValues("failed").Inc()
		metrics.EvaluationDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrAllAgentsFailed, lastErr)
		}
		return nil, ErrAllAgentsFailed
	}

	totals := make(map[string]float64, len(scores))
	for role, score := range scores {
		totals[role] = score.Score
	}

	weightedTotal, err := Aggregate(totals, o.weights)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}

	status := "ok"
	if len(scores) < len(o.agents) {
		status = "degraded"
	}
	metrics.EvaluationTotal.WithLabelValues(status).Inc()
	metrics.EvaluationDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	metrics.WeightedScore.Observe(weightedTotal)

	logger.Info("Evaluation completed",
		zap.String("evaluation_id", evaluationID),
		zap.Float64("weighted_total_score", weightedTotal),
		zap.Int("agents_succeeded", len(scores)),
		zap.Int("agents_total", len(o.agents)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		ID:                   evaluationID,
		Topic:                topic,
		AgentScores:          scores,
		WeightedTotalScore:   weightedTotal,
		LiteratureBackground: background,
	}, nil
}

// EvaluateRole runs a single agent, with the same background handling as the
// full pipeline. Used by the single-agent endpoint.
func (o *Orchestrator) EvaluateRole(ctx context.Context, role, topic string, useLiterature bool) (*agents.Score, error) {
	var agent Agent
	for _, a := range o.agents {
		if a.Role() == role {
			agent = a
			break
		}
	}
	if agent == nil {
		return nil, fmt.Errorf("unknown agent role: %s", role)
	}

	var background *literature.Background
	if useLiterature && o.background != nil {
		background = o.background.Build(ctx, topic)
	}

	score, err := agent.Evaluate(ctx, topic, background)
	if err != nil {
		metrics.AgentFailures.WithLabelValues(role).Inc()
		return nil, err
	}

	metrics.AgentScore.WithLabelValues(role).Observe(score.Score)
	return score, nil
}

func (o *Orchestrator) fanOut(ctx context.Context, topic string, background *literature.Background, notify func(Event)) (map[string]*agents.Score, error) {
	scores := make(map[string]*agents.Score, len(o.agents))
	var lastErr error

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, agent := range o.agents {
		wg.Add(1)
		go func(agent Agent) {
			defer wg.Done()

			role := agent.Role()
			score, err := agent.Evaluate(ctx, topic, background)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				lastErr = err
				metrics.AgentFailures.WithLabelValues(role).Inc()
				logger.Warn("Agent evaluation failed",
					zap.String("role", role),
					zap.Error(err),
				)
				if notify != nil {
					notify(Event{Stage: "agent", Role: role, Err: err})
				}
				return
			}

			scores[role] = score
			metrics.AgentScore.WithLabelValues(role).Observe(score.Score)
			logger.Info("Agent evaluation completed",
				zap.String("role", role),
				zap.Float64("score", score.Score),
				zap.Bool("degraded", score.Degraded),
			)
			if notify != nil {
				notify(Event{Stage: "agent", Role: role, Score: score})
			}
		}(agent)
	}

	wg.Wait()

	return scores, lastErr
}
