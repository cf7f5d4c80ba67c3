package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topic_eval_evaluation_duration_seconds",
			Help:    "End-to-end evaluation duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	EvaluationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topic_eval_evaluation_total",
			Help: "Total number of topic evaluations processed",
		},
		[]string{"status"},
	)

	AgentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topic_eval_agent_failures_total",
			Help: "Agent invocations that produced no usable score",
		},
		[]string{"role"},
	)

	AgentScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topic_eval_agent_score",
			Help:    "Per-role overall scores on the 1-10 scale",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		[]string{"role"},
	)

	WeightedScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "topic_eval_weighted_total_score",
			Help:    "Weighted total scores on the 1-10 scale",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topic_eval_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	LiteratureResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "topic_eval_literature_results_count",
			Help:    "Number of literature references returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 20},
		},
	)

	LiteratureDegraded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "topic_eval_literature_degraded_total",
			Help: "Literature searches that degraded to an empty result set",
		},
	)

	EntitiesExtracted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "topic_eval_entities_extracted",
			Help:    "Key entities extracted per background build",
			Buckets: []float64{0, 1, 2, 3},
		},
	)
)

func Init() {
	prometheus.MustRegister(EvaluationDuration)
	prometheus.MustRegister(EvaluationTotal)
	prometheus.MustRegister(AgentFailures)
	prometheus.MustRegister(AgentScore)
	prometheus.MustRegister(WeightedScore)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(LiteratureResults)
	prometheus.MustRegister(LiteratureDegraded)
	prometheus.MustRegister(EntitiesExtracted)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
