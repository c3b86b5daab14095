package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "countbot_submissions_total",
		Help: "Submissions by result (accepted, rejected, ignored, error, stopped)",
	}, []string{"result"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "countbot_rejections_total",
		Help: "Rejected submissions by reason",
	}, []string{"reason"})

	evaluationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "countbot_evaluation_errors_total",
		Help: "Expression evaluation failures by error code",
	}, []string{"code"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "countbot_evaluation_duration_seconds",
		Help:    "Time spent normalizing, evaluating and scoring one expression, failed evaluations included",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 5},
	})

	checkpointFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "countbot_checkpoint_failures_total",
		Help: "Checkpoints that returned an error",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "countbot_admission_queue_depth",
		Help: "Tickets waiting in the admission queue",
	})

	currentCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "countbot_current_count",
		Help: "The number the next submission must equal",
	})
)
