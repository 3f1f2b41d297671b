package execution

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/influxdb"
)

// Recorder observes finished steps and executions.
type Recorder interface {
	StepFinished(result StepResult)
	ExecutionFinished(log *ExecutionLog)
}

type nopRecorder struct{}

func (nopRecorder) StepFinished(StepResult)          {}
func (nopRecorder) ExecutionFinished(*ExecutionLog) {}

// Recorders fans out to several recorders.
type Recorders []Recorder

// StepFinished implements Recorder.
func (rs Recorders) StepFinished(result StepResult) {
	for _, r := range rs {
		r.StepFinished(result)
	}
}

// ExecutionFinished implements Recorder.
func (rs Recorders) ExecutionFinished(log *ExecutionLog) {
	for _, r := range rs {
		r.ExecutionFinished(log)
	}
}

const metricsNamespace = "conductor"

// PrometheusRecorder exports execution metrics to Prometheus.
type PrometheusRecorder struct {
	steps             *prometheus.CounterVec
	stepAttempts      *prometheus.HistogramVec
	stepDuration      *prometheus.HistogramVec
	fallbacks         *prometheus.CounterVec
	executions        *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "steps_total",
			Help:      "Plan steps finished, by specialist and status.",
		}, []string{"specialist", "status", "simulated"}),
		stepAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_attempts",
			Help:      "Attempts made per plan step.",
			Buckets:   []float64{0, 1, 2, 3, 5},
		}, []string{"specialist"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Time from step start to step end.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"specialist"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "step_fallbacks_total",
			Help:      "Fallback attempts, by specialist and status.",
		}, []string{"specialist", "status"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "executions_total",
			Help:      "Plan executions, by goal type and overall status.",
		}, []string{"goal_type", "status", "dry_run"}),
		executionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "execution_duration_seconds",
			Help:      "Wall time of a plan execution.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"goal_type"}),
	}

	for _, c := range []prometheus.Collector{
		r.steps, r.stepAttempts, r.stepDuration, r.fallbacks, r.executions, r.executionDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering execution metrics: %w", err)
		}
	}
	return r, nil
}

// StepFinished implements Recorder.
func (r *PrometheusRecorder) StepFinished(result StepResult) {
	kind := string(result.Specialist)
	r.steps.WithLabelValues(kind, string(result.Status), boolLabel(result.Simulated)).Inc()
	if result.Simulated {
		return
	}
	r.stepAttempts.WithLabelValues(kind).Observe(float64(result.Attempts))
	r.stepDuration.WithLabelValues(kind).Observe(msToSeconds(result.DurationMS))
	if result.FallbackUsed {
		r.fallbacks.WithLabelValues(kind, string(result.Status)).Inc()
	}
}

// ExecutionFinished implements Recorder.
func (r *PrometheusRecorder) ExecutionFinished(log *ExecutionLog) {
	gt := string(log.GoalType)
	r.executions.WithLabelValues(gt, string(log.OverallStatus), boolLabel(log.DryRun)).Inc()
	if !log.DryRun {
		r.executionDuration.WithLabelValues(gt).Observe(log.Duration().Seconds())
	}
}

// PointWriter queues time-series points. *influxdb.Client satisfies it.
type PointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// Influx measurement names.
const (
	MeasurementStep      = "plan_step"
	MeasurementExecution = "plan_execution"
)

// InfluxRecorder writes step and execution points. Dry runs are skipped.
type InfluxRecorder struct {
	w PointWriter
}

// NewInfluxRecorder creates a recorder over a point writer.
func NewInfluxRecorder(w PointWriter) *InfluxRecorder {
	return &InfluxRecorder{w: w}
}

// StepFinished implements Recorder.
func (r *InfluxRecorder) StepFinished(result StepResult) {
	if result.Simulated {
		return
	}
	r.w.WritePointWithTime(MeasurementStep,
		map[string]string{
			"specialist": string(result.Specialist),
			"status":     string(result.Status),
		},
		map[string]any{
			"order":         result.Order,
			"action":        result.Action,
			"attempts":      result.Attempts,
			"duration_ms":   result.DurationMS,
			"fallback_used": result.FallbackUsed,
		},
		result.Timestamp,
	)
}

// ExecutionFinished implements Recorder.
func (r *InfluxRecorder) ExecutionFinished(log *ExecutionLog) {
	if log.DryRun {
		return
	}
	s := log.Summary()
	r.w.WritePointWithTime(MeasurementExecution,
		map[string]string{
			"goal_type": string(log.GoalType),
			"status":    string(log.OverallStatus),
		},
		map[string]any{
			"execution_id": log.ID,
			"plan_id":      log.PlanID,
			"total_steps":  s.TotalSteps,
			"successful":   s.Successful,
			"failed":       s.Failed,
			"duration_ms":  log.Duration().Milliseconds(),
		},
		log.CompletedAt,
	)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func msToSeconds(ms int64) float64 {
	return float64(ms) / float64(time.Second/time.Millisecond)
}

var _ PointWriter = (*influxdb.Client)(nil)
