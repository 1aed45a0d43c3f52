package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// metrics holds the server's Prometheus collectors. A nil *metrics is valid
// and records nothing.
type metrics struct {
	jobsStarted  prometheus.Counter
	jobsFinished *prometheus.CounterVec
	jobsRunning  prometheus.Gauge
	evaluations  prometheus.Counter
	bestScore    *prometheus.GaugeVec
	duration     *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "egwo_jobs_started_total",
			Help: "Optimization jobs that started running.",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "egwo_jobs_finished_total",
			Help: "Optimization jobs that reached a final state.",
		}, []string{"state"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "egwo_jobs_running",
			Help: "Optimization jobs currently running.",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "egwo_objective_evaluations_total",
			Help: "Objective evaluations performed by completed jobs.",
		}),
		bestScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "egwo_best_score",
			Help: "Best score of the most recently completed job per problem.",
		}, []string{"problem", "algo"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "egwo_job_duration_seconds",
			Help:    "Wall time of completed jobs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"algo"}),
	}

	reg.MustRegister(
		m.jobsStarted,
		m.jobsFinished,
		m.jobsRunning,
		m.evaluations,
		m.bestScore,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) started() {
	if m == nil {
		return
	}
	m.jobsStarted.Inc()
	m.jobsRunning.Inc()
}

func (m *metrics) finished(state JobState) {
	if m == nil {
		return
	}
	m.jobsRunning.Dec()
	m.jobsFinished.WithLabelValues(string(state)).Inc()
}

func (m *metrics) completed(config JobConfig, bestScore float64, evaluations int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.finished(StateCompleted)
	m.evaluations.Add(float64(evaluations))
	m.bestScore.WithLabelValues(config.Problem, config.Algo).Set(bestScore)
	m.duration.WithLabelValues(config.Algo).Observe(elapsed.Seconds())
}
