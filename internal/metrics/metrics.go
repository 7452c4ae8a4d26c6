package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stageRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageplanner",
			Name:      "stage_runs_total",
			Help:      "Pipeline stage executions by stage and result",
		},
		[]string{"stage", "result"},
	)

	stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imageplanner",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageplanner",
			Name:      "jobs_total",
			Help:      "Processing jobs by result",
		},
		[]string{"result"},
	)

	imagesPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imageplanner",
			Name:      "images_total",
			Help:      "Images seen by the placer, by outcome (placed, unplaced)",
		},
		[]string{"outcome"},
	)

	placementScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "imageplanner",
			Name:      "placement_score",
			Help:      "Aggregate placement score per run",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)

	pipelineLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "imageplanner",
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end pipeline duration",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(stageRuns, stageLatency, jobsTotal, imagesPlaced, placementScore, pipelineLatency)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// ObserveStage records one stage execution.
func ObserveStage(stage string, ok bool, dur time.Duration) {
	result := "success"
	if !ok {
		result = "failure"
	}
	stageRuns.WithLabelValues(stage, result).Inc()
	stageLatency.WithLabelValues(stage).Observe(dur.Seconds())
}

// ObservePipeline records the end-to-end outcome of one run.
func ObservePipeline(total, placed int, score float64, dur time.Duration) {
	imagesPlaced.WithLabelValues("placed").Add(float64(placed))
	imagesPlaced.WithLabelValues("unplaced").Add(float64(total - placed))
	placementScore.Observe(score)
	pipelineLatency.Observe(dur.Seconds())
}

func IncJob(result string) { jobsTotal.WithLabelValues(result).Inc() }
