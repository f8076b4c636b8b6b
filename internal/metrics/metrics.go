package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "podclip"

var (
	ClipsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "clips_total",
		Help:      "Clips processed, by outcome.",
	}, []string{"outcome"})

	FramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reframe_frames_total",
		Help:      "Output frames written by the reframing engine, by mode.",
	}, []string{"mode"})

	UploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_uploads_total",
		Help:      "Delivery gate decisions (uploaded or skipped because the key exists).",
	}, []string{"result"})

	RankingFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ranking_failures_total",
		Help:      "Transcript chunks that yielded no clips because ranking failed.",
	}, []string{"reason"})

	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "clip_stage_duration_seconds",
		Help:      "Duration of each per-clip stage.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s → ~4m
	}, []string{"stage"})
)

func init() {
	prometheus.MustRegister(
		ClipsTotal,
		FramesTotal,
		UploadsTotal,
		RankingFailures,
		StageDuration,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
