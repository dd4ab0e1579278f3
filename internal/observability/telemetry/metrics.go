package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homewatt_pipeline_runs_total",
		Help: "Live-metering pipeline invocations by outcome",
	}, []string{"outcome"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "homewatt_pipeline_duration_seconds",
		Help:    "End-to-end duration of one pipeline run",
		Buckets: prometheus.DefBuckets,
	})

	LoadShedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homewatt_load_shed_events_total",
		Help: "Times the load-shedding policy forced devices off",
	})

	// Cache metrics
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homewatt_cache_hits_total",
		Help: "Entity cache hits by entity kind",
	}, []string{"entity"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homewatt_cache_misses_total",
		Help: "Entity cache misses by entity kind",
	}, []string{"entity"})

	DebounceHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homewatt_debounce_hits_total",
		Help: "Pipeline invocations answered from the result debounce cache",
	})

	// Session / broadcast metrics
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "homewatt_active_sessions",
		Help: "Live websocket sessions currently registered",
	})

	BroadcastsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "homewatt_broadcasts_total",
		Help: "Payloads fanned out to live sessions",
	})

	// Weather provider metrics
	WeatherRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "homewatt_weather_requests_total",
		Help: "Irradiance provider calls by outcome",
	}, []string{"outcome"})

	WeatherLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "homewatt_weather_latency_seconds",
		Help:    "Latency of irradiance provider calls",
		Buckets: prometheus.DefBuckets,
	})
)
