package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "octopus_requests_total",
			Help: "Total number of consumption page requests made to the Octopus API.",
		},
		[]string{"energy_type", "code"},
	)
	remoteRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "octopus_request_duration_seconds",
			Help:    "Octopus API page request latency in seconds, retries included.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"energy_type"},
	)

	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync runs by result.",
		},
		[]string{"result"},
	)
	syncDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Wall time of a complete sync run.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)
	readingsMergedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readings_merged_total",
			Help: "Readings offered to the cache, by energy type and outcome.",
		},
		[]string{"energy_type", "outcome"},
	)
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Requests served by the HTTP gateway, by route and status.",
		},
		[]string{"route", "method", "status"},
	)
	gatewayRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP gateway latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5},
		},
		[]string{"route"},
	)
	gatewayUpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_calls_total",
			Help: "gRPC calls made by the HTTP gateway to the readings service.",
		},
		[]string{"rpc", "code"},
	)
	gatewayUpstreamDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_upstream_duration_seconds",
			Help:    "Latency of gRPC calls made by the HTTP gateway.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5},
		},
		[]string{"rpc"},
	)
	cachedReadings = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cached_readings",
			Help: "Number of readings held in the cache after the last sync or reload.",
		},
		[]string{"energy_type"},
	)
)

func ObserveRemoteRequest(energyType, code string, dur time.Duration) {
	remoteRequestsTotal.WithLabelValues(energyType, code).Inc()
	remoteRequestDurationSeconds.WithLabelValues(energyType).Observe(dur.Seconds())
}

func ObserveSyncRun(result string, dur time.Duration) {
	syncRunsTotal.WithLabelValues(result).Inc()
	syncDurationSeconds.Observe(dur.Seconds())
}

func ObserveMerge(energyType string, inserted, duplicate, rejected int) {
	readingsMergedTotal.WithLabelValues(energyType, "inserted").Add(float64(inserted))
	readingsMergedTotal.WithLabelValues(energyType, "duplicate").Add(float64(duplicate))
	readingsMergedTotal.WithLabelValues(energyType, "rejected").Add(float64(rejected))
}

func SetCachedReadings(energyType string, n int) {
	cachedReadings.WithLabelValues(energyType).Set(float64(n))
}

// ObserveGatewayRequest records one HTTP request. route must be a fixed
// label, never the raw path.
func ObserveGatewayRequest(route, method string, status int, dur time.Duration) {
	gatewayRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	gatewayRequestDurationSeconds.WithLabelValues(route).Observe(dur.Seconds())
}

func ObserveUpstreamCall(rpc, code string, dur time.Duration) {
	gatewayUpstreamCallsTotal.WithLabelValues(rpc, code).Inc()
	gatewayUpstreamDurationSeconds.WithLabelValues(rpc).Observe(dur.Seconds())
}
