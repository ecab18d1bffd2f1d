package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "ceros_embed"
)

var (
	// Metadata fetches
	OEmbedFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oembed_fetches_total",
		Help:      "Count of experience metadata fetches.",
	}, []string{"status"})

	OEmbedFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "oembed_fetch_duration_seconds",
		Help:      "Time taken to fetch experience metadata.",
		Buckets:   prometheus.DefBuckets,
	})

	// Management API
	CMARequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cma_requests_total",
		Help:      "Count of management API requests by method and response class.",
	}, []string{"method", "status_class"})

	CMARateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cma_rate_limited_total",
		Help:      "Count of management API responses with status 429.",
	})

	// Configuration
	ProvisioningStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provisioning_steps_total",
		Help:      "Count of content model provisioning steps.",
	}, []string{"step", "status"})

	ConfigureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "configure_total",
		Help:      "Count of configuration save attempts.",
	}, []string{"status"})

	// Entry editor
	EntryOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entry_operations_total",
		Help:      "Count of link, unlink and refresh operations on entries.",
	}, []string{"operation", "status"})
)

// Status labels shared by the counters above.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	StatusBusy   = "busy"
)
