// Package observability provides Prometheus metrics for the gateway client
// and the in-memory stores. All helpers are safe to call on a nil *Metrics,
// so instrumentation points never need to guard for a disabled setup.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Request outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds all collectors for the subsystem.
type Metrics struct {
	requests        *prometheus.CounterVec
	streamFragments prometheus.Counter
	skippedFrames   prometheus.Counter
	evictions       prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// New creates the metric collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "gateway_requests_total",
			Help:      "Gateway requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		streamFragments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "stream_fragments_total",
			Help:      "Content fragments delivered from streaming responses.",
		}),
		skippedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "stream_skipped_frames_total",
			Help:      "Malformed streaming frames skipped without aborting the stream.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "conversation_evictions_total",
			Help:      "Conversations evicted to respect the store capacity bound.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "completion_cache_hits_total",
			Help:      "Completion cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatcore",
			Name:      "completion_cache_misses_total",
			Help:      "Completion cache misses.",
		}),
	}

	reg.MustRegister(
		m.requests,
		m.streamFragments,
		m.skippedFrames,
		m.evictions,
		m.cacheHits,
		m.cacheMisses,
	)
	return m
}

// ObserveRequest records one gateway request outcome.
func (m *Metrics) ObserveRequest(operation, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
}

// StreamFragment records one delivered stream fragment.
func (m *Metrics) StreamFragment() {
	if m == nil {
		return
	}
	m.streamFragments.Inc()
}

// SkippedFrame records one malformed frame skipped during streaming.
func (m *Metrics) SkippedFrame() {
	if m == nil {
		return
	}
	m.skippedFrames.Inc()
}

// Eviction records one capacity-driven conversation eviction.
func (m *Metrics) Eviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

// CacheHit records a completion cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss records a completion cache miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
