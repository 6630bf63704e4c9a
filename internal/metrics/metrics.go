// Package metrics exposes Prometheus counters for the relay pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Datagram outcomes recorded by the relay listener.
const (
	OutcomeStored      = "stored"
	OutcomeEmpty       = "empty"
	OutcomeUndecodable = "undecodable"
	OutcomeStoreError  = "store_error"
)

// Recorder collects metrics for the HTTP front end, the relay and the store.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	httpRequests  *prometheus.CounterVec
	relaySends    *prometheus.CounterVec
	datagrams     *prometheus.CounterVec
	mergeDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a Recorder registered on a private registry.
func New(namespace string) *Recorder {
	if namespace == "" {
		namespace = "formrelay"
	}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
	}

	r.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{"method", "code"},
	)

	r.relaySends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_sends_total",
			Help:      "Total number of relay datagram sends by result",
		},
		[]string{"result"},
	)

	r.datagrams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_datagrams_total",
			Help:      "Total number of datagrams received by the relay listener by outcome",
		},
		[]string{"outcome"},
	)

	r.mergeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_merge_duration_seconds",
			Help:      "Duration of record store merges",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	r.registry.MustRegister(
		r.httpRequests,
		r.relaySends,
		r.datagrams,
		r.mergeDuration,
	)

	return r
}

// HTTPRequest records a served request.
func (r *Recorder) HTTPRequest(method string, code int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// RelaySend records a relay send attempt.
func (r *Recorder) RelaySend(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.relaySends.WithLabelValues(result).Inc()
}

// Datagram records what happened to a received datagram.
func (r *Recorder) Datagram(outcome string) {
	if r == nil {
		return
	}
	r.datagrams.WithLabelValues(outcome).Inc()
}

// StoreMerge records the duration of a store merge.
func (r *Recorder) StoreMerge(d time.Duration) {
	if r == nil {
		return
	}
	r.mergeDuration.Observe(d.Seconds())
}

// HTTPRequests returns the request counter, labelled by method and code.
func (r *Recorder) HTTPRequests() *prometheus.CounterVec {
	return r.httpRequests
}

// RelaySends returns the relay send counter, labelled by result.
func (r *Recorder) RelaySends() *prometheus.CounterVec {
	return r.relaySends
}

// Datagrams returns the listener counter, labelled by outcome.
func (r *Recorder) Datagrams() *prometheus.CounterVec {
	return r.datagrams
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
