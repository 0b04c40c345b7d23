// Package observability exposes the Prometheus collectors marketvault
// services record into.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics aggregates the collectors for vault operation activity.
type VaultMetrics struct {
	requests     *prometheus.CounterVec
	errors       *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	exchangeRate *prometheus.GaugeVec
}

var (
	vaultMetricsOnce sync.Once
	vaultRegistry    *VaultMetrics
)

// Metrics returns the lazily-initialised vault metrics registry.
func Metrics() *VaultMetrics {
	vaultMetricsOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketvault",
				Subsystem: "vault",
				Name:      "requests_total",
				Help:      "Total vault requests segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "marketvault",
				Subsystem: "vault",
				Name:      "errors_total",
				Help:      "Total vault errors segmented by operation and reason.",
			}, []string{"op", "reason"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "marketvault",
				Subsystem: "vault",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for vault handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			exchangeRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "marketvault",
				Subsystem: "vault",
				Name:      "exchange_rate",
				Help:      "Last observed exchange rate per asset, WAD scaled down to a float.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			vaultRegistry.requests,
			vaultRegistry.errors,
			vaultRegistry.latency,
			vaultRegistry.exchangeRate,
		)
	})
	return vaultRegistry
}

// ObserveRequest records one handled request with its outcome and duration.
func (m *VaultMetrics) ObserveRequest(op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(seconds)
}

// RecordError counts a failed operation by reason.
func (m *VaultMetrics) RecordError(op, reason string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(op, reason).Inc()
}

// SetExchangeRate publishes the latest rate observed for an asset.
func (m *VaultMetrics) SetExchangeRate(asset string, rate float64) {
	if m == nil {
		return
	}
	m.exchangeRate.WithLabelValues(asset).Set(rate)
}
