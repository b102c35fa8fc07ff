// Package metrics holds the chat client's Prometheus counters.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Turn sources for TurnsTotal.
const (
	SourceLive    = "live"
	SourceOffline = "offline"
	SourcePolicy  = "policy"
)

// Metrics holds all collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal          *prometheus.CounterVec
	FallbacksTotal      *prometheus.CounterVec
	TokensTotal         *prometheus.CounterVec
	CostDollarsTotal    prometheus.Counter
	UsageRejectedTotal  prometheus.Counter
	ProviderCallSeconds prometheus.Histogram
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bmadchat_turns_total",
			Help: "Agent turns appended, by the source that produced them.",
		}, []string{"source"}),

		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bmadchat_provider_fallbacks_total",
			Help: "Live provider failures answered by the offline provider.",
		}, []string{"kind"}),

		TokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bmadchat_tokens_total",
			Help: "Tokens recorded in the usage ledger.",
		}, []string{"kind"}),

		CostDollarsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bmadchat_cost_dollars_total",
			Help: "Dollars recorded in the usage ledger.",
		}),

		UsageRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bmadchat_usage_rejected_total",
			Help: "Usage records the ledger refused.",
		}),

		ProviderCallSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bmadchat_provider_call_seconds",
			Help:    "Live provider call duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.FallbacksTotal,
		m.TokensTotal,
		m.CostDollarsTotal,
		m.UsageRejectedTotal,
		m.ProviderCallSeconds,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps the registry in Prometheus text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
