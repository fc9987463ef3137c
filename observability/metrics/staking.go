package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StakingMetrics tracks ledger transaction outcomes and staking activity.
type StakingMetrics struct {
	txOutcomes    *prometheus.CounterVec
	applyLatency  *prometheus.HistogramVec
	rewardsMinted prometheus.Counter
	activeRecords prometheus.Gauge
	rpcRequests   *prometheus.CounterVec
	rpcThrottled  prometheus.Counter
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

// Staking returns the lazily-initialised staking metrics registry.
func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			txOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftstake",
				Subsystem: "ledger",
				Name:      "transactions_total",
				Help:      "Applied transactions segmented by type, outcome and error kind.",
			}, []string{"type", "outcome", "kind"}),
			applyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nftstake",
				Subsystem: "ledger",
				Name:      "apply_duration_seconds",
				Help:      "Latency distribution for transaction application.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"type"}),
			rewardsMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "nftstake",
				Subsystem: "staking",
				Name:      "rewards_minted_total",
				Help:      "Reward units minted to holders.",
			}),
			activeRecords: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "nftstake",
				Subsystem: "staking",
				Name:      "open_records",
				Help:      "Stake records opened and not yet closed since process start.",
			}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftstake",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			rpcThrottled: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "nftstake",
				Subsystem: "rpc",
				Name:      "throttled_total",
				Help:      "JSON-RPC requests rejected by the rate limiter.",
			}),
		}
		prometheus.MustRegister(
			stakingRegistry.txOutcomes,
			stakingRegistry.applyLatency,
			stakingRegistry.rewardsMinted,
			stakingRegistry.activeRecords,
			stakingRegistry.rpcRequests,
			stakingRegistry.rpcThrottled,
		)
	})
	return stakingRegistry
}

// ObserveTransaction records the outcome of an applied transaction. kind is
// empty for successful transactions.
func (m *StakingMetrics) ObserveTransaction(txType, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if kind != "" {
		outcome = "failed"
	}
	m.txOutcomes.WithLabelValues(txType, outcome, kind).Inc()
	m.applyLatency.WithLabelValues(txType).Observe(elapsed.Seconds())
}

// AddRewards records minted reward units.
func (m *StakingMetrics) AddRewards(amount uint64) {
	if m == nil {
		return
	}
	m.rewardsMinted.Add(float64(amount))
}

// RecordOpened increments the open record gauge.
func (m *StakingMetrics) RecordOpened() {
	if m == nil {
		return
	}
	m.activeRecords.Inc()
}

// RecordClosed decrements the open record gauge.
func (m *StakingMetrics) RecordClosed() {
	if m == nil {
		return
	}
	m.activeRecords.Dec()
}

// ObserveRPC records a JSON-RPC request.
func (m *StakingMetrics) ObserveRPC(method, outcome string) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
}

// ObserveThrottle records a rate-limited request.
func (m *StakingMetrics) ObserveThrottle() {
	if m == nil {
		return
	}
	m.rpcThrottled.Inc()
}
