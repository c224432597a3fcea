// Package metrics exposes Prometheus collectors for pool operations.
package metrics

import (
	"time"

	"github.com/defistate/defistate-pool-go/fixedpoint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"

	AssetBase  = "base"
	AssetToken = "token"
)

// Metrics holds the pool collectors.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	Rejections        *prometheus.CounterVec

	BaseReserve  prometheus.Gauge
	TokenReserve prometheus.Gauge
	TotalShares  prometheus.Gauge

	SwapVolume  *prometheus.CounterVec
	FeesAccrued *prometheus.CounterVec
}

// New registers the pool collectors on reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "cpamm"
	}
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "operations_total",
			Help:      "Pool operations by name and outcome",
		}, []string{"op", "outcome"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "operation_duration_seconds",
			Help:      "Duration of pool operations including settlement",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"op"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "rejections_total",
			Help:      "Rejected pool operations by reason",
		}, []string{"op", "reason"}),
		BaseReserve: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "base_reserve",
			Help:      "Base currency held by the pool, in units",
		}),
		TokenReserve: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "token_reserve",
			Help:      "Token held by the pool, in units",
		}),
		TotalShares: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "total_shares",
			Help:      "Outstanding liquidity shares, in units",
		}),
		SwapVolume: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "swap_volume_total",
			Help:      "Swap input volume by asset, in units",
		}, []string{"asset"}),
		FeesAccrued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "fees_accrued_total",
			Help:      "Trading fees retained in reserves by asset, in units",
		}, []string{"asset"}),
	}
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(op string, start time.Time, reason string) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if reason == "" {
		m.Operations.WithLabelValues(op, OutcomeOK).Inc()
		return
	}
	m.Operations.WithLabelValues(op, OutcomeRejected).Inc()
	m.Rejections.WithLabelValues(op, reason).Inc()
}

// SetReserves publishes the committed pool totals.
func (m *Metrics) SetReserves(base, token, shares fixedpoint.Amount) {
	m.BaseReserve.Set(base.Float64())
	m.TokenReserve.Set(token.Float64())
	m.TotalShares.Set(shares.Float64())
}

// ObserveSwap adds a swap's input and retained fee to the asset counters.
func (m *Metrics) ObserveSwap(asset string, amountIn, fee fixedpoint.Amount) {
	m.SwapVolume.WithLabelValues(asset).Add(amountIn.Float64())
	m.FeesAccrued.WithLabelValues(asset).Add(fee.Float64())
}
