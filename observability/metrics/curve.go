package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type CurveMetrics struct {
	swapsExecuted  *prometheus.CounterVec
	swapVolume     *prometheus.CounterVec
	burnsDecided   *prometheus.CounterVec
	tokensBurned   prometheus.Counter
	topupPulled    prometheus.Counter
	feesClaimed    *prometheus.CounterVec
	limiterStress  *prometheus.GaugeVec
	limiterQueue   *prometheus.GaugeVec
	poolsCreated   prometheus.Counter
	configsWritten prometheus.Counter
}

var (
	curveOnce     sync.Once
	curveRegistry *CurveMetrics
)

func Curve() *CurveMetrics {
	curveOnce.Do(func() {
		curveRegistry = &CurveMetrics{
			swapsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "curve_swaps_total",
				Help: "Count of executed swaps by side.",
			}, []string{"side"}),
			swapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "curve_swap_volume_total",
				Help: "Gross quote volume moved through swaps by side.",
			}, []string{"side"}),
			burnsDecided: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "curve_burns_total",
				Help: "Count of burn attempts by limiter decision.",
			}, []string{"decision"}),
			tokensBurned: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "curve_tokens_burned_total",
				Help: "Base tokens destroyed by admitted burns.",
			}),
			topupPulled: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "curve_topup_pulled_total",
				Help: "Quote pulled from buyback pots into real reserves.",
			}),
			feesClaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "curve_fees_claimed_total",
				Help: "Quote paid out through fee claims by leg.",
			}, []string{"leg"}),
			limiterStress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "curve_limiter_stress",
				Help: "Accumulated limiter stress per pool, x10k basis points.",
			}, []string{"pool"}),
			limiterQueue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "curve_limiter_queue",
				Help: "Pending limiter queue per pool, x10k basis points.",
			}, []string{"pool"}),
			poolsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "curve_pools_created_total",
				Help: "Count of pools opened.",
			}),
			configsWritten: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "curve_platform_configs_total",
				Help: "Count of platform configuration writes.",
			}),
		}
		prometheus.MustRegister(
			curveRegistry.swapsExecuted,
			curveRegistry.swapVolume,
			curveRegistry.burnsDecided,
			curveRegistry.tokensBurned,
			curveRegistry.topupPulled,
			curveRegistry.feesClaimed,
			curveRegistry.limiterStress,
			curveRegistry.limiterQueue,
			curveRegistry.poolsCreated,
			curveRegistry.configsWritten,
		)
	})
	return curveRegistry
}

func (m *CurveMetrics) ObserveSwap(side string, quoteVolume uint64) {
	if m == nil {
		return
	}
	if side == "" {
		side = "unknown"
	}
	m.swapsExecuted.WithLabelValues(side).Inc()
	m.swapVolume.WithLabelValues(side).Add(float64(quoteVolume))
}

func (m *CurveMetrics) ObserveBurn(decision string, tokensBurned uint64) {
	if m == nil {
		return
	}
	if decision == "" {
		decision = "unknown"
	}
	m.burnsDecided.WithLabelValues(decision).Inc()
	if tokensBurned > 0 {
		m.tokensBurned.Add(float64(tokensBurned))
	}
}

func (m *CurveMetrics) ObserveTopup(pulled uint64) {
	if m == nil || pulled == 0 {
		return
	}
	m.topupPulled.Add(float64(pulled))
}

func (m *CurveMetrics) ObserveFeeClaim(leg string, amount uint64) {
	if m == nil {
		return
	}
	if leg == "" {
		leg = "unknown"
	}
	m.feesClaimed.WithLabelValues(leg).Add(float64(amount))
}

func (m *CurveMetrics) SetLimiter(pool string, stress, queue uint64) {
	if m == nil || pool == "" {
		return
	}
	m.limiterStress.WithLabelValues(pool).Set(float64(stress))
	m.limiterQueue.WithLabelValues(pool).Set(float64(queue))
}

func (m *CurveMetrics) ObservePoolCreated() {
	if m == nil {
		return
	}
	m.poolsCreated.Inc()
}

func (m *CurveMetrics) ObserveConfigWrite() {
	if m == nil {
		return
	}
	m.configsWritten.Inc()
}
