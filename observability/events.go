package observability

import (
	"log/slog"
	"strconv"

	"bcmm/core/events"
	coretypes "bcmm/core/types"
	"bcmm/observability/metrics"
)

// payload is satisfied by engine event envelopes that expose the underlying
// structured event.
type payload interface {
	Event() *coretypes.Event
}

// Relay is an event sink that logs every engine event as structured JSON and
// feeds the Prometheus registry. Install it on an engine via SetEmitter.
type Relay struct {
	log     *slog.Logger
	metrics *metrics.CurveMetrics
}

// NewRelay builds a relay over the given logger. A nil logger falls back to
// the process default.
func NewRelay(log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{log: log, metrics: metrics.Curve()}
}

// Emit implements events.Emitter.
func (r *Relay) Emit(evt events.Event) {
	if r == nil || evt == nil {
		return
	}
	carrier, ok := evt.(payload)
	if !ok || carrier.Event() == nil {
		return
	}
	inner := carrier.Event()

	attrs := make([]any, 0, 2*len(inner.Attributes))
	for key, value := range inner.Attributes {
		attrs = append(attrs, slog.String(key, value))
	}
	r.log.Info(inner.Type, attrs...)

	switch inner.Type {
	case "curve.pool.bought":
		r.metrics.ObserveSwap("buy", attrUint(inner, "amountIn"))
	case "curve.pool.sold":
		r.metrics.ObserveSwap("sell", attrUint(inner, "amountOut"))
	case "curve.pool.burned":
		r.metrics.ObserveBurn(inner.Attributes["decision"], attrUint(inner, "burnAmount"))
		r.metrics.SetLimiter(inner.Attributes["poolId"], attrUint(inner, "stress"), attrUint(inner, "queue"))
	case "curve.pool.topup":
		r.metrics.ObserveTopup(attrUint(inner, "pulled"))
	case "curve.fees.claimed":
		r.metrics.ObserveFeeClaim(inner.Attributes["leg"], attrUint(inner, "amount"))
	case "curve.pool.created":
		r.metrics.ObservePoolCreated()
	case "curve.platform.created", "curve.platform.updated":
		r.metrics.ObserveConfigWrite()
	}
}

func attrUint(evt *coretypes.Event, key string) uint64 {
	value, err := strconv.ParseUint(evt.Attributes[key], 10, 64)
	if err != nil {
		return 0
	}
	return value
}
