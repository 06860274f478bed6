package curve

import (
	"strconv"

	"bcmm/core/events"
	"bcmm/core/types"
)

const (
	// EventTypePlatformCreated is emitted when a platform configuration is written.
	EventTypePlatformCreated = "curve.platform.created"
	// EventTypePlatformUpdated is emitted when an admin updates a configuration.
	EventTypePlatformUpdated = "curve.platform.updated"
	// EventTypePoolCreated is emitted when a new pool opens.
	EventTypePoolCreated = "curve.pool.created"
	// EventTypeBought is emitted when quote is swapped for base.
	EventTypeBought = "curve.pool.bought"
	// EventTypeSold is emitted when base is swapped back to quote.
	EventTypeSold = "curve.pool.sold"
	// EventTypeBurned is emitted per burn attempt, queued or executed.
	EventTypeBurned = "curve.pool.burned"
	// EventTypeTopup is emitted when the solvency routine pulls buyback fees.
	EventTypeTopup = "curve.pool.topup"
	// EventTypeFeesClaimed is emitted when an accrued fee balance pays out.
	EventTypeFeesClaimed = "curve.fees.claimed"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// PlatformConfigCreatedEvent announces a freshly validated configuration.
func PlatformConfigCreatedEvent(configID, admin string) *types.Event {
	return &types.Event{
		Type: EventTypePlatformCreated,
		Attributes: map[string]string{
			"configId": configID,
			"admin":    admin,
		},
	}
}

// PlatformConfigUpdatedEvent announces an applied admin update.
func PlatformConfigUpdatedEvent(configID, admin string) *types.Event {
	return &types.Event{
		Type: EventTypePlatformUpdated,
		Attributes: map[string]string{
			"configId": configID,
			"admin":    admin,
		},
	}
}

// PoolCreatedEvent announces a new market and its starting virtual reserve.
func PoolCreatedEvent(poolID, creator string, virtualReserve uint64) *types.Event {
	return &types.Event{
		Type: EventTypePoolCreated,
		Attributes: map[string]string{
			"poolId":         poolID,
			"creator":        creator,
			"virtualReserve": strconv.FormatUint(virtualReserve, 10),
		},
	}
}

// SwapEvent captures one executed buy or sell.
func SwapEvent(eventType, poolID, trader string, amountIn, amountOut uint64) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"poolId":    poolID,
			"trader":    trader,
			"amountIn":  strconv.FormatUint(amountIn, 10),
			"amountOut": strconv.FormatUint(amountOut, 10),
		},
	}
}

// BurnEvent captures one burn attempt: the limiter's decision plus its
// post-state, so downstream gauges can track stress without reading the pool.
func BurnEvent(poolID, caller string, tierIndex uint8, burnAmount uint64, kind RateLimitKind, limiter BurnRateLimiter) *types.Event {
	decision := "queued"
	switch kind {
	case RateLimitExecutePartial:
		decision = "partial"
	case RateLimitExecuteFull:
		decision = "full"
	}
	return &types.Event{
		Type: EventTypeBurned,
		Attributes: map[string]string{
			"poolId":     poolID,
			"caller":     caller,
			"tier":       strconv.FormatUint(uint64(tierIndex), 10),
			"burnAmount": strconv.FormatUint(burnAmount, 10),
			"decision":   decision,
			"stress":     strconv.FormatUint(limiter.AccumulatedStressBpX10k, 10),
			"queue":      strconv.FormatUint(limiter.PendingQueueSharesBpX10k, 10),
		},
	}
}

// TopupEvent captures a non-zero pull from the buyback pot.
func TopupEvent(poolID string, pulled uint64) *types.Event {
	return &types.Event{
		Type: EventTypeTopup,
		Attributes: map[string]string{
			"poolId": poolID,
			"pulled": strconv.FormatUint(pulled, 10),
		},
	}
}

// FeesClaimedEvent captures a fee payout; leg is "creator" or "platform".
func FeesClaimedEvent(poolID, claimer, leg string, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeFeesClaimed,
		Attributes: map[string]string{
			"poolId":  poolID,
			"claimer": claimer,
			"leg":     leg,
			"amount":  strconv.FormatUint(amount, 10),
		},
	}
}
