package curve

import "math"

const (
	// x10kFullBp is 100% at the limiter's internal precision (bp x10000).
	x10kFullBp = 100_000_000
	// x100FullBp is 100% at the caller-facing precision (bp x100).
	x100FullBp = 1_000_000
	// limiterScale converts caller-facing values to internal precision.
	limiterScale = x10kFullBp / x100FullBp
)

// NewBurnRateLimiter returns an idle limiter anchored at the given time.
func NewBurnRateLimiter(now int64) BurnRateLimiter {
	return BurnRateLimiter{LastUpdateTs: now}
}

// Admit runs one admission round: decay executed stress linearly, enqueue the
// new request geometrically, then flush as much of the queue as the remaining
// headroom allows. The request is recorded even when nothing executes, so a
// Queued result still advances the limiter state.
func (l *BurnRateLimiter) Admit(requestBpX100 uint64, cfg BurnRateConfig, now int64) (RateLimitResult, error) {
	request, err := checkedMul(requestBpX100, limiterScale)
	if err != nil {
		return RateLimitResult{}, err
	}
	limit, err := checkedMul(cfg.LimitBpX100, limiterScale)
	if err != nil {
		return RateLimitResult{}, err
	}
	minBurn, err := checkedMul(cfg.MinBurnBpX100, limiterScale)
	if err != nil {
		return RateLimitResult{}, err
	}
	decayRate, err := checkedMul(cfg.DecayRatePerSecBpX100, limiterScale)
	if err != nil {
		return RateLimitResult{}, err
	}

	var elapsed uint64
	if now > l.LastUpdateTs {
		elapsed = uint64(now - l.LastUpdateTs)
	}
	decay := saturatingMul(elapsed, decayRate)
	if decay >= l.AccumulatedStressBpX10k {
		l.AccumulatedStressBpX10k = 0
	} else {
		l.AccumulatedStressBpX10k -= decay
	}

	queue, err := compoundAdd(l.PendingQueueSharesBpX10k, request)
	if err != nil {
		return RateLimitResult{}, err
	}
	l.PendingQueueSharesBpX10k = queue
	l.LastUpdateTs = now

	var space uint64
	if l.AccumulatedStressBpX10k < limit {
		space = limit - l.AccumulatedStressBpX10k
	}

	potential := queue
	if space < potential {
		potential = space
	}
	if potential < minBurn {
		return RateLimitResult{Kind: RateLimitQueued}, nil
	}

	stress, err := checkedAdd(l.AccumulatedStressBpX10k, potential)
	if err != nil {
		return RateLimitResult{}, err
	}
	l.AccumulatedStressBpX10k = stress
	remaining, err := compoundRemove(queue, potential)
	if err != nil {
		return RateLimitResult{}, err
	}
	l.PendingQueueSharesBpX10k = remaining

	result := RateLimitResult{Kind: RateLimitExecutePartial, AmountBpX100: potential / limiterScale}
	if remaining == 0 {
		result.Kind = RateLimitExecuteFull
	}
	return result, nil
}

// compoundAdd composes two fractions geometrically: 1 - (1-a)(1-b). The kept
// complement rounds up so the composite never under-counts the request.
func compoundAdd(currentX10k, newX10k uint64) (uint64, error) {
	if currentX10k > x10kFullBp || newX10k > x10kFullBp {
		return 0, ErrMathOverflow
	}
	keepCur := x10kFullBp - currentX10k
	keepNew := x10kFullBp - newX10k
	// Products stay below 10^16, comfortably inside uint64.
	keepCombined := (keepCur*keepNew + x10kFullBp - 1) / x10kFullBp
	return x10kFullBp - keepCombined, nil
}

// compoundRemove peels an executed fraction off a geometric composite:
// (total-part)/(1-part). Flooring slightly over-states the remaining queue,
// never under-states it.
func compoundRemove(totalX10k, partX10k uint64) (uint64, error) {
	if partX10k > totalX10k {
		return 0, ErrMathOverflow
	}
	if partX10k == totalX10k {
		return 0, nil
	}
	if totalX10k > x10kFullBp {
		return 0, ErrMathOverflow
	}
	denom := x10kFullBp - partX10k
	return (totalX10k - partX10k) * x10kFullBp / denom, nil
}

func saturatingMul(a, b uint64) uint64 {
	if a != 0 && b > math.MaxUint64/a {
		return math.MaxUint64
	}
	return a * b
}
