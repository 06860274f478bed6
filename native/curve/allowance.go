package curve

import "bcmm/core/types"

const secondsPerDay = 86_400

// NewUserBurnAllowance mints a fresh allowance bound to the configuration's
// current tier generation.
func NewUserBurnAllowance(owner, payer types.Address, configID types.RecordID, tierIndex uint8, tiersGeneration, now int64) *UserBurnAllowance {
	return &UserBurnAllowance{
		Owner:           owner,
		ConfigID:        configID,
		TierIndex:       tierIndex,
		TiersGeneration: tiersGeneration,
		Payer:           payer,
		CreatedAt:       now,
	}
}

// Pop records one burn attempt and returns the new daily count. Pop never
// fails: callers enforce the tier's daily cap before calling, so the limit
// check and the mutation stay separate steps.
func (a *UserBurnAllowance) Pop(now int64) uint16 {
	if a.ShouldReset(now) {
		a.BurnsToday = 0
	}
	a.BurnsToday++
	a.LastBurnTimestamp = now
	return a.BurnsToday
}

// ShouldReset reports whether the daily boundary anchored at the account's
// creation time has advanced past the last recorded burn.
func (a *UserBurnAllowance) ShouldReset(now int64) bool {
	offset := a.CreatedAt % secondsPerDay
	dayLast := saturatingSubInt64(a.LastBurnTimestamp, offset) / secondsPerDay
	dayNow := saturatingSubInt64(now, offset) / secondsPerDay
	return dayLast < dayNow
}

// BurnsAvailableToday is the count a cap check should compare against: the
// stored counter, or zero when the next Pop would reset it anyway.
func (a *UserBurnAllowance) BurnsAvailableToday(now int64) uint16 {
	if a.ShouldReset(now) {
		return 0
	}
	return a.BurnsToday
}

// Inactive reports whether the record may be closed: never used today, idle
// for at least a day, or minted against a superseded tier set.
func (a *UserBurnAllowance) Inactive(tiersGeneration, now int64) bool {
	if a.TiersGeneration != tiersGeneration {
		return true
	}
	if a.BurnsToday == 0 {
		return true
	}
	return now-a.LastBurnTimestamp >= secondsPerDay
}

func saturatingSubInt64(a, b int64) int64 {
	if a < b {
		return 0
	}
	return a - b
}
