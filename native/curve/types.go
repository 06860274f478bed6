package curve

import "bcmm/core/types"

const (
	// DefaultBaseMintDecimals is the precision of the synthetic base asset.
	DefaultBaseMintDecimals = 6
	// DefaultBaseMintReserve is the base supply every pool starts with,
	// including decimals (one billion whole tokens).
	DefaultBaseMintReserve = 1_000_000_000 * 1_000_000
)

// BurnRole restricts who may invoke a burn tier.
type BurnRole uint8

const (
	// BurnRoleAnyone admits any caller; ceilings keep these tiers small.
	BurnRoleAnyone BurnRole = iota
	// BurnRolePoolCreator admits only the pool's creator.
	BurnRolePoolCreator
	// BurnRoleSpecificAddress admits only the whitelisted authority.
	BurnRoleSpecificAddress
)

// BurnTier describes one permitted burn size and who may request it.
type BurnTier struct {
	BurnBpX100    uint32
	Role          BurnRole
	Authority     types.Address // set only for BurnRoleSpecificAddress
	MaxDailyBurns uint16        // 0 = unlimited
}

// BurnRateConfig is the limiter policy carried by a platform configuration.
type BurnRateConfig struct {
	LimitBpX100           uint64
	MinBurnBpX100         uint64
	DecayRatePerSecBpX100 uint64
}

// PlatformConfig is the policy root shared by many pools: fee splits, the
// burn-rate policy, and up to five burn tiers.
type PlatformConfig struct {
	ID        types.RecordID
	Admin     types.Address
	Creator   types.Address
	QuoteMint types.Address

	CreatorFeeBp  uint16
	BuybackFeeBp  uint16
	PlatformFeeBp uint16

	// BurnTiersUpdatedAt enforces the tier-change cooldown and invalidates
	// burn allowances minted against older tier sets.
	BurnTiersUpdatedAt int64

	BurnRate  BurnRateConfig
	BurnTiers []BurnTier
}

// TotalFeeBp returns the sum of the three fee legs in basis points.
func (c *PlatformConfig) TotalFeeBp() uint32 {
	return uint32(c.CreatorFeeBp) + uint32(c.BuybackFeeBp) + uint32(c.PlatformFeeBp)
}

// BurnRateLimiter is the per-pool admission controller state. Stress tracks
// executed burns and decays linearly; the queue tracks not-yet-executed
// requested fractions composed geometrically and never decays.
type BurnRateLimiter struct {
	AccumulatedStressBpX10k  uint64
	PendingQueueSharesBpX10k uint64
	LastUpdateTs             int64
}

// Pool owns the reserves, fee balances, and limiter for one market.
type Pool struct {
	ID               types.RecordID
	Creator          types.Address
	PlatformConfigID types.RecordID
	QuoteMint        types.Address

	QuoteReserve                uint64
	QuoteVirtualReserve         uint64
	QuoteOptimalVirtualReserve  uint64
	QuoteStartingVirtualReserve uint64

	BaseMintDecimals        uint8
	BaseReserve             uint64
	BaseStartingTotalSupply uint64
	BaseTotalSupply         uint64

	CreatorFeesBalance  uint64
	BuybackFeesBalance  uint64
	PlatformFeesBalance uint64

	CreatorFeeBp  uint16
	BuybackFeeBp  uint16
	PlatformFeeBp uint16

	BurnLimiter BurnRateLimiter
}

// VirtualTokenAccount bookkeeps one owner's base-asset balance in one pool.
type VirtualTokenAccount struct {
	PoolID   types.RecordID
	Owner    types.Address
	Balance  uint64
	FeesPaid uint64
}

// Add credits a buy to the account.
func (a *VirtualTokenAccount) Add(baseAmount uint64, fees Fees) error {
	balance, err := checkedAdd(a.Balance, baseAmount)
	if err != nil {
		return err
	}
	a.Balance = balance
	a.FeesPaid += fees.Total()
	return nil
}

// Sub debits a sell from the account.
func (a *VirtualTokenAccount) Sub(baseAmount uint64, fees Fees) error {
	if a.Balance < baseAmount {
		return ErrInsufficientVirtualTokens
	}
	a.Balance -= baseAmount
	a.FeesPaid += fees.Total()
	return nil
}

// UserBurnAllowance counts one principal's burns against one tier per day.
// The reset boundary is anchored at the account's creation time rather than
// UTC midnight so resets do not race platform-wide.
type UserBurnAllowance struct {
	Owner    types.Address
	ConfigID types.RecordID
	// TierIndex binds the allowance to one tier of the configuration.
	TierIndex uint8
	// TiersGeneration records PlatformConfig.BurnTiersUpdatedAt at mint time;
	// a mismatch marks the allowance stale.
	TiersGeneration int64
	// Payer receives whatever the host refunds when the record is closed.
	Payer types.Address

	BurnsToday        uint16
	LastBurnTimestamp int64
	CreatedAt         int64
}

// RateLimitKind classifies the limiter's decision.
type RateLimitKind uint8

const (
	// RateLimitQueued means nothing executed now; the request is recorded.
	RateLimitQueued RateLimitKind = iota
	// RateLimitExecutePartial means part of the queue executed.
	RateLimitExecutePartial
	// RateLimitExecuteFull means the entire queue drained.
	RateLimitExecuteFull
)

// RateLimitResult is the limiter's decision plus the admitted fraction in
// x100 basis points (zero when queued).
type RateLimitResult struct {
	Kind         RateLimitKind
	AmountBpX100 uint64
}

// BurnResult reports one burn attempt: the limiter's decision, the base
// amount actually destroyed, and any quote pulled by the follow-up topup.
type BurnResult struct {
	RateLimit   RateLimitResult
	BurnAmount  uint64
	TopupPulled uint64
}

// SwapReceipt reports one executed buy or sell.
type SwapReceipt struct {
	// AmountIn is the gross input (quote for buys, base for sells).
	AmountIn uint64
	// AmountOut is the output before fees (base for buys, quote for sells).
	AmountOut uint64
	// NetAmountOut is what the trader keeps after fees; equal to AmountOut
	// for buys, whose fees come out of the input leg.
	NetAmountOut uint64
	Fees         Fees
	TopupPulled  uint64
}
