package curve

import (
	"time"

	"bcmm/core/events"
	"bcmm/core/types"
)

type engineState interface {
	PoolGet(id types.RecordID) (*Pool, bool, error)
	PoolPut(pool *Pool) error
	PlatformConfigGet(id types.RecordID) (*PlatformConfig, bool, error)
	PlatformConfigPut(cfg *PlatformConfig) error
	VirtualAccountGet(poolID types.RecordID, owner types.Address) (*VirtualTokenAccount, bool, error)
	VirtualAccountPut(account *VirtualTokenAccount) error
	VirtualAccountDelete(poolID types.RecordID, owner types.Address) error
	BurnAllowanceGet(owner types.Address, configID types.RecordID, tierIndex uint8) (*UserBurnAllowance, bool, error)
	BurnAllowancePut(allowance *UserBurnAllowance) error
	BurnAllowanceDelete(owner types.Address, configID types.RecordID, tierIndex uint8) error
}

// TokenMover is the host's capability for moving the real quote asset between
// a pool-owned holding and an external holding. The engine invokes it but does
// not implement it.
type TokenMover interface {
	TransferIn(from types.Address, poolID types.RecordID, amount uint64) error
	TransferOut(poolID types.RecordID, to types.Address, amount uint64) error
}

// Engine wires the bonding-curve business logic with persistence, quote-asset
// transfers, and event emission. Every exported method is one atomic state
// transition; the host serializes calls per record and discards all mutations
// when a call returns an error.
type Engine struct {
	state   engineState
	mover   TokenMover
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine constructs a curve engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetMover configures the quote-asset transfer capability.
func (e *Engine) SetMover(mover TokenMover) { e.mover = mover }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// PlatformConfigUpdate carries the optional fields of an admin update. Nil
// pointers leave the current value in place; a non-nil BurnTiers replaces the
// tier list and restarts the cooldown.
type PlatformConfigUpdate struct {
	CreatorFeeBp  *uint16
	BuybackFeeBp  *uint16
	PlatformFeeBp *uint16
	BurnRate      *BurnRateConfig
	BurnTiers     []BurnTier
}

// InitPlatformConfig validates and persists a new platform configuration.
func (e *Engine) InitPlatformConfig(id types.RecordID, admin, creator, quoteMint types.Address, creatorFeeBp, buybackFeeBp, platformFeeBp uint16, burnRate BurnRateConfig, tiers []BurnTier) (*PlatformConfig, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if _, ok, err := e.state.PlatformConfigGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrExists
	}
	cfg := &PlatformConfig{
		ID:                 id,
		Admin:              admin,
		Creator:            creator,
		QuoteMint:          quoteMint,
		CreatorFeeBp:       creatorFeeBp,
		BuybackFeeBp:       buybackFeeBp,
		PlatformFeeBp:      platformFeeBp,
		BurnTiersUpdatedAt: e.now(),
		BurnRate:           burnRate,
		BurnTiers:          tiers,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := e.state.PlatformConfigPut(cfg); err != nil {
		return nil, err
	}
	e.emit(PlatformConfigCreatedEvent(cfg.ID.Hex(), cfg.Admin.Hex()))
	return cfg, nil
}

// UpdatePlatformConfig applies an admin update after re-validating the whole
// configuration. Tier replacements are rejected inside the cooldown window.
func (e *Engine) UpdatePlatformConfig(caller types.Address, id types.RecordID, update PlatformConfigUpdate) (*PlatformConfig, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	cfg, ok, err := e.state.PlatformConfigGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if cfg.Admin != caller {
		return nil, ErrInvalidPlatformAdmin
	}
	now := e.now()
	if update.BurnTiers != nil {
		if now-cfg.BurnTiersUpdatedAt < BurnTiersUpdateCooldownSecs {
			return nil, ErrBurnTiersUpdatedRecently
		}
		cfg.BurnTiers = update.BurnTiers
		cfg.BurnTiersUpdatedAt = now
	}
	if update.CreatorFeeBp != nil {
		cfg.CreatorFeeBp = *update.CreatorFeeBp
	}
	if update.BuybackFeeBp != nil {
		cfg.BuybackFeeBp = *update.BuybackFeeBp
	}
	if update.PlatformFeeBp != nil {
		cfg.PlatformFeeBp = *update.PlatformFeeBp
	}
	if update.BurnRate != nil {
		cfg.BurnRate = *update.BurnRate
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := e.state.PlatformConfigPut(cfg); err != nil {
		return nil, err
	}
	e.emit(PlatformConfigUpdatedEvent(cfg.ID.Hex(), cfg.Admin.Hex()))
	return cfg, nil
}

// CreatePool opens a new market against an existing platform configuration,
// snapshotting its fee splits into the pool.
func (e *Engine) CreatePool(id types.RecordID, creator types.Address, configID types.RecordID, quoteVirtualReserve uint64) (*Pool, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	cfg, ok, err := e.state.PlatformConfigGet(configID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if _, ok, err := e.state.PoolGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrExists
	}
	pool, err := NewPool(id, creator, configID, cfg.QuoteMint, quoteVirtualReserve, cfg.CreatorFeeBp, cfg.BuybackFeeBp, cfg.PlatformFeeBp, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(PoolCreatedEvent(pool.ID.Hex(), pool.Creator.Hex(), pool.QuoteVirtualReserve))
	return pool, nil
}

// InitVirtualAccount opens an empty virtual token account for owner in pool.
func (e *Engine) InitVirtualAccount(poolID types.RecordID, owner types.Address) (*VirtualTokenAccount, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if _, ok, err := e.state.PoolGet(poolID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}
	if _, ok, err := e.state.VirtualAccountGet(poolID, owner); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrExists
	}
	account := &VirtualTokenAccount{PoolID: poolID, Owner: owner}
	if err := e.state.VirtualAccountPut(account); err != nil {
		return nil, err
	}
	return account, nil
}

// CloseVirtualAccount removes an emptied virtual token account.
func (e *Engine) CloseVirtualAccount(poolID types.RecordID, owner types.Address) error {
	if e.state == nil {
		return ErrNilState
	}
	account, ok, err := e.state.VirtualAccountGet(poolID, owner)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if account.Balance != 0 {
		return ErrNonzeroBalance
	}
	return e.state.VirtualAccountDelete(poolID, owner)
}

// Buy swaps quoteIn of the real quote asset for base tokens credited to the
// buyer's virtual account. Fees come off the input leg before pricing; the
// topup runs between fee accrual and pricing so the curve reflects the
// freshest solvency state.
func (e *Engine) Buy(buyer types.Address, poolID types.RecordID, quoteIn, minBaseOut uint64) (*SwapReceipt, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.mover == nil {
		return nil, ErrNilMover
	}
	pool, ok, err := e.state.PoolGet(poolID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	account, ok, err := e.state.VirtualAccountGet(poolID, buyer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	fees, err := pool.CalculateFees(quoteIn)
	if err != nil {
		return nil, err
	}
	totalFees := fees.Total()
	if totalFees > quoteIn {
		return nil, ErrAmountTooSmall
	}
	realSwap := quoteIn - totalFees

	if pool.CreatorFeesBalance, err = checkedAdd(pool.CreatorFeesBalance, fees.Creator); err != nil {
		return nil, err
	}
	if pool.BuybackFeesBalance, err = checkedAdd(pool.BuybackFeesBalance, fees.Buyback); err != nil {
		return nil, err
	}
	if pool.PlatformFeesBalance, err = checkedAdd(pool.PlatformFeesBalance, fees.Platform); err != nil {
		return nil, err
	}
	pulled, err := pool.Topup()
	if err != nil {
		return nil, err
	}

	baseOut := pool.QuoteToBase(realSwap)
	if baseOut == 0 {
		return nil, ErrAmountTooSmall
	}
	if baseOut < minBaseOut {
		return nil, ErrSlippageExceeded
	}
	if pool.BaseReserve, err = checkedSub(pool.BaseReserve, baseOut); err != nil {
		return nil, err
	}
	if pool.QuoteReserve, err = checkedAdd(pool.QuoteReserve, realSwap); err != nil {
		return nil, err
	}
	if err := account.Add(baseOut, fees); err != nil {
		return nil, err
	}

	if err := e.mover.TransferIn(buyer, pool.ID, quoteIn); err != nil {
		return nil, err
	}
	if err := e.state.VirtualAccountPut(account); err != nil {
		return nil, err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(SwapEvent(EventTypeBought, pool.ID.Hex(), buyer.Hex(), quoteIn, baseOut))
	return &SwapReceipt{AmountIn: quoteIn, AmountOut: baseOut, NetAmountOut: baseOut, Fees: fees, TopupPulled: pulled}, nil
}

// Sell swaps base tokens from the seller's virtual account back into the real
// quote asset. Fees come off the output leg; the seller receives the net.
func (e *Engine) Sell(seller types.Address, poolID types.RecordID, baseIn, minQuoteOut uint64) (*SwapReceipt, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.mover == nil {
		return nil, ErrNilMover
	}
	pool, ok, err := e.state.PoolGet(poolID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	account, ok, err := e.state.VirtualAccountGet(poolID, seller)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if account.Balance < baseIn {
		return nil, ErrInsufficientVirtualTokens
	}

	pulled, err := pool.Topup()
	if err != nil {
		return nil, err
	}
	quoteOut := pool.BaseToQuote(baseIn)
	if quoteOut == 0 {
		return nil, ErrAmountTooSmall
	}
	fees, err := pool.CalculateFees(quoteOut)
	if err != nil {
		return nil, err
	}
	totalFees := fees.Total()
	if totalFees > quoteOut {
		return nil, ErrAmountTooSmall
	}
	netOut := quoteOut - totalFees
	if netOut < minQuoteOut {
		return nil, ErrSlippageExceeded
	}

	if pool.QuoteReserve, err = checkedSub(pool.QuoteReserve, quoteOut); err != nil {
		return nil, err
	}
	if pool.BaseReserve, err = checkedAdd(pool.BaseReserve, baseIn); err != nil {
		return nil, err
	}
	if pool.CreatorFeesBalance, err = checkedAdd(pool.CreatorFeesBalance, fees.Creator); err != nil {
		return nil, err
	}
	if pool.BuybackFeesBalance, err = checkedAdd(pool.BuybackFeesBalance, fees.Buyback); err != nil {
		return nil, err
	}
	if pool.PlatformFeesBalance, err = checkedAdd(pool.PlatformFeesBalance, fees.Platform); err != nil {
		return nil, err
	}
	if err := account.Sub(baseIn, fees); err != nil {
		return nil, err
	}

	if err := e.mover.TransferOut(pool.ID, seller, netOut); err != nil {
		return nil, err
	}
	if err := e.state.VirtualAccountPut(account); err != nil {
		return nil, err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(SwapEvent(EventTypeSold, pool.ID.Hex(), seller.Hex(), baseIn, netOut))
	return &SwapReceipt{AmountIn: baseIn, AmountOut: quoteOut, NetAmountOut: netOut, Fees: fees, TopupPulled: pulled}, nil
}

// Burn executes one rate-limited burn attempt against the tier at tierIndex.
// A Queued decision is not an error: nothing burns, but the limiter and the
// caller's daily allowance both record the attempt.
func (e *Engine) Burn(caller types.Address, poolID types.RecordID, tierIndex uint8) (*BurnResult, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	pool, ok, err := e.state.PoolGet(poolID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	cfg, ok, err := e.state.PlatformConfigGet(pool.PlatformConfigID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if int(tierIndex) >= len(cfg.BurnTiers) {
		return nil, ErrInvalidBurnTierIndex
	}
	tier := cfg.BurnTiers[tierIndex]
	switch tier.Role {
	case BurnRolePoolCreator:
		if caller != pool.Creator {
			return nil, ErrInvalidPoolCreator
		}
	case BurnRoleSpecificAddress:
		if caller != tier.Authority {
			return nil, ErrInvalidBurnAuthority
		}
	}

	allowance, ok, err := e.state.BurnAllowanceGet(caller, cfg.ID, tierIndex)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if allowance.TiersGeneration != cfg.BurnTiersUpdatedAt {
		return nil, ErrStaleBurnAllowance
	}
	now := e.now()
	if tier.MaxDailyBurns > 0 && allowance.BurnsAvailableToday(now) >= tier.MaxDailyBurns {
		return nil, ErrBurnLimitReached
	}
	allowance.Pop(now)

	result, err := pool.Burn(cfg.BurnRate, uint64(tier.BurnBpX100), now)
	if err != nil {
		return nil, err
	}
	if result.RateLimit.Kind != RateLimitQueued {
		pulled, err := pool.Topup()
		if err != nil {
			return nil, err
		}
		result.TopupPulled = pulled
	}

	if err := e.state.BurnAllowancePut(allowance); err != nil {
		return nil, err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(BurnEvent(pool.ID.Hex(), caller.Hex(), tierIndex, result.BurnAmount, result.RateLimit.Kind, pool.BurnLimiter))
	return &result, nil
}

// Topup replays the pool's solvency routine on demand and persists the
// outcome. Returns the quote amount pulled from the buyback pot.
func (e *Engine) Topup(poolID types.RecordID) (uint64, error) {
	if e.state == nil {
		return 0, ErrNilState
	}
	pool, ok, err := e.state.PoolGet(poolID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	pulled, err := pool.Topup()
	if err != nil {
		return 0, err
	}
	if pulled == 0 {
		return 0, nil
	}
	if err := e.state.PoolPut(pool); err != nil {
		return 0, err
	}
	e.emit(TopupEvent(pool.ID.Hex(), pulled))
	return pulled, nil
}

// ClaimCreatorFees pays the pool creator's accrued fee balance out to a
// destination holding.
func (e *Engine) ClaimCreatorFees(caller types.Address, poolID types.RecordID, to types.Address) (uint64, error) {
	if e.state == nil {
		return 0, ErrNilState
	}
	if e.mover == nil {
		return 0, ErrNilMover
	}
	pool, ok, err := e.state.PoolGet(poolID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	if caller != pool.Creator {
		return 0, ErrInvalidPoolCreator
	}
	amount := pool.CreatorFeesBalance
	if amount == 0 {
		return 0, nil
	}
	pool.CreatorFeesBalance = 0
	if err := e.mover.TransferOut(pool.ID, to, amount); err != nil {
		return 0, err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return 0, err
	}
	e.emit(FeesClaimedEvent(pool.ID.Hex(), caller.Hex(), "creator", amount))
	return amount, nil
}

// ClaimPlatformFees pays the platform's accrued fee balance out to a
// destination holding. Only the configuration admin may claim.
func (e *Engine) ClaimPlatformFees(caller types.Address, poolID types.RecordID, to types.Address) (uint64, error) {
	if e.state == nil {
		return 0, ErrNilState
	}
	if e.mover == nil {
		return 0, ErrNilMover
	}
	pool, ok, err := e.state.PoolGet(poolID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	cfg, ok, err := e.state.PlatformConfigGet(pool.PlatformConfigID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	if caller != cfg.Admin {
		return 0, ErrInvalidPlatformAdmin
	}
	amount := pool.PlatformFeesBalance
	if amount == 0 {
		return 0, nil
	}
	pool.PlatformFeesBalance = 0
	if err := e.mover.TransferOut(pool.ID, to, amount); err != nil {
		return 0, err
	}
	if err := e.state.PoolPut(pool); err != nil {
		return 0, err
	}
	e.emit(FeesClaimedEvent(pool.ID.Hex(), caller.Hex(), "platform", amount))
	return amount, nil
}

// InitBurnAllowance mints a burn allowance for owner against one tier of a
// configuration. Privileged tiers check the owner's identity up front;
// pool-creator tiers additionally need the pool to verify against.
func (e *Engine) InitBurnAllowance(payer, owner types.Address, configID types.RecordID, tierIndex uint8, poolID types.RecordID) (*UserBurnAllowance, error) {
	if e.state == nil {
		return nil, ErrNilState
	}
	cfg, ok, err := e.state.PlatformConfigGet(configID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if int(tierIndex) >= len(cfg.BurnTiers) {
		return nil, ErrInvalidBurnTierIndex
	}
	tier := cfg.BurnTiers[tierIndex]
	switch tier.Role {
	case BurnRolePoolCreator:
		pool, ok, err := e.state.PoolGet(poolID)
		if err != nil {
			return nil, err
		}
		if !ok || pool.PlatformConfigID != configID {
			return nil, ErrInvalidPoolCreator
		}
		if owner != pool.Creator {
			return nil, ErrInvalidPoolCreator
		}
	case BurnRoleSpecificAddress:
		if owner != tier.Authority {
			return nil, ErrInvalidBurnAuthority
		}
	}
	if _, ok, err := e.state.BurnAllowanceGet(owner, configID, tierIndex); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrExists
	}
	allowance := NewUserBurnAllowance(owner, payer, configID, tierIndex, cfg.BurnTiersUpdatedAt, e.now())
	if err := e.state.BurnAllowancePut(allowance); err != nil {
		return nil, err
	}
	return allowance, nil
}

// CloseBurnAllowance removes an inactive allowance. Only the payer recorded
// at mint time may close, so any host-side refund goes back where it came
// from.
func (e *Engine) CloseBurnAllowance(caller, owner types.Address, configID types.RecordID, tierIndex uint8) error {
	if e.state == nil {
		return ErrNilState
	}
	allowance, ok, err := e.state.BurnAllowanceGet(owner, configID, tierIndex)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if caller != allowance.Payer {
		return ErrInvalidAllowancePayer
	}
	cfg, ok, err := e.state.PlatformConfigGet(configID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if !allowance.Inactive(cfg.BurnTiersUpdatedAt, e.now()) {
		return ErrBurnAllowanceActive
	}
	return e.state.BurnAllowanceDelete(owner, configID, tierIndex)
}
