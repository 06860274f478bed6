package curve

import "bcmm/core/types"

// NewPool creates a pool against a validated platform configuration snapshot.
// The base side always starts at the default supply; the quote side starts
// empty apart from the chosen virtual reserve.
func NewPool(id types.RecordID, creator types.Address, configID types.RecordID, quoteMint types.Address, quoteVirtualReserve uint64, creatorFeeBp, buybackFeeBp, platformFeeBp uint16, now int64) (*Pool, error) {
	if quoteVirtualReserve == 0 {
		return nil, ErrInvalidVirtualReserve
	}
	if buybackFeeBp == 0 {
		return nil, ErrInvalidBuybackFee
	}
	return &Pool{
		ID:                          id,
		Creator:                     creator,
		PlatformConfigID:            configID,
		QuoteMint:                   quoteMint,
		QuoteVirtualReserve:         quoteVirtualReserve,
		QuoteOptimalVirtualReserve:  quoteVirtualReserve,
		QuoteStartingVirtualReserve: quoteVirtualReserve,
		BaseMintDecimals:            DefaultBaseMintDecimals,
		BaseReserve:                 DefaultBaseMintReserve,
		BaseStartingTotalSupply:     DefaultBaseMintReserve,
		BaseTotalSupply:             DefaultBaseMintReserve,
		CreatorFeeBp:                creatorFeeBp,
		BuybackFeeBp:                buybackFeeBp,
		PlatformFeeBp:               platformFeeBp,
		BurnLimiter:                 NewBurnRateLimiter(now),
	}, nil
}

// CalculateFees splits a gross quote amount per the pool's fee snapshot.
func (p *Pool) CalculateFees(quoteAmount uint64) (Fees, error) {
	return CalculateFees(quoteAmount, p.CreatorFeeBp, p.BuybackFeeBp, p.PlatformFeeBp)
}

// QuoteToBase prices a buy against the current reserves.
func (p *Pool) QuoteToBase(quoteAmount uint64) uint64 {
	return BuyOutput(quoteAmount, p.QuoteReserve, p.BaseReserve, p.QuoteVirtualReserve)
}

// BaseToQuote prices a sell against the current reserves.
func (p *Pool) BaseToQuote(baseAmount uint64) uint64 {
	return SellOutput(baseAmount, p.BaseReserve, p.QuoteReserve, p.QuoteVirtualReserve)
}

// Burn runs one rate-limited burn. A Queued decision leaves the reserves
// untouched; the limiter still records the request. An admitted burn destroys
// the admitted fraction of the base reserve and shrinks both virtual reserves
// proportionally so the price never drops.
func (p *Pool) Burn(cfg BurnRateConfig, requestedBpX100 uint64, now int64) (BurnResult, error) {
	decision, err := p.BurnLimiter.Admit(requestedBpX100, cfg, now)
	if err != nil {
		return BurnResult{}, err
	}
	if decision.Kind == RateLimitQueued {
		return BurnResult{RateLimit: decision}, nil
	}

	burnAmount := BurnAmount(decision.AmountBpX100, p.BaseReserve)
	p.QuoteVirtualReserve = VirtualReserveAfterBurn(p.QuoteVirtualReserve, p.BaseReserve, burnAmount)
	p.QuoteOptimalVirtualReserve = VirtualReserveAfterBurn(p.QuoteOptimalVirtualReserve, p.BaseTotalSupply, burnAmount)
	p.BaseReserve -= burnAmount
	p.BaseTotalSupply -= burnAmount
	return BurnResult{RateLimit: decision, BurnAmount: burnAmount}, nil
}

// Topup pulls accrued buyback fees into the real quote reserve until the
// worst-case exit price is back at or above the original entry price. A full
// pull snaps the virtual reserve to the optimum; a partial pull recomputes it
// downward from what the reserve actually holds.
func (p *Pool) Topup() (uint64, error) {
	if p.BaseReserve == 0 {
		return 0, ErrMathOverflow
	}
	optimalVirtual := OptimalVirtualReserve(p.QuoteStartingVirtualReserve, p.BaseStartingTotalSupply, p.BaseTotalSupply)
	optimalReal := OptimalRealReserve(p.BaseTotalSupply, optimalVirtual, p.BaseReserve)
	if optimalReal <= p.QuoteReserve {
		// Floor-rounded swap outputs can leave the real reserve slightly
		// above the ceiling-rounded optimum; that counts as topped up.
		return 0, nil
	}
	needed := optimalReal - p.QuoteReserve

	pulled := needed
	if p.BuybackFeesBalance < pulled {
		pulled = p.BuybackFeesBalance
	}
	p.BuybackFeesBalance -= pulled
	p.QuoteReserve += pulled
	if pulled < needed {
		p.QuoteVirtualReserve = VirtualReserveAfterTopup(p.QuoteReserve, p.BaseReserve, p.BaseTotalSupply)
	} else {
		p.QuoteVirtualReserve = optimalVirtual
	}
	return pulled, nil
}
