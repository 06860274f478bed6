package curve

import (
	"errors"
	"fmt"
	"testing"

	"bcmm/core/types"
)

type mockState struct {
	pools      map[string]*Pool
	configs    map[string]*PlatformConfig
	accounts   map[string]*VirtualTokenAccount
	allowances map[string]*UserBurnAllowance
}

func newMockState() *mockState {
	return &mockState{
		pools:      make(map[string]*Pool),
		configs:    make(map[string]*PlatformConfig),
		accounts:   make(map[string]*VirtualTokenAccount),
		allowances: make(map[string]*UserBurnAllowance),
	}
}

func (m *mockState) PoolGet(id types.RecordID) (*Pool, bool, error) {
	pool, ok := m.pools[id.Hex()]
	if !ok {
		return nil, false, nil
	}
	clone := *pool
	return &clone, true, nil
}

func (m *mockState) PoolPut(pool *Pool) error {
	if pool == nil {
		return nil
	}
	clone := *pool
	m.pools[pool.ID.Hex()] = &clone
	return nil
}

func (m *mockState) PlatformConfigGet(id types.RecordID) (*PlatformConfig, bool, error) {
	cfg, ok := m.configs[id.Hex()]
	if !ok {
		return nil, false, nil
	}
	clone := *cfg
	clone.BurnTiers = append([]BurnTier(nil), cfg.BurnTiers...)
	return &clone, true, nil
}

func (m *mockState) PlatformConfigPut(cfg *PlatformConfig) error {
	if cfg == nil {
		return nil
	}
	clone := *cfg
	clone.BurnTiers = append([]BurnTier(nil), cfg.BurnTiers...)
	m.configs[cfg.ID.Hex()] = &clone
	return nil
}

func accountKey(poolID types.RecordID, owner types.Address) string {
	return poolID.Hex() + "/" + owner.Hex()
}

func (m *mockState) VirtualAccountGet(poolID types.RecordID, owner types.Address) (*VirtualTokenAccount, bool, error) {
	account, ok := m.accounts[accountKey(poolID, owner)]
	if !ok {
		return nil, false, nil
	}
	clone := *account
	return &clone, true, nil
}

func (m *mockState) VirtualAccountPut(account *VirtualTokenAccount) error {
	if account == nil {
		return nil
	}
	clone := *account
	m.accounts[accountKey(account.PoolID, account.Owner)] = &clone
	return nil
}

func (m *mockState) VirtualAccountDelete(poolID types.RecordID, owner types.Address) error {
	delete(m.accounts, accountKey(poolID, owner))
	return nil
}

func allowanceKey(owner types.Address, configID types.RecordID, tierIndex uint8) string {
	return fmt.Sprintf("%s/%s/%d", owner.Hex(), configID.Hex(), tierIndex)
}

func (m *mockState) BurnAllowanceGet(owner types.Address, configID types.RecordID, tierIndex uint8) (*UserBurnAllowance, bool, error) {
	allowance, ok := m.allowances[allowanceKey(owner, configID, tierIndex)]
	if !ok {
		return nil, false, nil
	}
	clone := *allowance
	return &clone, true, nil
}

func (m *mockState) BurnAllowancePut(allowance *UserBurnAllowance) error {
	if allowance == nil {
		return nil
	}
	clone := *allowance
	m.allowances[allowanceKey(allowance.Owner, allowance.ConfigID, allowance.TierIndex)] = &clone
	return nil
}

func (m *mockState) BurnAllowanceDelete(owner types.Address, configID types.RecordID, tierIndex uint8) error {
	delete(m.allowances, allowanceKey(owner, configID, tierIndex))
	return nil
}

type transfer struct {
	in     bool
	party  types.Address
	poolID types.RecordID
	amount uint64
}

type mockMover struct {
	transfers []transfer
}

func (m *mockMover) TransferIn(from types.Address, poolID types.RecordID, amount uint64) error {
	m.transfers = append(m.transfers, transfer{in: true, party: from, poolID: poolID, amount: amount})
	return nil
}

func (m *mockMover) TransferOut(poolID types.RecordID, to types.Address, amount uint64) error {
	m.transfers = append(m.transfers, transfer{party: to, poolID: poolID, amount: amount})
	return nil
}

func (m *mockMover) last() transfer {
	if len(m.transfers) == 0 {
		return transfer{}
	}
	return m.transfers[len(m.transfers)-1]
}

func addr(last byte) types.Address {
	var out types.Address
	out[19] = last
	return out
}

func recordID(last byte) types.RecordID {
	var out types.RecordID
	out[31] = last
	return out
}

// testEngine wires an engine over a fresh mock state with a small market: the
// same geometry as testPool but with an empty quote side.
func testEngine(t *testing.T) (*Engine, *mockState, *mockMover, types.RecordID) {
	t.Helper()
	state := newMockState()
	mover := &mockMover{}
	engine := NewEngine()
	engine.SetState(state)
	engine.SetMover(mover)
	engine.SetNowFunc(func() int64 { return 0 })

	poolID := recordID(0x01)
	pool := &Pool{
		ID:                          poolID,
		Creator:                     addr(0x0A),
		PlatformConfigID:            recordID(0x02),
		QuoteVirtualReserve:         1_000_000,
		QuoteOptimalVirtualReserve:  1_000_000,
		QuoteStartingVirtualReserve: 1_000_000,
		BaseMintDecimals:            DefaultBaseMintDecimals,
		BaseReserve:                 2_000_000,
		BaseStartingTotalSupply:     2_000_000,
		BaseTotalSupply:             2_000_000,
		CreatorFeeBp:                200,
		BuybackFeeBp:                600,
		PlatformFeeBp:               200,
	}
	if err := state.PoolPut(pool); err != nil {
		t.Fatalf("seed pool: %v", err)
	}
	return engine, state, mover, poolID
}

func openAccount(t *testing.T, engine *Engine, poolID types.RecordID, owner types.Address) {
	t.Helper()
	if _, err := engine.InitVirtualAccount(poolID, owner); err != nil {
		t.Fatalf("init account: %v", err)
	}
}

func TestBuyChargesFeesBeforePricing(t *testing.T) {
	engine, state, mover, poolID := testEngine(t)
	buyer := addr(0x01)
	openAccount(t, engine, poolID, buyer)

	receipt, err := engine.Buy(buyer, poolID, 5_000, 0)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if receipt.AmountOut != 8_959 || receipt.NetAmountOut != 8_959 {
		t.Fatalf("base out = %d/%d, want 8959", receipt.AmountOut, receipt.NetAmountOut)
	}
	if receipt.Fees != (Fees{Creator: 100, Buyback: 300, Platform: 100}) {
		t.Fatalf("fees = %+v", receipt.Fees)
	}

	pool := state.pools[poolID.Hex()]
	if pool.QuoteReserve != 4_500 || pool.BaseReserve != 1_991_041 {
		t.Fatalf("reserves = %d/%d, want 4500/1991041", pool.QuoteReserve, pool.BaseReserve)
	}
	if pool.CreatorFeesBalance != 100 || pool.BuybackFeesBalance != 300 || pool.PlatformFeesBalance != 100 {
		t.Fatalf("fee balances = %d/%d/%d", pool.CreatorFeesBalance, pool.BuybackFeesBalance, pool.PlatformFeesBalance)
	}

	account := state.accounts[accountKey(poolID, buyer)]
	if account.Balance != 8_959 || account.FeesPaid != 500 {
		t.Fatalf("account = %+v", account)
	}

	got := mover.last()
	if !got.in || got.party != buyer || got.amount != 5_000 {
		t.Fatalf("transfer = %+v, want in 5000 from buyer", got)
	}
}

func TestBuySlippageLeavesStateUntouched(t *testing.T) {
	engine, state, mover, poolID := testEngine(t)
	buyer := addr(0x01)
	openAccount(t, engine, poolID, buyer)

	if _, err := engine.Buy(buyer, poolID, 5_000, 8_960); !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("err = %v, want slippage", err)
	}
	if pool := state.pools[poolID.Hex()]; pool.QuoteReserve != 0 || pool.BaseReserve != 2_000_000 {
		t.Fatal("failed buy must not move reserves")
	}
	if len(mover.transfers) != 0 {
		t.Fatal("failed buy must not transfer")
	}
}

func TestBuyDustSwallowedByFees(t *testing.T) {
	engine, _, _, poolID := testEngine(t)
	buyer := addr(0x01)
	openAccount(t, engine, poolID, buyer)

	if _, err := engine.Buy(buyer, poolID, 3, 0); !errors.Is(err, ErrAmountTooSmall) {
		t.Fatalf("err = %v, want amount too small", err)
	}
}

func TestBuyWithoutAccountFails(t *testing.T) {
	engine, _, _, poolID := testEngine(t)
	if _, err := engine.Buy(addr(0x01), poolID, 5_000, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestSellReturnsNetOfFees(t *testing.T) {
	engine, state, mover, poolID := testEngine(t)
	trader := addr(0x01)
	openAccount(t, engine, poolID, trader)
	if _, err := engine.Buy(trader, poolID, 5_000, 0); err != nil {
		t.Fatalf("buy: %v", err)
	}

	if _, err := engine.Sell(trader, poolID, 10_000, 0); !errors.Is(err, ErrInsufficientVirtualTokens) {
		t.Fatalf("oversell err = %v", err)
	}
	if _, err := engine.Sell(trader, poolID, 8_959, 4_050); !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("slippage err = %v", err)
	}

	receipt, err := engine.Sell(trader, poolID, 8_959, 4_049)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if receipt.AmountOut != 4_499 || receipt.NetAmountOut != 4_049 {
		t.Fatalf("quote out = %d/%d, want 4499/4049", receipt.AmountOut, receipt.NetAmountOut)
	}
	if receipt.Fees != (Fees{Creator: 90, Buyback: 270, Platform: 90}) {
		t.Fatalf("fees = %+v", receipt.Fees)
	}

	pool := state.pools[poolID.Hex()]
	if pool.QuoteReserve != 1 || pool.BaseReserve != 2_000_000 {
		t.Fatalf("reserves = %d/%d, want 1/2000000", pool.QuoteReserve, pool.BaseReserve)
	}
	if pool.BuybackFeesBalance != 570 {
		t.Fatalf("buyback balance = %d, want 570", pool.BuybackFeesBalance)
	}
	if account := state.accounts[accountKey(poolID, trader)]; account.Balance != 0 {
		t.Fatalf("account balance = %d, want 0", account.Balance)
	}
	got := mover.last()
	if got.in || got.party != trader || got.amount != 4_049 {
		t.Fatalf("transfer = %+v, want out 4049 to trader", got)
	}
}

func TestBuySequenceNeverDropsPrice(t *testing.T) {
	engine, state, _, poolID := testEngine(t)
	buyer := addr(0x01)
	openAccount(t, engine, poolID, buyer)

	var lastPrice uint64
	for _, amount := range []uint64{1_000, 5_000, 20_000, 100_000, 333, 500_000} {
		if _, err := engine.Buy(buyer, poolID, amount, 0); err != nil {
			t.Fatalf("buy %d: %v", amount, err)
		}
		pool := state.pools[poolID.Hex()]
		price := (pool.QuoteReserve + pool.QuoteVirtualReserve) * 1_000_000_000_000 / pool.BaseReserve
		if price < lastPrice {
			t.Fatalf("price dropped after buy %d: %d < %d", amount, price, lastPrice)
		}
		lastPrice = price
	}

	pool := state.pools[poolID.Hex()]
	if pool.QuoteReserve != 563_699 || pool.BaseReserve != 1_279_021 {
		t.Fatalf("final reserves = %d/%d, want 563699/1279021", pool.QuoteReserve, pool.BaseReserve)
	}
	if pool.BuybackFeesBalance != 37_580 {
		t.Fatalf("final buyback balance = %d, want 37580", pool.BuybackFeesBalance)
	}
}

func TestBuyBuySellRoundTrip(t *testing.T) {
	engine, state, _, poolID := testEngine(t)
	trader := addr(0x01)
	openAccount(t, engine, poolID, trader)

	first, err := engine.Buy(trader, poolID, 100_000, 0)
	if err != nil {
		t.Fatalf("buy 1: %v", err)
	}
	second, err := engine.Buy(trader, poolID, 50_000, 0)
	if err != nil {
		t.Fatalf("buy 2: %v", err)
	}
	if first.AmountOut != 165_137 || second.AmountOut != 72_747 {
		t.Fatalf("buys = %d/%d, want 165137/72747", first.AmountOut, second.AmountOut)
	}

	receipt, err := engine.Sell(trader, poolID, first.AmountOut+second.AmountOut, 0)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if receipt.AmountOut != 134_999 || receipt.NetAmountOut != 121_499 {
		t.Fatalf("sell = %d/%d, want 134999/121499", receipt.AmountOut, receipt.NetAmountOut)
	}

	pool := state.pools[poolID.Hex()]
	if pool.QuoteReserve != 1 || pool.BaseReserve != 2_000_000 {
		t.Fatalf("final reserves = %d/%d, want 1/2000000", pool.QuoteReserve, pool.BaseReserve)
	}
	if pool.BuybackFeesBalance != 17_100 {
		t.Fatalf("final buyback balance = %d, want 17100", pool.BuybackFeesBalance)
	}
}

// seedPlatform installs a config with three tiers: a pool-creator tier, a
// whitelisted-address tier, and a public dust tier.
func seedPlatform(t *testing.T, state *mockState) *PlatformConfig {
	t.Helper()
	cfg := &PlatformConfig{
		ID:            recordID(0x02),
		Admin:         addr(0xF0),
		Creator:       addr(0xF1),
		QuoteMint:     addr(0xF2),
		CreatorFeeBp:  200,
		BuybackFeeBp:  600,
		PlatformFeeBp: 200,
		BurnRate:      testBurnRate,
		BurnTiers: []BurnTier{
			{BurnBpX100: 20_000, Role: BurnRolePoolCreator, MaxDailyBurns: 2},
			{BurnBpX100: 20_000, Role: BurnRoleSpecificAddress, Authority: addr(0x0B), MaxDailyBurns: 1},
			{BurnBpX100: 1_000, Role: BurnRoleAnyone},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("seed config invalid: %v", err)
	}
	if err := state.PlatformConfigPut(cfg); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	return cfg
}

func prepareBurn(t *testing.T) (*Engine, *mockState, types.RecordID, *PlatformConfig) {
	t.Helper()
	engine, state, _, poolID := testEngine(t)
	cfg := seedPlatform(t, state)

	// One buy funds the buyback pot so post-burn topups have something to
	// pull from.
	buyer := addr(0x01)
	openAccount(t, engine, poolID, buyer)
	if _, err := engine.Buy(buyer, poolID, 5_000, 0); err != nil {
		t.Fatalf("funding buy: %v", err)
	}
	return engine, state, poolID, cfg
}

func TestBurnShrinksSupplyAndTopsUp(t *testing.T) {
	engine, state, poolID, cfg := prepareBurn(t)
	creator := addr(0x0A)
	if _, err := engine.InitBurnAllowance(creator, creator, cfg.ID, 0, poolID); err != nil {
		t.Fatalf("init allowance: %v", err)
	}

	result, err := engine.Burn(creator, poolID, 0)
	if err != nil {
		t.Fatalf("burn: %v", err)
	}
	if result.RateLimit.Kind != RateLimitExecuteFull || result.BurnAmount != 39_820 || result.TopupPulled != 1 {
		t.Fatalf("result = %+v, want full 39820 pulled 1", result)
	}

	pool := state.pools[poolID.Hex()]
	if pool.BaseReserve != 1_951_221 || pool.BaseTotalSupply != 1_960_180 {
		t.Fatalf("base side = %d/%d", pool.BaseReserve, pool.BaseTotalSupply)
	}
	if pool.QuoteReserve != 4_501 || pool.QuoteVirtualReserve != 980_090 {
		t.Fatalf("quote side = %d/%d", pool.QuoteReserve, pool.QuoteVirtualReserve)
	}
	if pool.BuybackFeesBalance != 299 {
		t.Fatalf("buyback balance = %d, want 299", pool.BuybackFeesBalance)
	}

	allowance := state.allowances[allowanceKey(creator, cfg.ID, 0)]
	if allowance.BurnsToday != 1 {
		t.Fatalf("burns today = %d, want 1", allowance.BurnsToday)
	}

	// Second burn still fits; the third hits the tier's daily cap.
	if result, err = engine.Burn(creator, poolID, 0); err != nil {
		t.Fatalf("burn 2: %v", err)
	}
	if result.BurnAmount != 39_024 {
		t.Fatalf("burn 2 = %d, want 39024", result.BurnAmount)
	}
	if _, err := engine.Burn(creator, poolID, 0); !errors.Is(err, ErrBurnLimitReached) {
		t.Fatalf("burn 3 err = %v, want limit reached", err)
	}
}

func TestBurnQueuedStillSpendsAllowance(t *testing.T) {
	engine, state, poolID, cfg := prepareBurn(t)
	creator := addr(0x0A)
	if _, err := engine.InitBurnAllowance(creator, creator, cfg.ID, 0, poolID); err != nil {
		t.Fatalf("init allowance: %v", err)
	}
	pool := state.pools[poolID.Hex()]
	pool.BurnLimiter.AccumulatedStressBpX10k = 5_000_000

	result, err := engine.Burn(creator, poolID, 0)
	if err != nil {
		t.Fatalf("burn: %v", err)
	}
	if result.RateLimit.Kind != RateLimitQueued || result.BurnAmount != 0 || result.TopupPulled != 0 {
		t.Fatalf("result = %+v, want queued", result)
	}
	if pool = state.pools[poolID.Hex()]; pool.BaseTotalSupply != 2_000_000 {
		t.Fatal("queued burn must not shrink supply")
	}
	if pool.BurnLimiter.PendingQueueSharesBpX10k != 2_000_000 {
		t.Fatalf("queue = %d, want 2000000", pool.BurnLimiter.PendingQueueSharesBpX10k)
	}
	if allowance := state.allowances[allowanceKey(creator, cfg.ID, 0)]; allowance.BurnsToday != 1 {
		t.Fatalf("burns today = %d, want 1", allowance.BurnsToday)
	}
}

func TestBurnAuthorization(t *testing.T) {
	engine, _, poolID, cfg := prepareBurn(t)
	stranger := addr(0x55)

	if _, err := engine.Burn(stranger, poolID, 0); !errors.Is(err, ErrInvalidPoolCreator) {
		t.Fatalf("creator tier err = %v", err)
	}
	if _, err := engine.Burn(stranger, poolID, 1); !errors.Is(err, ErrInvalidBurnAuthority) {
		t.Fatalf("authority tier err = %v", err)
	}
	if _, err := engine.Burn(stranger, poolID, 7); !errors.Is(err, ErrInvalidBurnTierIndex) {
		t.Fatalf("tier bounds err = %v", err)
	}
	// Public tier is open to anyone but still needs an allowance record.
	if _, err := engine.Burn(stranger, poolID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing allowance err = %v", err)
	}

	if _, err := engine.InitBurnAllowance(stranger, stranger, cfg.ID, 2, poolID); err != nil {
		t.Fatalf("init allowance: %v", err)
	}
	if _, err := engine.Burn(stranger, poolID, 2); err != nil {
		t.Fatalf("public tier burn: %v", err)
	}
}

func TestBurnRejectsStaleAllowance(t *testing.T) {
	engine, state, poolID, cfg := prepareBurn(t)
	creator := addr(0x0A)
	if _, err := engine.InitBurnAllowance(creator, creator, cfg.ID, 0, poolID); err != nil {
		t.Fatalf("init allowance: %v", err)
	}

	cfg.BurnTiersUpdatedAt = 999
	if err := state.PlatformConfigPut(cfg); err != nil {
		t.Fatalf("bump generation: %v", err)
	}
	if _, err := engine.Burn(creator, poolID, 0); !errors.Is(err, ErrStaleBurnAllowance) {
		t.Fatalf("err = %v, want stale allowance", err)
	}
}

func TestClaimCreatorFees(t *testing.T) {
	engine, state, mover, poolID := testEngine(t)
	creator := addr(0x0A)
	destination := addr(0x0C)
	buyer := addr(0x01)
	openAccount(t, engine, poolID, buyer)
	if _, err := engine.Buy(buyer, poolID, 5_000, 0); err != nil {
		t.Fatalf("buy: %v", err)
	}

	if _, err := engine.ClaimCreatorFees(addr(0x55), poolID, destination); !errors.Is(err, ErrInvalidPoolCreator) {
		t.Fatalf("auth err = %v", err)
	}

	amount, err := engine.ClaimCreatorFees(creator, poolID, destination)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if amount != 100 {
		t.Fatalf("claimed = %d, want 100", amount)
	}
	if pool := state.pools[poolID.Hex()]; pool.CreatorFeesBalance != 0 {
		t.Fatal("creator balance not zeroed")
	}
	got := mover.last()
	if got.in || got.party != destination || got.amount != 100 {
		t.Fatalf("transfer = %+v", got)
	}

	// Nothing accrued: claiming again succeeds with zero and moves nothing.
	moved := len(mover.transfers)
	if amount, err = engine.ClaimCreatorFees(creator, poolID, destination); err != nil || amount != 0 {
		t.Fatalf("empty claim = %d, %v", amount, err)
	}
	if len(mover.transfers) != moved {
		t.Fatal("empty claim must not transfer")
	}
}

func TestClaimPlatformFees(t *testing.T) {
	engine, state, mover, poolID := testEngine(t)
	cfg := seedPlatform(t, state)
	destination := addr(0x0D)
	buyer := addr(0x01)
	openAccount(t, engine, poolID, buyer)
	if _, err := engine.Buy(buyer, poolID, 5_000, 0); err != nil {
		t.Fatalf("buy: %v", err)
	}

	if _, err := engine.ClaimPlatformFees(addr(0x55), poolID, destination); !errors.Is(err, ErrInvalidPlatformAdmin) {
		t.Fatalf("auth err = %v", err)
	}
	amount, err := engine.ClaimPlatformFees(cfg.Admin, poolID, destination)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if amount != 100 {
		t.Fatalf("claimed = %d, want 100", amount)
	}
	if pool := state.pools[poolID.Hex()]; pool.PlatformFeesBalance != 0 {
		t.Fatal("platform balance not zeroed")
	}
	if got := mover.last(); got.amount != 100 || got.party != destination {
		t.Fatalf("transfer = %+v", got)
	}
}

func TestPlatformConfigLifecycle(t *testing.T) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	now := int64(1_000)
	engine.SetNowFunc(func() int64 { return now })

	id := recordID(0x02)
	admin := addr(0xF0)
	tiers := []BurnTier{{BurnBpX100: 1_000, Role: BurnRoleAnyone}}
	cfg, err := engine.InitPlatformConfig(id, admin, addr(0xF1), addr(0xF2), 200, 600, 200, testBurnRate, tiers)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if cfg.BurnTiersUpdatedAt != 1_000 {
		t.Fatalf("generation = %d, want 1000", cfg.BurnTiersUpdatedAt)
	}
	if _, err := engine.InitPlatformConfig(id, admin, addr(0xF1), addr(0xF2), 200, 600, 200, testBurnRate, tiers); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate err = %v", err)
	}

	newFee := uint16(300)
	if _, err := engine.UpdatePlatformConfig(addr(0x55), id, PlatformConfigUpdate{CreatorFeeBp: &newFee}); !errors.Is(err, ErrInvalidPlatformAdmin) {
		t.Fatalf("auth err = %v", err)
	}
	updated, err := engine.UpdatePlatformConfig(admin, id, PlatformConfigUpdate{CreatorFeeBp: &newFee})
	if err != nil {
		t.Fatalf("fee update: %v", err)
	}
	if updated.CreatorFeeBp != 300 || updated.BurnTiersUpdatedAt != 1_000 {
		t.Fatalf("updated = %+v", updated)
	}

	// Tier replacements respect the cooldown and restart the generation.
	replacement := []BurnTier{{BurnBpX100: 500, Role: BurnRoleAnyone}}
	if _, err := engine.UpdatePlatformConfig(admin, id, PlatformConfigUpdate{BurnTiers: replacement}); !errors.Is(err, ErrBurnTiersUpdatedRecently) {
		t.Fatalf("cooldown err = %v", err)
	}
	now = 1_000 + BurnTiersUpdateCooldownSecs
	updated, err = engine.UpdatePlatformConfig(admin, id, PlatformConfigUpdate{BurnTiers: replacement})
	if err != nil {
		t.Fatalf("tier update: %v", err)
	}
	if updated.BurnTiersUpdatedAt != now || len(updated.BurnTiers) != 1 || updated.BurnTiers[0].BurnBpX100 != 500 {
		t.Fatalf("updated tiers = %+v", updated)
	}

	// An update that breaks validation never persists.
	badFee := uint16(3_000)
	if _, err := engine.UpdatePlatformConfig(admin, id, PlatformConfigUpdate{CreatorFeeBp: &badFee}); err == nil {
		t.Fatal("expected validation failure")
	}
	if state.configs[id.Hex()].CreatorFeeBp != 300 {
		t.Fatal("failed update must not persist")
	}
}

func TestCreatePoolSnapshotsConfig(t *testing.T) {
	engine, state, _, _ := testEngine(t)
	cfg := seedPlatform(t, state)

	id := recordID(0x03)
	pool, err := engine.CreatePool(id, addr(0x0A), cfg.ID, 5_000_000)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if pool.CreatorFeeBp != cfg.CreatorFeeBp || pool.BuybackFeeBp != cfg.BuybackFeeBp || pool.PlatformFeeBp != cfg.PlatformFeeBp {
		t.Fatal("pool did not snapshot the config fees")
	}
	if pool.QuoteMint != cfg.QuoteMint {
		t.Fatal("pool did not snapshot the quote mint")
	}
	if _, err := engine.CreatePool(id, addr(0x0A), cfg.ID, 5_000_000); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := engine.CreatePool(recordID(0x04), addr(0x0A), recordID(0x7F), 5_000_000); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing config err = %v", err)
	}
}

func TestVirtualAccountLifecycle(t *testing.T) {
	engine, _, _, poolID := testEngine(t)
	owner := addr(0x01)

	if _, err := engine.InitVirtualAccount(recordID(0x7F), owner); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing pool err = %v", err)
	}
	if _, err := engine.InitVirtualAccount(poolID, owner); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := engine.InitVirtualAccount(poolID, owner); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate err = %v", err)
	}

	if _, err := engine.Buy(owner, poolID, 5_000, 0); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := engine.CloseVirtualAccount(poolID, owner); !errors.Is(err, ErrNonzeroBalance) {
		t.Fatalf("close funded err = %v", err)
	}
	if _, err := engine.Sell(owner, poolID, 8_959, 0); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if err := engine.CloseVirtualAccount(poolID, owner); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := engine.CloseVirtualAccount(poolID, owner); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double close err = %v", err)
	}
}

func TestBurnAllowanceLifecycle(t *testing.T) {
	engine, state, poolID, cfg := prepareBurn(t)
	now := int64(0)
	engine.SetNowFunc(func() int64 { return now })

	// Privileged tiers verify the owner before minting.
	if _, err := engine.InitBurnAllowance(addr(0x55), addr(0x55), cfg.ID, 0, poolID); !errors.Is(err, ErrInvalidPoolCreator) {
		t.Fatalf("creator tier err = %v", err)
	}
	if _, err := engine.InitBurnAllowance(addr(0x55), addr(0x55), cfg.ID, 1, poolID); !errors.Is(err, ErrInvalidBurnAuthority) {
		t.Fatalf("authority tier err = %v", err)
	}
	if _, err := engine.InitBurnAllowance(addr(0x55), addr(0x55), cfg.ID, 9, poolID); !errors.Is(err, ErrInvalidBurnTierIndex) {
		t.Fatalf("tier bounds err = %v", err)
	}

	payer := addr(0x66)
	owner := addr(0x0A)
	allowance, err := engine.InitBurnAllowance(payer, owner, cfg.ID, 0, poolID)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if allowance.TiersGeneration != cfg.BurnTiersUpdatedAt || allowance.Payer != payer {
		t.Fatalf("allowance = %+v", allowance)
	}
	if _, err := engine.InitBurnAllowance(payer, owner, cfg.ID, 0, poolID); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate err = %v", err)
	}

	if _, err := engine.Burn(owner, poolID, 0); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if err := engine.CloseBurnAllowance(owner, owner, cfg.ID, 0); !errors.Is(err, ErrInvalidAllowancePayer) {
		t.Fatalf("payer check err = %v", err)
	}
	if err := engine.CloseBurnAllowance(payer, owner, cfg.ID, 0); !errors.Is(err, ErrBurnAllowanceActive) {
		t.Fatalf("active err = %v", err)
	}

	// A day of idleness makes the record closable.
	now = 86_400
	if err := engine.CloseBurnAllowance(payer, owner, cfg.ID, 0); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := state.allowances[allowanceKey(owner, cfg.ID, 0)]; ok {
		t.Fatal("allowance not deleted")
	}
}
