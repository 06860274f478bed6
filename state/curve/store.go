package curve

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"bcmm/core/types"
	"bcmm/native/curve"
	"bcmm/storage"
)

var (
	poolPrefix      = []byte("curve/pool/")
	configPrefix    = []byte("curve/config/")
	accountPrefix   = []byte("curve/account/")
	allowancePrefix = []byte("curve/allowance/")
)

// Store persists curve records in a key-value database. It satisfies the
// engine's state interface; every record round-trips through RLP.
type Store struct {
	db storage.Database
}

// NewStore creates a curve store backed by the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// DerivePoolID computes the deterministic identifier of the pool a creator
// opens against a configuration. The salt disambiguates repeat launches.
func DerivePoolID(configID types.RecordID, creator types.Address, salt uint64) types.RecordID {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(salt >> (8 * i))
	}
	digest := ethcrypto.Keccak256(poolPrefix, configID[:], creator[:], buf[:])
	var id types.RecordID
	copy(id[:], digest)
	return id
}

// DeriveConfigID computes the deterministic identifier of an admin's platform
// configuration.
func DeriveConfigID(admin types.Address, salt uint64) types.RecordID {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(salt >> (8 * i))
	}
	digest := ethcrypto.Keccak256(configPrefix, admin[:], buf[:])
	var id types.RecordID
	copy(id[:], digest)
	return id
}

func poolKey(id types.RecordID) []byte {
	return []byte(fmt.Sprintf("%s%x", poolPrefix, id))
}

func configKey(id types.RecordID) []byte {
	return []byte(fmt.Sprintf("%s%x", configPrefix, id))
}

func accountKey(poolID types.RecordID, owner types.Address) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", accountPrefix, poolID, owner))
}

func allowanceKey(owner types.Address, configID types.RecordID, tierIndex uint8) []byte {
	return []byte(fmt.Sprintf("%s%x/%x/%d", allowancePrefix, owner, configID, tierIndex))
}

func (s *Store) get(key []byte, out interface{}) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("curve store uninitialised")
	}
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) put(key []byte, value interface{}) error {
	if s == nil || s.db == nil {
		return errors.New("curve store uninitialised")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.db.Put(key, encoded)
}

// Stored mirrors keep every integer unsigned so the records stay
// RLP-encodable; timestamps convert at the boundary.

type storedLimiter struct {
	AccumulatedStress  uint64
	PendingQueueShares uint64
	LastUpdateTs       uint64
}

type storedPool struct {
	ID               [32]byte
	Creator          [20]byte
	PlatformConfigID [32]byte
	QuoteMint        [20]byte

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

	BurnLimiter storedLimiter
}

type storedTier struct {
	BurnBpX100    uint32
	Role          uint8
	Authority     [20]byte
	MaxDailyBurns uint16
}

type storedConfig struct {
	ID        [32]byte
	Admin     [20]byte
	Creator   [20]byte
	QuoteMint [20]byte

	CreatorFeeBp  uint16
	BuybackFeeBp  uint16
	PlatformFeeBp uint16

	BurnTiersUpdatedAt uint64

	LimitBpX100           uint64
	MinBurnBpX100         uint64
	DecayRatePerSecBpX100 uint64

	BurnTiers []storedTier
}

type storedAccount struct {
	PoolID   [32]byte
	Owner    [20]byte
	Balance  uint64
	FeesPaid uint64
}

type storedAllowance struct {
	Owner           [20]byte
	ConfigID        [32]byte
	TierIndex       uint8
	TiersGeneration uint64
	Payer           [20]byte

	BurnsToday        uint16
	LastBurnTimestamp uint64
	CreatedAt         uint64
}

// PoolGet loads one pool record.
func (s *Store) PoolGet(id types.RecordID) (*curve.Pool, bool, error) {
	var stored storedPool
	ok, err := s.get(poolKey(id), &stored)
	if !ok || err != nil {
		return nil, false, err
	}
	return &curve.Pool{
		ID:                          stored.ID,
		Creator:                     stored.Creator,
		PlatformConfigID:            stored.PlatformConfigID,
		QuoteMint:                   stored.QuoteMint,
		QuoteReserve:                stored.QuoteReserve,
		QuoteVirtualReserve:         stored.QuoteVirtualReserve,
		QuoteOptimalVirtualReserve:  stored.QuoteOptimalVirtualReserve,
		QuoteStartingVirtualReserve: stored.QuoteStartingVirtualReserve,
		BaseMintDecimals:            stored.BaseMintDecimals,
		BaseReserve:                 stored.BaseReserve,
		BaseStartingTotalSupply:     stored.BaseStartingTotalSupply,
		BaseTotalSupply:             stored.BaseTotalSupply,
		CreatorFeesBalance:          stored.CreatorFeesBalance,
		BuybackFeesBalance:          stored.BuybackFeesBalance,
		PlatformFeesBalance:         stored.PlatformFeesBalance,
		CreatorFeeBp:                stored.CreatorFeeBp,
		BuybackFeeBp:                stored.BuybackFeeBp,
		PlatformFeeBp:               stored.PlatformFeeBp,
		BurnLimiter: curve.BurnRateLimiter{
			AccumulatedStressBpX10k:  stored.BurnLimiter.AccumulatedStress,
			PendingQueueSharesBpX10k: stored.BurnLimiter.PendingQueueShares,
			LastUpdateTs:             int64(stored.BurnLimiter.LastUpdateTs),
		},
	}, true, nil
}

// PoolPut persists one pool record.
func (s *Store) PoolPut(pool *curve.Pool) error {
	if pool == nil {
		return errors.New("curve store: nil pool")
	}
	return s.put(poolKey(pool.ID), &storedPool{
		ID:                          pool.ID,
		Creator:                     pool.Creator,
		PlatformConfigID:            pool.PlatformConfigID,
		QuoteMint:                   pool.QuoteMint,
		QuoteReserve:                pool.QuoteReserve,
		QuoteVirtualReserve:         pool.QuoteVirtualReserve,
		QuoteOptimalVirtualReserve:  pool.QuoteOptimalVirtualReserve,
		QuoteStartingVirtualReserve: pool.QuoteStartingVirtualReserve,
		BaseMintDecimals:            pool.BaseMintDecimals,
		BaseReserve:                 pool.BaseReserve,
		BaseStartingTotalSupply:     pool.BaseStartingTotalSupply,
		BaseTotalSupply:             pool.BaseTotalSupply,
		CreatorFeesBalance:          pool.CreatorFeesBalance,
		BuybackFeesBalance:          pool.BuybackFeesBalance,
		PlatformFeesBalance:         pool.PlatformFeesBalance,
		CreatorFeeBp:                pool.CreatorFeeBp,
		BuybackFeeBp:                pool.BuybackFeeBp,
		PlatformFeeBp:               pool.PlatformFeeBp,
		BurnLimiter: storedLimiter{
			AccumulatedStress:  pool.BurnLimiter.AccumulatedStressBpX10k,
			PendingQueueShares: pool.BurnLimiter.PendingQueueSharesBpX10k,
			LastUpdateTs:       uint64(pool.BurnLimiter.LastUpdateTs),
		},
	})
}

// PlatformConfigGet loads one platform configuration.
func (s *Store) PlatformConfigGet(id types.RecordID) (*curve.PlatformConfig, bool, error) {
	var stored storedConfig
	ok, err := s.get(configKey(id), &stored)
	if !ok || err != nil {
		return nil, false, err
	}
	tiers := make([]curve.BurnTier, len(stored.BurnTiers))
	for i, tier := range stored.BurnTiers {
		tiers[i] = curve.BurnTier{
			BurnBpX100:    tier.BurnBpX100,
			Role:          curve.BurnRole(tier.Role),
			Authority:     tier.Authority,
			MaxDailyBurns: tier.MaxDailyBurns,
		}
	}
	return &curve.PlatformConfig{
		ID:                 stored.ID,
		Admin:              stored.Admin,
		Creator:            stored.Creator,
		QuoteMint:          stored.QuoteMint,
		CreatorFeeBp:       stored.CreatorFeeBp,
		BuybackFeeBp:       stored.BuybackFeeBp,
		PlatformFeeBp:      stored.PlatformFeeBp,
		BurnTiersUpdatedAt: int64(stored.BurnTiersUpdatedAt),
		BurnRate: curve.BurnRateConfig{
			LimitBpX100:           stored.LimitBpX100,
			MinBurnBpX100:         stored.MinBurnBpX100,
			DecayRatePerSecBpX100: stored.DecayRatePerSecBpX100,
		},
		BurnTiers: tiers,
	}, true, nil
}

// PlatformConfigPut persists one platform configuration.
func (s *Store) PlatformConfigPut(cfg *curve.PlatformConfig) error {
	if cfg == nil {
		return errors.New("curve store: nil config")
	}
	tiers := make([]storedTier, len(cfg.BurnTiers))
	for i, tier := range cfg.BurnTiers {
		tiers[i] = storedTier{
			BurnBpX100:    tier.BurnBpX100,
			Role:          uint8(tier.Role),
			Authority:     tier.Authority,
			MaxDailyBurns: tier.MaxDailyBurns,
		}
	}
	return s.put(configKey(cfg.ID), &storedConfig{
		ID:                    cfg.ID,
		Admin:                 cfg.Admin,
		Creator:               cfg.Creator,
		QuoteMint:             cfg.QuoteMint,
		CreatorFeeBp:          cfg.CreatorFeeBp,
		BuybackFeeBp:          cfg.BuybackFeeBp,
		PlatformFeeBp:         cfg.PlatformFeeBp,
		BurnTiersUpdatedAt:    uint64(cfg.BurnTiersUpdatedAt),
		LimitBpX100:           cfg.BurnRate.LimitBpX100,
		MinBurnBpX100:         cfg.BurnRate.MinBurnBpX100,
		DecayRatePerSecBpX100: cfg.BurnRate.DecayRatePerSecBpX100,
		BurnTiers:             tiers,
	})
}

// VirtualAccountGet loads one virtual token account.
func (s *Store) VirtualAccountGet(poolID types.RecordID, owner types.Address) (*curve.VirtualTokenAccount, bool, error) {
	var stored storedAccount
	ok, err := s.get(accountKey(poolID, owner), &stored)
	if !ok || err != nil {
		return nil, false, err
	}
	return &curve.VirtualTokenAccount{
		PoolID:   stored.PoolID,
		Owner:    stored.Owner,
		Balance:  stored.Balance,
		FeesPaid: stored.FeesPaid,
	}, true, nil
}

// VirtualAccountPut persists one virtual token account.
func (s *Store) VirtualAccountPut(account *curve.VirtualTokenAccount) error {
	if account == nil {
		return errors.New("curve store: nil account")
	}
	return s.put(accountKey(account.PoolID, account.Owner), &storedAccount{
		PoolID:   account.PoolID,
		Owner:    account.Owner,
		Balance:  account.Balance,
		FeesPaid: account.FeesPaid,
	})
}

// VirtualAccountDelete removes one virtual token account.
func (s *Store) VirtualAccountDelete(poolID types.RecordID, owner types.Address) error {
	if s == nil || s.db == nil {
		return errors.New("curve store uninitialised")
	}
	return s.db.Delete(accountKey(poolID, owner))
}

// BurnAllowanceGet loads one burn allowance.
func (s *Store) BurnAllowanceGet(owner types.Address, configID types.RecordID, tierIndex uint8) (*curve.UserBurnAllowance, bool, error) {
	var stored storedAllowance
	ok, err := s.get(allowanceKey(owner, configID, tierIndex), &stored)
	if !ok || err != nil {
		return nil, false, err
	}
	return &curve.UserBurnAllowance{
		Owner:             stored.Owner,
		ConfigID:          stored.ConfigID,
		TierIndex:         stored.TierIndex,
		TiersGeneration:   int64(stored.TiersGeneration),
		Payer:             stored.Payer,
		BurnsToday:        stored.BurnsToday,
		LastBurnTimestamp: int64(stored.LastBurnTimestamp),
		CreatedAt:         int64(stored.CreatedAt),
	}, true, nil
}

// BurnAllowancePut persists one burn allowance.
func (s *Store) BurnAllowancePut(allowance *curve.UserBurnAllowance) error {
	if allowance == nil {
		return errors.New("curve store: nil allowance")
	}
	return s.put(allowanceKey(allowance.Owner, allowance.ConfigID, allowance.TierIndex), &storedAllowance{
		Owner:             allowance.Owner,
		ConfigID:          allowance.ConfigID,
		TierIndex:         allowance.TierIndex,
		TiersGeneration:   uint64(allowance.TiersGeneration),
		Payer:             allowance.Payer,
		BurnsToday:        allowance.BurnsToday,
		LastBurnTimestamp: uint64(allowance.LastBurnTimestamp),
		CreatedAt:         uint64(allowance.CreatedAt),
	})
}

// BurnAllowanceDelete removes one burn allowance.
func (s *Store) BurnAllowanceDelete(owner types.Address, configID types.RecordID, tierIndex uint8) error {
	if s == nil || s.db == nil {
		return errors.New("curve store uninitialised")
	}
	return s.db.Delete(allowanceKey(owner, configID, tierIndex))
}
