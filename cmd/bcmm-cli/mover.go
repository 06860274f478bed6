package main

import (
	"encoding/binary"
	"errors"
	"fmt"

	"bcmm/core/types"
	"bcmm/storage"
)

var errInsufficientFunds = errors.New("ledger: insufficient quote balance")

// ledgerMover settles engine transfers against a local quote ledger in the
// same database. It stands in for the host ledger when operating pools from
// the CLI; the fund command seeds balances.
type ledgerMover struct {
	db storage.Database
}

func newLedgerMover(db storage.Database) *ledgerMover {
	return &ledgerMover{db: db}
}

func addressBalanceKey(addr types.Address) []byte {
	return []byte(fmt.Sprintf("curve/ledger/addr/%x", addr))
}

func poolBalanceKey(poolID types.RecordID) []byte {
	return []byte(fmt.Sprintf("curve/ledger/pool/%x", poolID))
}

func (m *ledgerMover) balance(key []byte) (uint64, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("ledger: malformed balance record")
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (m *ledgerMover) setBalance(key []byte, amount uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], amount)
	return m.db.Put(key, buf[:])
}

func (m *ledgerMover) move(fromKey, toKey []byte, amount uint64) error {
	from, err := m.balance(fromKey)
	if err != nil {
		return err
	}
	if from < amount {
		return errInsufficientFunds
	}
	to, err := m.balance(toKey)
	if err != nil {
		return err
	}
	if to+amount < to {
		return fmt.Errorf("ledger: balance overflow")
	}
	if err := m.setBalance(fromKey, from-amount); err != nil {
		return err
	}
	return m.setBalance(toKey, to+amount)
}

// TransferIn moves quote from an address into a pool's holding.
func (m *ledgerMover) TransferIn(from types.Address, poolID types.RecordID, amount uint64) error {
	return m.move(addressBalanceKey(from), poolBalanceKey(poolID), amount)
}

// TransferOut moves quote from a pool's holding to an address.
func (m *ledgerMover) TransferOut(poolID types.RecordID, to types.Address, amount uint64) error {
	return m.move(poolBalanceKey(poolID), addressBalanceKey(to), amount)
}

// credit mints quote into an address balance for local testing.
func (m *ledgerMover) credit(addr types.Address, amount uint64) error {
	key := addressBalanceKey(addr)
	current, err := m.balance(key)
	if err != nil {
		return err
	}
	if current+amount < current {
		return fmt.Errorf("ledger: balance overflow")
	}
	return m.setBalance(key, current+amount)
}
