package types

import (
	"encoding/hex"
	"fmt"
)

// Address identifies a verified principal on the host ledger: a signer, a fee
// recipient, or the authority of a holding.
type Address [20]byte

// RecordID names a persisted record (a pool or a platform configuration).
type RecordID [32]byte

// Hex returns the lowercase hex encoding without a prefix.
func (a Address) Hex() string { return hex.EncodeToString(a[:]) }

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool { return a == Address{} }

// ParseAddress decodes a 40-character hex string into an Address.
func ParseAddress(s string) (Address, error) {
	var addr Address
	raw, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("parse address: %w", err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("parse address: expected %d bytes, got %d", len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

// Hex returns the lowercase hex encoding without a prefix.
func (id RecordID) Hex() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether the identifier is the zero value.
func (id RecordID) IsZero() bool { return id == RecordID{} }

// ParseRecordID decodes a 64-character hex string into a RecordID.
func ParseRecordID(s string) (RecordID, error) {
	var id RecordID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parse record id: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("parse record id: expected %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
