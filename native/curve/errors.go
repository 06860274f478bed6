package curve

import "errors"

var (
	ErrNilState  = errors.New("curve engine: state not configured")
	ErrNilMover  = errors.New("curve engine: token mover not configured")
	ErrNotFound  = errors.New("curve engine: record not found")
	ErrExists    = errors.New("curve engine: record already exists")
	ErrUnderflow = errors.New("curve engine: arithmetic underflow")

	// ErrMathOverflow covers every checked multiplication, addition, or
	// subtraction that would leave the representable range.
	ErrMathOverflow = errors.New("curve engine: arithmetic overflow")

	ErrAmountTooBig   = errors.New("curve engine: amount too big to multiply safely")
	ErrAmountTooSmall = errors.New("curve engine: amount too small")

	ErrInvalidFeeBasisPoints     = errors.New("curve engine: invalid fee basis points")
	ErrInvalidBuybackFee         = errors.New("curve engine: buyback fee below minimum")
	ErrInvalidVirtualReserve     = errors.New("curve engine: virtual reserve must be positive")
	ErrInvalidBurnTiers          = errors.New("curve engine: invalid burn tiers")
	ErrInvalidBurnTiersLength    = errors.New("curve engine: too many burn tiers")
	ErrInvalidBurnRate           = errors.New("curve engine: invalid burn rate config")
	ErrBurnTiersUpdatedRecently  = errors.New("curve engine: burn tiers updated too recently")
	ErrInvalidBurnTierIndex      = errors.New("curve engine: burn tier index out of range")
	ErrInvalidPoolCreator        = errors.New("curve engine: caller is not the pool creator")
	ErrInvalidBurnAuthority      = errors.New("curve engine: caller is not the tier authority")
	ErrInvalidPlatformAdmin      = errors.New("curve engine: caller is not the platform admin")
	ErrStaleBurnAllowance        = errors.New("curve engine: burn allowance predates current tiers")
	ErrInvalidAllowancePayer     = errors.New("curve engine: caller is not the allowance payer")
	ErrBurnAllowanceActive       = errors.New("curve engine: burn allowance still active")
	ErrBurnLimitReached          = errors.New("curve engine: daily burn limit reached")
	ErrSlippageExceeded          = errors.New("curve engine: slippage exceeded")
	ErrInsufficientVirtualTokens = errors.New("curve engine: insufficient virtual token balance")
	ErrNonzeroBalance            = errors.New("curve engine: virtual token balance not zero")
)
