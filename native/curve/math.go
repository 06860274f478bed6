package curve

import (
	"math"

	"github.com/holiman/uint256"
)

const (
	// bpDenominator is one whole in basis points.
	bpDenominator = 10_000
	// bpX100Denominator is one whole in x100 basis points.
	bpX100Denominator = 1_000_000
)

// Fees is the three-way split of one gross quote amount.
type Fees struct {
	Creator  uint64
	Buyback  uint64
	Platform uint64
}

// Total sums the three legs. Callers must verify Total() <= amount before
// subtracting; configuration validation keeps totals at or below 20%.
func (f Fees) Total() uint64 { return f.Creator + f.Buyback + f.Platform }

// CalculateFees splits a gross quote amount into the three fee legs, each
// rounded up so the pool is never under-collected.
func CalculateFees(amount uint64, creatorBp, buybackBp, platformBp uint16) (Fees, error) {
	creator, err := feeAmount(amount, creatorBp)
	if err != nil {
		return Fees{}, err
	}
	buyback, err := feeAmount(amount, buybackBp)
	if err != nil {
		return Fees{}, err
	}
	platform, err := feeAmount(amount, platformBp)
	if err != nil {
		return Fees{}, err
	}
	return Fees{Creator: creator, Buyback: buyback, Platform: platform}, nil
}

func feeAmount(amount uint64, bp uint16) (uint64, error) {
	if bp > bpDenominator {
		return 0, ErrInvalidFeeBasisPoints
	}
	if bp == 0 {
		return 0, nil
	}
	if amount > math.MaxUint64/uint64(bp) {
		return 0, ErrAmountTooBig
	}
	return ceilDiv(amount*uint64(bp), bpDenominator), nil
}

// BuyOutput prices a buy: base_out = floor(b * q_in / (q + v + q_in)), the
// constant-product curve solved for the base leg, rounded in the pool's favor.
func BuyOutput(quoteIn, quoteReserve, baseReserve, virtualReserve uint64) uint64 {
	denom := new(uint256.Int).AddUint64(
		new(uint256.Int).AddUint64(uint256.NewInt(quoteReserve), virtualReserve), quoteIn)
	if denom.IsZero() {
		return 0
	}
	num := new(uint256.Int).Mul(uint256.NewInt(baseReserve), uint256.NewInt(quoteIn))
	return num.Div(num, denom).Uint64()
}

// SellOutput prices a sell: quote_out = floor(b_in * (q + v) / (b + b_in)).
func SellOutput(baseIn, baseReserve, quoteReserve, virtualReserve uint64) uint64 {
	denom := new(uint256.Int).AddUint64(uint256.NewInt(baseReserve), baseIn)
	if denom.IsZero() {
		return 0
	}
	num := new(uint256.Int).Mul(
		uint256.NewInt(baseIn),
		new(uint256.Int).AddUint64(uint256.NewInt(quoteReserve), virtualReserve))
	return num.Div(num, denom).Uint64()
}

// BurnAmount converts an admitted x100 basis-point fraction into base units.
func BurnAmount(admittedBpX100, baseReserve uint64) uint64 {
	return mulDivFloor(baseReserve, admittedBpX100, bpX100Denominator)
}

// VirtualReserveAfterBurn shrinks a virtual reserve by the fraction of the
// given base quantity removed, rounding down to stay solvent.
func VirtualReserveAfterBurn(virtualReserve, base, burnAmount uint64) uint64 {
	if base == 0 {
		return 0
	}
	return mulDivFloor(virtualReserve, base-burnAmount, base)
}

// OptimalVirtualReserve scales the starting virtual reserve to the current
// total supply, rounding up so the pool stays solvent.
func OptimalVirtualReserve(startingVirtualReserve, startingTotalSupply, totalSupply uint64) uint64 {
	return mulDivCeil(startingVirtualReserve, totalSupply, startingTotalSupply)
}

// OptimalRealReserve is the real quote reserve at which the worst-case exit
// price is at least the original entry price, rounded up.
func OptimalRealReserve(totalSupply, optimalVirtualReserve, baseReserve uint64) uint64 {
	return mulDivCeil(optimalVirtualReserve, totalSupply-baseReserve, baseReserve)
}

// VirtualReserveAfterTopup recomputes the virtual reserve downward from a
// partially funded real reserve; flooring under-shoots rather than
// over-promises.
func VirtualReserveAfterTopup(quoteReserve, baseReserve, totalSupply uint64) uint64 {
	return mulDivFloor(quoteReserve, baseReserve, totalSupply-baseReserve)
}

func mulDivFloor(a, b, div uint64) uint64 {
	num := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return num.Div(num, uint256.NewInt(div)).Uint64()
}

func mulDivCeil(a, b, div uint64) uint64 {
	num := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	num.AddUint64(num, div-1)
	return num.Div(num, uint256.NewInt(div)).Uint64()
}

func ceilDiv(a, div uint64) uint64 {
	num := new(uint256.Int).AddUint64(uint256.NewInt(a), div-1)
	return num.Div(num, uint256.NewInt(div)).Uint64()
}

func checkedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if a < b {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

func checkedMul(a, b uint64) (uint64, error) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, ErrMathOverflow
	}
	return a * b, nil
}
