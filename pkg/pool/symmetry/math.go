package symmetry

import (
	"cosmossdk.io/math"
	"lukechampine.com/uint128"
)

var pow10Table = [20]uint64{
	1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000,
	100_000_000, 1_000_000_000, 10_000_000_000, 100_000_000_000,
	1_000_000_000_000, 10_000_000_000_000, 100_000_000_000_000,
	1_000_000_000_000_000, 10_000_000_000_000_000,
	100_000_000_000_000_000, 1_000_000_000_000_000_000,
	10_000_000_000_000_000_000,
}

// Pow10 returns 10^n for n < 20.
func Pow10(n uint64) uint64 {
	return pow10Table[n]
}

// MulDiv computes floor(a*b/c) over a 128-bit intermediate. A zero
// divisor yields zero; the curve walker relies on this to short-circuit
// degenerate denominators.
func MulDiv(a, b, c uint64) uint64 {
	if c == 0 {
		return 0
	}
	return uint128.From64(a).Mul64(b).Div64(c).Lo
}

// AmountToUSD converts token-native units into canonical USD units
// given a price in USD units per whole token.
func AmountToUSD(amount uint64, decimals uint8, price uint64) uint64 {
	return MulDiv(amount, price, Pow10(uint64(decimals)))
}

// USDToAmount converts canonical USD units into token-native units.
func USDToAmount(usd uint64, decimals uint8, price uint64) uint64 {
	return MulDiv(usd, Pow10(uint64(decimals)), price)
}

// usdValueV2 prices amount in the V2 canonical unit (1e-6 USD). The
// scaling cancels the larger of 10^(decimals-expo) and 10^6 against the
// smaller before multiplying, so high-decimal tokens cannot overflow.
func usdValueV2(amount uint64, decimals uint8, p SimplePrice) uint64 {
	if p.Price <= 0 {
		return 0
	}
	powDen := math.NewIntFromUint64(Pow10(uint64(decimals))).Mul(expoScale(p.Expo))
	powNum := math.NewIntFromUint64(OneUSDV2)
	if powDen.GT(powNum) {
		powDen = powDen.Quo(powNum)
		powNum = math.OneInt()
	} else {
		powNum = powNum.Quo(powDen)
		powDen = math.OneInt()
	}
	v := math.NewIntFromUint64(amount).
		Mul(math.NewInt(p.Price)).
		Mul(powNum).
		Quo(powDen)
	return truncUint64(v)
}

// amountFromUSDValueV2 is the inverse of usdValueV2.
func amountFromUSDValueV2(usd uint64, decimals uint8, p SimplePrice) uint64 {
	if p.Price <= 0 {
		return 0
	}
	powDen := math.NewIntFromUint64(Pow10(uint64(decimals))).Mul(expoScale(p.Expo))
	powNum := math.NewIntFromUint64(OneUSDV2)
	if powDen.GT(powNum) {
		powDen = powDen.Quo(powNum)
		powNum = math.OneInt()
	} else {
		powNum = powNum.Quo(powDen)
		powDen = math.OneInt()
	}
	v := math.NewIntFromUint64(usd).
		Mul(powDen).
		Quo(math.NewInt(p.Price)).
		Quo(powNum)
	return truncUint64(v)
}

// expoScale returns 10^(-expo) for the usual non-positive oracle
// exponents, and 1 otherwise.
func expoScale(expo int32) math.Int {
	scale := math.OneInt()
	ten := math.NewInt(10)
	for e := expo; e < 0; e++ {
		scale = scale.Mul(ten)
	}
	return scale
}

// truncUint64 mirrors the on-chain u64 narrowing cast.
func truncUint64(v math.Int) uint64 {
	if v.IsNegative() {
		return 0
	}
	return v.BigInt().Uint64()
}
