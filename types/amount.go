package types

import "math/big"

// Balances and vote accumulators are signed 128-bit quantities.
var (
	MaxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	MinInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

func InInt128Range(x *big.Int) bool {
	return x.Cmp(MinInt128) >= 0 && x.Cmp(MaxInt128) <= 0
}

// AddInt128 returns a+b, or ok=false when the sum leaves the int128 range.
func AddInt128(a, b *big.Int) (sum *big.Int, ok bool) {
	sum = new(big.Int).Add(a, b)
	return sum, InInt128Range(sum)
}

func ParseAmount(s string) (amount *big.Int, ok bool) {
	amount, ok = new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return amount, InInt128Range(amount)
}
