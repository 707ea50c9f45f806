package entropy

import "math/big"

var one = big.NewInt(1)

// EstimateLength 返回从大小为 n 的事件空间中可提取的 base 进制位数 L，
// 使得最坏情况下桶大小的偏斜不超过 bias。
//
// 逐位尝试：m = base^(L+1)，lo = ⌊n/m⌋，hi = ⌈n/m⌉；
// lo == 0 或 hi/lo - 1 > bias 时返回 L，否则 L++。
// 比较在整数域完成：(hi-lo)·den(bias) > num(bias)·lo。
//
// 注意：n 恰为 base 的高次幂倍数时偏斜为 0，因此结果对 n 并不单调
// （例如 2^100 可得 100 位，而 2^100+1 只得 36 位）。
//
// base < 2 或 n <= 0 时返回 0；bias 为 nil 时使用 DefaultBias。
func EstimateLength(base int, n *big.Int, bias *big.Rat) int {
	if base < 2 || n == nil || n.Sign() <= 0 {
		return 0
	}
	if bias == nil {
		bias = DefaultBias()
	}
	num, den := bias.Num(), bias.Denom()

	b := big.NewInt(int64(base))
	m := new(big.Int).Set(b)
	lo, rem, hi := new(big.Int), new(big.Int), new(big.Int)
	lhs, rhs := new(big.Int), new(big.Int)
	for l := 0; ; l++ {
		lo.QuoRem(n, m, rem)
		if lo.Sign() == 0 {
			return l
		}
		hi.Set(lo)
		if rem.Sign() != 0 {
			hi.Add(hi, one)
		}
		lhs.Sub(hi, lo)
		lhs.Mul(lhs, den)
		rhs.Mul(num, lo)
		if lhs.Cmp(rhs) > 0 {
			return l
		}
		m.Mul(m, b)
	}
}
