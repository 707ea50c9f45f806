package entropy

import (
	"fmt"

	"entmerge/pkg/contract"
)

// Reduce 将 digits 折叠为恰好 length 个 base 进制数字：
//
//	out[i] = (Σ_{j ≡ i (mod length)} digits[j]) mod base
//
// base == 2 时即异或折叠。每个输入数字恰好贡献到一个输出位置，不丢弃熵；
// 折叠本身不增强各输出位之间的独立性，独立性仅取决于上游的偏差界。
//
// 要求 len(digits) >= length >= 1，否则返回 ErrInsufficientEntropy。
func Reduce(base int, digits []int, length int) ([]int, error) {
	if base < 2 {
		return nil, fmt.Errorf("%w: base %d < 2", contract.ErrInvalidInput, base)
	}
	if length < 1 || len(digits) < length {
		return nil, fmt.Errorf("%w: need %d symbols, have %d", contract.ErrInsufficientEntropy, length, len(digits))
	}
	out := make([]int, length)
	for j, d := range digits {
		if d < 0 || d >= base {
			return nil, fmt.Errorf("%w: digit %d out of range for base %d", contract.ErrInvariantViolation, d, base)
		}
		i := j % length
		out[i] = (out[i] + d) % base
	}
	return out, nil
}
