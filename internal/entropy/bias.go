package entropy

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"entmerge/pkg/contract"
)

// DefaultBiasBits: 默认偏差阈值 ε = 2^-64。
const DefaultBiasBits = 64

// maxBiasExponent 限制 "b^e" 形式的指数，避免构造巨大的有理数。
const maxBiasExponent = 1 << 16

// DefaultBias 返回 2^-64。
func DefaultBias() *big.Rat { return BiasFromBits(DefaultBiasBits) }

// BiasFromBits 返回 2^-bits。
func BiasFromBits(bits uint) *big.Rat {
	den := new(big.Int).Lsh(big.NewInt(1), bits)
	return new(big.Rat).SetFrac(big.NewInt(1), den)
}

// ParseBias 解析偏差阈值文本。支持：
//
//	2^-64        幂形式（底数为正整数）
//	1/1000000    分数
//	0.000001     小数
//
// 空串返回默认值；负数返回 ErrInvalidInput。
func ParseBias(s string) (*big.Rat, error) {
	t := strings.Join(strings.Fields(s), "")
	if t == "" {
		return DefaultBias(), nil
	}
	if base, exp, ok := strings.Cut(t, "^"); ok {
		b, err := strconv.ParseInt(base, 10, 64)
		if err != nil || b < 1 {
			return nil, fmt.Errorf("%w: bias base %q", contract.ErrInvalidInput, base)
		}
		e, err := strconv.ParseInt(exp, 10, 64)
		if err != nil || e > maxBiasExponent || e < -maxBiasExponent {
			return nil, fmt.Errorf("%w: bias exponent %q", contract.ErrInvalidInput, exp)
		}
		neg := e < 0
		if neg {
			e = -e
		}
		p := new(big.Int).Exp(big.NewInt(b), big.NewInt(e), nil)
		if neg {
			return new(big.Rat).SetFrac(big.NewInt(1), p), nil
		}
		return new(big.Rat).SetInt(p), nil
	}
	r, ok := new(big.Rat).SetString(t)
	if !ok {
		return nil, fmt.Errorf("%w: bias %q", contract.ErrInvalidInput, s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("%w: bias must be >= 0", contract.ErrInvalidInput)
	}
	return r, nil
}
