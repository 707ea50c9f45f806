package entropy

import (
	"fmt"
	"math/big"

	"entmerge/pkg/contract"
)

// TableRow: 抽取 Draws 次时的事件空间与可提取位数。
type TableRow struct {
	Draws      int
	EventSpace *big.Int
	Digits     int
}

// Table 列出 0..maxDraws 次抽取各自可提取的 base 进制位数，
// 用于回答“需要掷/抽多少次才够”。不放回时 maxDraws 截断为符号数。
func Table(set contract.SymbolSet, base int, bias *big.Rat, maxDraws int) ([]TableRow, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if base < 2 {
		return nil, fmt.Errorf("%w: base %d < 2", contract.ErrInvalidInput, base)
	}
	if maxDraws < 0 {
		return nil, fmt.Errorf("%w: draws %d < 0", contract.ErrInvalidInput, maxDraws)
	}
	if !set.WithReplacement && maxDraws > set.Size() {
		maxDraws = set.Size()
	}
	rows := make([]TableRow, 0, maxDraws+1)
	n := big.NewInt(1)
	for k := 0; k <= maxDraws; k++ {
		rows = append(rows, TableRow{Draws: k, EventSpace: new(big.Int).Set(n), Digits: EstimateLength(base, n, bias)})
		pool := set.Size()
		if !set.WithReplacement {
			pool -= k
		}
		n.Mul(n, big.NewInt(int64(pool)))
	}
	return rows, nil
}
