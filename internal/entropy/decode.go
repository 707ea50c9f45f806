package entropy

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"entmerge/pkg/contract"
)

// Result: 单行解码结果。
type Result struct {
	// Digits: 该行贡献的 base 进制数字（已按偏差界折叠）。
	Digits []int
	// Source: 选中的符号集名称，仅用于诊断输出，不影响控制流。
	Source string
	// Observed: 选中解释下的观测符号个数。
	Observed int
	// Candidates: 接受该行的全部符号集名称（按符号数升序）。
	Candidates []string
}

// Decoder: 在给定符号集集合上为一行选择最窄（符号最少）的解释。
// 零值 Bias 表示使用 DefaultBias。值类型，可在 goroutine 间共享（只读）。
type Decoder struct {
	Sets []contract.SymbolSet
	Bias *big.Rat
}

// Decode 是 Decoder{Sets: sets, Bias: bias}.Decode 的简写。
func Decode(line string, sets []contract.SymbolSet, base int, bias *big.Rat) (Result, error) {
	return Decoder{Sets: sets, Bias: bias}.Decode(line, base)
}

// Decode 依次尝试每个符号集：
//   - 全部拒绝 → ErrNoInterpretation；
//   - 符号数最少的两个解释同样具体 → ErrAmbiguousInput（从不在同等解释之间猜测）；
//   - 否则对最窄解释计算 RandomSymbols(base)。
//
// ErrInvalidSymbols 仅使该符号集退出候选；其他构造错误直接上抛。
func (d Decoder) Decode(line string, base int) (Result, error) {
	if base < 2 {
		return Result{}, fmt.Errorf("%w: base %d < 2", contract.ErrInvalidInput, base)
	}
	var cands []*Counter
	for _, s := range d.Sets {
		c, err := NewCounter(line, s, d.Bias)
		if err != nil {
			if errors.Is(err, contract.ErrInvalidSymbols) {
				continue
			}
			return Result{}, err
		}
		cands = append(cands, c)
	}
	if len(cands) == 0 {
		return Result{}, fmt.Errorf("%w: no symbol set accepts the line", contract.ErrNoInterpretation)
	}
	// 稳定排序：同等大小保持注册顺序，保证诊断输出确定。
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].set.Size() < cands[j].set.Size() })

	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.set.Name
	}
	if len(cands) > 1 && cands[0].set.Size() == cands[1].set.Size() {
		return Result{}, fmt.Errorf("%w: %q and %q both accept the line (%d symbols each)",
			contract.ErrAmbiguousInput, names[0], names[1], cands[0].set.Size())
	}

	best := cands[0]
	digits, err := best.RandomSymbols(base)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", best.set.Name, err)
	}
	return Result{Digits: digits, Source: best.set.Name, Observed: best.Len(), Candidates: names}, nil
}
