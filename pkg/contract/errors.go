package contract

import "errors"

// 最小错误分类（哨兵错误；调用方以 errors.Is 判定）。
var (
	// ErrInvalidSymbols: 行内含不属于符号集的符号，或违反不放回抽取的重复约束。
	// 仅在 Disambiguator 内部被“消化”：对应符号集退出候选。
	ErrInvalidSymbols = errors.New("invalid symbols")
	// ErrNoInterpretation: 没有任何符号集接受该行。
	ErrNoInterpretation = errors.New("no interpretation")
	// ErrAmbiguousInput: 两个及以上同等具体（符号数相同）的符号集同时接受该行。
	ErrAmbiguousInput = errors.New("ambiguous input")
	// ErrInsufficientEntropy: 可用原始数字少于折叠长度，或折叠长度为 0。
	ErrInsufficientEntropy = errors.New("insufficient entropy")
	// ErrInvalidInput: 参数非法（base<2、负偏差、符号集定义非法等）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrBudgetExceeded: 超出资源上限（如单行字节数）。
	ErrBudgetExceeded = errors.New("budget exceeded")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
)
