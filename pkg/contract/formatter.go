package contract

import "io"

// Formatter: 将最终熵向量渲染为文本写出（不追加换行以外的装饰）。
// 约束：
//  1. 每个数字必须位于 [0, base)，否则返回 ErrInvariantViolation；
//  2. 不持久化，不缓存；
//  3. 不支持的 base 返回 ErrInvalidInput。
type Formatter interface {
	Format(w io.Writer, base int, digits []int) error
}
