package contract

import (
	"context"
	"io"
)

// Splitter: 将单个输入源的字节流拆分为有序 Record（每条一行观测）。
// 约束：
// 1) 不跨输入源合并；
// 2) Index 严格递增且稳定；
// 3) 仅做 CRLF→LF 与首尾空白的最小归一；
// 4) 无内部并发、幂等。
type Splitter interface {
	Split(ctx context.Context, fileID FileID, r io.Reader) ([]Record, error)
}
