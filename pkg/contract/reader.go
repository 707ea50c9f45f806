package contract

import (
	"context"
	"io"
)

// Reader: 输入源抽象（文件/STDIN/终端）。
// 约束：
// 1) 流式读取，按输入源维度回调，回调顺序即拼接顺序；
// 2) FileID 稳定且去平台差异化；
// 3) 不做解析，仅提供字节流；
// 4) 不在内部起并发；
// 5) 不得将读到的内容写入任何持久介质。
type Reader interface {
	Iterate(ctx context.Context, roots []string, yield func(fileID FileID, r io.ReadCloser) error) error
}
