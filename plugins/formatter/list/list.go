package list

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"entmerge/pkg/contract"
)

// Options 为列表格式化器的可选配置。
type Options struct {
	// Separator 为元素分隔符，默认 ", "。
	Separator string `json:"separator"`
}

// List 以 "[d0, d1, …]" 形式输出，适用于任意 base。
type List struct {
	sep string
}

// New 创建列表格式化器。
func New(opts *Options) *List {
	l := &List{sep: ", "}
	if opts != nil && opts.Separator != "" {
		l.sep = opts.Separator
	}
	return l
}

// Format 写出一行列表文本。
func (l *List) Format(w io.Writer, base int, digits []int) error {
	if base < 2 {
		return fmt.Errorf("%w: base %d < 2", contract.ErrInvalidInput, base)
	}
	bw := bufio.NewWriter(w)
	bw.WriteByte('[')
	for i, d := range digits {
		if d < 0 || d >= base {
			return fmt.Errorf("%w: digit %d at %d out of base %d", contract.ErrInvariantViolation, d, i, base)
		}
		if i > 0 {
			bw.WriteString(l.sep)
		}
		bw.WriteString(strconv.Itoa(d))
	}
	bw.WriteString("]\n")
	return bw.Flush()
}
