package digits

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"entmerge/pkg/contract"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// MaxBase 为单字符数字可表示的最大进制。
const MaxBase = len(alphabet)

// Options 为数字串格式化器的可选配置。
type Options struct {
	// Group: 每 Group 个数字插入一次分隔符；0 表示不分组。
	Group int `json:"group"`
	// Separator: 分组分隔符，默认空格。
	Separator string `json:"separator"`
	// Upper: 10 以上的数字使用大写字母。
	Upper bool `json:"upper"`
}

// Digits 将每个数字渲染为一个字符（0-9a-z），连续输出。
type Digits struct {
	group    int
	sep      string
	alphabet string
}

// New 创建数字串格式化器。
func New(opts *Options) (*Digits, error) {
	d := &Digits{sep: " ", alphabet: alphabet}
	if opts == nil {
		return d, nil
	}
	if opts.Group < 0 {
		return nil, fmt.Errorf("%w: digits.group %d < 0", contract.ErrInvalidInput, opts.Group)
	}
	d.group = opts.Group
	if opts.Separator != "" {
		d.sep = opts.Separator
	}
	if opts.Upper {
		d.alphabet = strings.ToUpper(alphabet)
	}
	return d, nil
}

// Format 写出一行数字串；base 须在 [2, 36]。
func (d *Digits) Format(w io.Writer, base int, digits []int) error {
	if base < 2 || base > MaxBase {
		return fmt.Errorf("%w: digits formatter supports base 2..%d, got %d", contract.ErrInvalidInput, MaxBase, base)
	}
	for i, v := range digits {
		if v < 0 || v >= base {
			return fmt.Errorf("%w: digit %d at %d out of base %d", contract.ErrInvariantViolation, v, i, base)
		}
	}
	bw := bufio.NewWriter(w)
	for i, v := range digits {
		if d.group > 0 && i > 0 && i%d.group == 0 {
			bw.WriteString(d.sep)
		}
		bw.WriteByte(d.alphabet[v])
	}
	bw.WriteByte('\n')
	return bw.Flush()
}
