package hex

import (
	"bufio"
	"fmt"
	"io"

	"entmerge/pkg/contract"
)

// Options 为十六进制格式化器的可选配置。
type Options struct {
	// Upper: 使用大写 A-F。
	Upper bool `json:"upper"`
}

// Hex 将 base 2（每 4 位高位在前打包）或 base 16 的结果渲染为十六进制串。
type Hex struct {
	alphabet string
}

// New 创建十六进制格式化器。
func New(opts *Options) *Hex {
	h := &Hex{alphabet: "0123456789abcdef"}
	if opts != nil && opts.Upper {
		h.alphabet = "0123456789ABCDEF"
	}
	return h
}

// Format 写出一行十六进制串。base 2 时位数须为 4 的倍数。
func (h *Hex) Format(w io.Writer, base int, digits []int) error {
	for i, v := range digits {
		if v < 0 || v >= base {
			return fmt.Errorf("%w: digit %d at %d out of base %d", contract.ErrInvariantViolation, v, i, base)
		}
	}
	var nibbles []int
	switch base {
	case 16:
		nibbles = digits
	case 2:
		if len(digits)%4 != 0 {
			return fmt.Errorf("%w: hex formatter needs a multiple of 4 bits, got %d", contract.ErrInvalidInput, len(digits))
		}
		nibbles = make([]int, 0, len(digits)/4)
		for i := 0; i < len(digits); i += 4 {
			nibbles = append(nibbles, digits[i]<<3|digits[i+1]<<2|digits[i+2]<<1|digits[i+3])
		}
	default:
		return fmt.Errorf("%w: hex formatter supports base 2 or 16, got %d", contract.ErrInvalidInput, base)
	}
	bw := bufio.NewWriter(w)
	for _, v := range nibbles {
		bw.WriteByte(h.alphabet[v])
	}
	bw.WriteByte('\n')
	return bw.Flush()
}
