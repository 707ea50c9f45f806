package lines

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"entmerge/pkg/contract"
)

// DefaultMaxLineBytes 为单行观测的默认字节上限。
const DefaultMaxLineBytes = 64 * 1024

// Options 为行拆分器的可选配置。
type Options struct {
	// MaxLineBytes: 单行最大字节数（不含换行）。<=0 时取默认 64KiB。
	MaxLineBytes int `json:"max_line_bytes"`
	// CommentPrefix: 以此前缀开头的行被跳过。为空时取默认 "#"。
	CommentPrefix string `json:"comment_prefix"`
}

// Splitter 一行一条观测：空行与注释行跳过但占用行号。
type Splitter struct {
	maxBytes int
	comment  string
}

// New 创建行拆分器。
func New(opts *Options) *Splitter {
	s := &Splitter{maxBytes: DefaultMaxLineBytes, comment: "#"}
	if opts != nil {
		if opts.MaxLineBytes > 0 {
			s.maxBytes = opts.MaxLineBytes
		}
		if opts.CommentPrefix != "" {
			s.comment = opts.CommentPrefix
		}
	}
	return s
}

// Split 将单个输入源拆分为 []Record；Index 为 0 起的物理行号。
func (s *Splitter) Split(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Record, error) {
	sc := bufio.NewScanner(r)
	// 留出 CRLF 的余量，超长行由下方显式判定
	sc.Buffer(make([]byte, 0, min(s.maxBytes+2, 64*1024)), s.maxBytes+2)

	var recs []contract.Record
	var idx contract.Index = -1
	for sc.Scan() {
		idx++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := sc.Text()
		if len(raw) > s.maxBytes {
			return nil, fmt.Errorf("%w: line %d: %d bytes > %d", contract.ErrBudgetExceeded, idx+1, len(raw), s.maxBytes)
		}
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, s.comment) {
			continue
		}
		if !utf8.ValidString(text) {
			return nil, fmt.Errorf("%w: line %d: invalid UTF-8", contract.ErrInvalidInput, idx+1)
		}
		recs = append(recs, contract.Record{Index: idx, FileID: fileID, Text: text})
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line %d: longer than %d bytes", contract.ErrBudgetExceeded, idx+2, s.maxBytes)
		}
		return nil, err
	}
	return recs, nil
}
