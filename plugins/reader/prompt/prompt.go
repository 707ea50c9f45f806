package prompt

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"entmerge/pkg/contract"
)

// Options 为终端录入 Reader 的可选配置。
type Options struct {
	// Echo 为 true 时回显输入；默认不回显（观测即秘密）。
	Echo bool `json:"echo"`
	// Prompt 为每行前的提示符，默认 "line %d: "（%d 为行号）。
	Prompt string `json:"prompt"`
}

// Prompt 从终端逐行读取观测，空行或 EOF 结束录入。
// 录入内容只存在于内存，交付后即清零。
type Prompt struct {
	echo   bool
	prompt string
	in     *os.File
	out    io.Writer
	// readLine 读取一行（不含换行符）；nil 时按终端状态自动选择。
	readLine func() ([]byte, error)
}

// New 创建读取 STDIN、提示输出到 STDERR 的 Reader。
func New(opts *Options) *Prompt {
	p := &Prompt{prompt: "line %d: ", in: os.Stdin, out: os.Stderr}
	if opts != nil {
		p.echo = opts.Echo
		if opts.Prompt != "" {
			p.prompt = opts.Prompt
		}
	}
	return p
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0x00
	}
}

// appendWipe 等价于 append(buf, p...)，但扩容时清零旧的底层数组，
// 不在内存中遗留先前录入的副本。
func appendWipe(buf, p []byte) []byte {
	if len(buf)+len(p) <= cap(buf) {
		return append(buf, p...)
	}
	grown := make([]byte, len(buf), 2*cap(buf)+len(p))
	copy(grown, buf)
	zero(buf[:cap(buf)])
	return append(grown, p...)
}

// Iterate 忽略 roots，产出唯一的 FileID "prompt"。
func (p *Prompt) Iterate(ctx context.Context, _ []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	read := p.lineReader()
	var buf []byte
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			zero(buf)
			return err
		}
		p.ask(n)
		line, err := read()
		if err != nil && err != io.EOF {
			zero(line)
			zero(buf)
			return fmt.Errorf("read line %d: %w", n, err)
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			zero(line)
			break
		}
		buf = appendWipe(buf, trimmed)
		buf = appendWipe(buf, []byte{'\n'})
		zero(line)
		if err == io.EOF {
			break
		}
	}
	rc := &wipeCloser{Reader: bytes.NewReader(buf), buf: buf}
	err := yield(contract.FileID("prompt"), rc)
	zero(buf)
	return err
}

func (p *Prompt) ask(n int) {
	if strings.Contains(p.prompt, "%d") {
		fmt.Fprintf(p.out, p.prompt, n)
		return
	}
	fmt.Fprint(p.out, p.prompt)
}

func (p *Prompt) lineReader() func() ([]byte, error) {
	if p.readLine != nil {
		return p.readLine
	}
	fd := int(p.in.Fd())
	if !p.echo && term.IsTerminal(fd) {
		return func() ([]byte, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprint(p.out, "\n")
			return b, err
		}
	}
	br := bufio.NewReader(p.in)
	return func() ([]byte, error) {
		b, err := br.ReadBytes('\n')
		if err == io.EOF && len(b) == 0 {
			return nil, io.EOF
		}
		if err == io.EOF {
			err = nil
		}
		return bytes.TrimRight(b, "\r\n"), err
	}
}

// wipeCloser 在 Close 时清零底层缓冲。
type wipeCloser struct {
	*bytes.Reader
	buf []byte
}

func (w *wipeCloser) Close() error {
	zero(w.buf)
	return nil
}
