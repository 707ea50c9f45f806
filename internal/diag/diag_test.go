package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"entmerge/pkg/contract"
)

// UT-DIAG-01: 指标计数与快照
func TestMetrics(t *testing.T) {
	ResetMetrics()
	IncOp("decode", "line", "success")
	IncOp("decode", "line", "success")
	IncError("decode", string(CodeAmbiguous))
	ObserveDuration("pipeline", "run", 5)
	ObserveDuration("pipeline", "run", 7)
	snap := MetricsSnapshot()
	if snap["op_total/decode/line/success"] != 2 {
		t.Fatalf("op_total 错误: %v", snap)
	}
	if snap["error_total/decode/ambiguous"] != 1 {
		t.Fatalf("error_total 错误: %v", snap)
	}
	if snap["op_duration_ms/pipeline/run"] != 12 {
		t.Fatalf("op_duration_ms 错误: %v", snap)
	}
	if MetricsKV()["op_total/decode/line/success"] != "2" {
		t.Fatalf("MetricsKV 错误: %v", MetricsKV())
	}
	ResetMetrics()
	if len(MetricsSnapshot()) != 0 {
		t.Fatalf("ResetMetrics 未清空")
	}
}

// UT-DIAG-02: 错误分类
func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{context.Canceled, CodeCancel},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), CodeCancel},
		{contract.ErrBudgetExceeded, CodeBudget},
		{fmt.Errorf("f:3: %w", contract.ErrAmbiguousInput), CodeAmbiguous},
		{contract.ErrInsufficientEntropy, CodeEntropy},
		{contract.ErrInvariantViolation, CodeInvariant},
		{contract.ErrNoInterpretation, CodeInput},
		{contract.ErrInvalidSymbols, CodeInput},
		{contract.ErrInvalidInput, CodeInput},
		{&fs.PathError{Op: "open", Path: "/", Err: errors.New("x")}, CodeIO},
		{errors.New("other"), CodeUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Fatalf("Classify(%v)=%s want %s", c.err, got, c.want)
		}
	}
}

func decodeEvents(t *testing.T, b []byte) []Event {
	t.Helper()
	var out []Event
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("非 JSON 行 %q: %v", line, err)
		}
		out = append(out, ev)
	}
	return out
}

// UT-DIAG-03: Logger 事件字段与级别过滤
func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("corr", "debug", &buf)
	timer := l.Start("pipeline", "run start")
	timer.Finish("run finish", 3)
	timer = l.StartWith("reader", "open", "dice.txt", 0)
	timer.Finish("ok", 1)
	timer = l.StartWithKV("decode", "line", "dice.txt", 2, map[string]string{"source": "dice"})
	timer.Finish("ok", 1)
	l.Error("comp", "code", "msg", nil)
	l.ErrorWith("decode", string(CodeAmbiguous), "ambiguous", nil, "dice.txt", 4)
	l.ErrorWithKV("decode", "input", "msg", nil, "f", 1, map[string]string{"candidates": "coin,yesno"})
	l.Warn("config", "bias above 2^-32", nil)
	l.InfoFinish("comp", "msg", time.Now(), 1)
	l.DebugStart("decode", "candidates", "f", 1, nil)

	evs := decodeEvents(t, buf.Bytes())
	if len(evs) != 12 {
		t.Fatalf("事件数=%d", len(evs))
	}
	for _, ev := range evs {
		if ev.CorrID != "corr" || ev.TS == "" || ev.Level == "" {
			t.Fatalf("公共字段缺失: %+v", ev)
		}
	}
	if evs[7].FileID != "dice.txt" || evs[7].Line != 4 || evs[7].Code != "ambiguous" || evs[7].Stage != "error" {
		t.Fatalf("ErrorWith 字段错误: %+v", evs[7])
	}
	if evs[4].KV["source"] != "dice" {
		t.Fatalf("StartWithKV 未携带键值: %+v", evs[4])
	}
	if evs[5].Stage != "finish" || evs[5].FileID != "dice.txt" || evs[5].Line != 2 || evs[5].Count != 1 {
		t.Fatalf("Timer 未携带上下文: %+v", evs[5])
	}
}

// UT-DIAG-04: 级别过滤与 Level/ParseLevel 分支
func TestLoggerLevelsAndFilter(t *testing.T) {
	if Warn.String() != "warn" {
		t.Fatalf("warn string")
	}
	var unknown Level = 12345
	if unknown.String() != "info" {
		t.Fatalf("default string")
	}
	if ParseLevel(" DEBUG ") != Debug || ParseLevel("bogus") != Info {
		t.Fatalf("ParseLevel 错误")
	}
	if !ValidLevel("error") || ValidLevel("verbose") {
		t.Fatalf("ValidLevel 错误")
	}
	var buf bytes.Buffer
	l := NewLogger("c", "warn", &buf)
	l.DebugStart("comp", "msg", "f", 1, nil)
	l.Start("comp", "msg").Finish("x", 0)
	if buf.Len() != 0 {
		t.Fatalf("warn 级别不应输出 info/debug: %q", buf.String())
	}
	start := time.Now().Add(-10 * time.Millisecond)
	l.Error("comp", "code", "msg", &start)
	evs := decodeEvents(t, buf.Bytes())
	if len(evs) != 1 || evs[0].DurMS < 10 {
		t.Fatalf("error 事件错误: %+v", evs)
	}
	var tnil *Timer
	tnil.Finish("x", 0)
	(&Timer{}).Finish("x", 0)
	var lnil *Logger
	if lnil.Enabled(Error) {
		t.Fatalf("nil logger 不应启用")
	}
}

// UT-DIAG-05: 轮转日志文件
func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	w, err := OpenLogFile(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	l := NewLogger("corr", "info", w)
	l.Start("comp", "msg").Finish("ok", 1)
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "entmerge.log"))
	if err != nil {
		t.Fatalf("log file not found: %v", err)
	}
	if evs := decodeEvents(t, b); len(evs) != 2 {
		t.Fatalf("日志行数=%d", len(evs))
	}
}

// UT-DIAG-06: 终端（非 TTY）关键节点输出
func TestTerminalNonTTYFlow(t *testing.T) {
	var sb strings.Builder
	tm := NewTerminal(&sb, true)
	if tm.isTTY {
		t.Fatalf("expect non-tty")
	}
	tm.RunStart(4, 2, 256)
	tm.FileStart("rolls/dice.txt", 12)
	tm.FileProgress(6, 12, 100) // 非 TTY：不输出进度
	tm.FileFinish(true, 5100*time.Millisecond)
	tm.RunFinish(true, 41300*time.Millisecond)

	out := sb.String()
	if strings.Contains(out, "\r") {
		t.Fatalf("non-tty should not contain carriage returns: %q", out)
	}
	for _, want := range []string{
		"[run] 并发=4 | base=2 | 输出长度=256",
		"[file] dice.txt | 行数=12",
		"[done] dice.txt | 行 12 | 总用时 5.1s",
		"[ok] 全部完成 | 输入 1 | 行 12 | 总用时 41.3s",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

// UT-DIAG-07: 终端（TTY）进度节流与清尾
func TestTerminalTTYProgressThrottleAndClear(t *testing.T) {
	var sb strings.Builder
	tm := NewTerminal(&sb, true)
	tm.isTTY = true // 强制 TTY
	tm.RunStart(2, 6, 50)
	tm.FileStart("/a/b/c/longfilename.txt", 3)

	tm.FileProgress(1, 3, 10)
	first := sb.String()
	if !strings.Contains(first, "\r[") {
		t.Fatalf("first progress should be inline with CR: %q", first)
	}
	// 立即第二次：应被节流（<100ms）
	tm.FileProgress(2, 3, 20)
	if sb.String() != first {
		t.Fatalf("second progress should be throttled; got changed output")
	}
	time.Sleep(120 * time.Millisecond)
	tm.FileProgress(2, 3, 20)
	second := sb.String()
	if len(second) <= len(first) {
		t.Fatalf("third progress should append output")
	}
	tm.FileFinish(false, 2200*time.Millisecond)
	final := sb.String()
	idx := strings.LastIndex(final, "[fail]")
	if idx < 0 {
		t.Fatalf("finish should include fail line: %q", final)
	}
	seg := final[:idx]
	cr := strings.LastIndex(seg, "\r")
	if cr < 0 || !strings.Contains(seg[cr+1:], " ") {
		t.Fatalf("clear tail should write spaces after CR: %q", seg)
	}
}

type flakyWriter struct{ fail bool }

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.fail {
		w.fail = false
		return 0, fmt.Errorf("boom")
	}
	return len(p), nil
}

// UT-DIAG-08: 写失败降级为禁用态
func TestTerminalDisableOnWriteError(t *testing.T) {
	tm := NewTerminal(&flakyWriter{fail: true}, true)
	tm.RunStart(1, 2, 8)
	if tm.enabled {
		t.Fatalf("terminal should be disabled after write error")
	}
	tm.FileStart("a", 0)
	tm.FileProgress(0, 0, 0)
	tm.FileFinish(true, 0)
	tm.RunFinish(true, 0)

	inline := NewTerminal(&flakyWriter{fail: true}, true)
	inline.isTTY = true
	inline.FileStart("f.txt", 2)
	inline.FileProgress(1, 2, 0)
	if inline.enabled {
		t.Fatalf("terminal should be disabled after inline error")
	}
}

// UT-DIAG-09: 工具函数
func TestHelpers(t *testing.T) {
	got := shortenBase("/x/y/这是一个很长的文件名用于截断测试abcdefghijk.txt", 10)
	if visLen(got) > 10 || !strings.HasSuffix(got, "…") {
		t.Fatalf("shortenBase 宽度错误: %q (%d)", got, visLen(got))
	}
	if shortenBase("x", 0) != "" || shortenBase("/a/dice.txt", 20) != "dice.txt" {
		t.Fatalf("shortenBase 边界错误")
	}
	if visLen("ab") != 2 || visLen("骰子") != 4 {
		t.Fatalf("visLen 错误")
	}
	if safe("a\nb\rc") != "a b c" {
		t.Fatalf("safe replace failed")
	}
	if formatDur(0) != "0ms" || formatDur(1500*time.Millisecond) != "1.5s" {
		t.Fatalf("formatDur failed")
	}
	SetTerminal(nil)
	if GetTerminal() != nil {
		t.Fatalf("expected nil terminal")
	}
	SetTerminal(NewTerminal(os.Stderr, false))
	if GetTerminal() == nil {
		t.Fatalf("expected non-nil terminal")
	}
	SetTerminal(nil)
}

// UT-DIAG-10: CI 环境强制非 TTY；nil 接收者 no-op
func TestTerminalCIAndNil(t *testing.T) {
	t.Setenv("CI", "true")
	if NewTerminal(os.Stderr, true).isTTY {
		t.Fatalf("CI env should force non-tty")
	}
	var tn *Terminal
	tn.RunStart(1, 2, 3)
	tn.FileStart("a", 1)
	tn.FileProgress(0, 0, 0)
	tn.FileFinish(true, 0)
	tn.RunFinish(true, 0)
}
