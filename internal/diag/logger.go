package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jrick/logrotate/rotator"
)

// 级别定义
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel 解析级别名；未知值按 info 处理。
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// ValidLevel 报告 s 是否为合法级别名。
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// Logger 为最小结构化日志器：单行 JSON 输出到 sink（默认 stderr）。
// 事件只携带来源名、行号、计数与耗时，从不携带观测文本或结果数字。
type Logger struct {
	corrID string
	level  Level
	sink   io.Writer
	mu     sync.Mutex
}

// NewLogger 以 level 初始化，输出到 w；w 为 nil 时写 stderr。
func NewLogger(corrID, level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{corrID: corrID, level: ParseLevel(level), sink: w}
}

// 轮转参数：单文件 10MiB，保留 3 份。
const (
	rotateThresholdKB = 10 * 1024
	rotateMaxRolls    = 3
)

// OpenLogFile 在 dir 下打开按大小轮转的日志文件 entmerge.log。
func OpenLogFile(dir string) (io.WriteCloser, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	r, err := rotator.New(filepath.Join(dir, "entmerge.log"), rotateThresholdKB, false, rotateMaxRolls)
	if err != nil {
		return nil, fmt.Errorf("open log rotator: %w", err)
	}
	return r, nil
}

// Enabled 报告给定级别是否会被输出。
func (l *Logger) Enabled(lv Level) bool { return l != nil && lv >= l.level }

// Event 为标准事件结构。
type Event struct {
	Level  string            `json:"level"`
	TS     string            `json:"ts"`
	CorrID string            `json:"corr_id"`
	Comp   string            `json:"comp"`
	Stage  string            `json:"stage"` // start|finish|error
	Code   string            `json:"code,omitempty"`
	DurMS  int64             `json:"dur_ms,omitempty"`
	Count  int64             `json:"count,omitempty"`
	FileID string            `json:"file_id,omitempty"`
	Line   int64             `json:"line,omitempty"`
	Msg    string            `json:"msg"`
	KV     map[string]string `json:"kv,omitempty"`
}

func (l *Logger) log(lv Level, ev Event) {
	if !l.Enabled(lv) {
		return
	}
	ev.Level = lv.String()
	ev.TS = NowUTC()
	ev.CorrID = l.corrID
	b, _ := json.Marshal(ev)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.sink.Write(append(b, '\n')); err != nil {
		// 后备：写 stderr
		fmt.Fprintf(os.Stderr, "logger sink error: %v\n", err)
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file_id/line 的 start。
func (l *Logger) StartWith(comp, msg, fileID string, line int64) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", FileID: fileID, Line: line, Msg: msg})
	return &Timer{l: l, comp: comp, fileID: fileID, line: line, t0: time.Now()}
}

// StartWithKV 记录带 file_id/line 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, fileID string, line int64, kv map[string]string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", FileID: fileID, Line: line, Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, fileID: fileID, line: line, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", 0, nil)
}

// ErrorWith 支持 file_id/line。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID string, line int64) {
	l.ErrorWithKV(comp, code, msg, durSince, fileID, line, nil)
}

// ErrorWithKV 支持附带键值对（例如候选符号集名称）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, fileID string, line int64, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, FileID: fileID, Line: line, KV: kv})
}

// Warn 记录 warn 级别的单点事件。
func (l *Logger) Warn(comp, msg string, kv map[string]string) {
	l.log(Warn, Event{Comp: comp, Stage: "finish", Msg: msg, KV: kv})
}

// InfoFinish 在已有起点的情况下记录 finish。
func (l *Logger) InfoFinish(comp, msg string, start time.Time, count int64) {
	l.log(Info, Event{Comp: comp, Stage: "finish", DurMS: time.Since(start).Milliseconds(), Count: count, Msg: msg})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	line   int64
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(Info, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, FileID: t.fileID, Line: t.line, Msg: msg})
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, fileID string, line int64, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "start", FileID: fileID, Line: line, Msg: msg, KV: kv})
}
