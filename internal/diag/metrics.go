package diag

import (
	"strconv"
	"strings"
	"sync"
)

// 进程内最小指标（仅计数与累计耗时，不导出到外部系统）：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}
var metrics = struct {
	mu   sync.Mutex
	ops  map[string]int64
	errs map[string]int64
	dur  map[string]int64
}{ops: map[string]int64{}, errs: map[string]int64{}, dur: map[string]int64{}}

func key(parts ...string) string { return strings.Join(parts, "/") }

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	metrics.mu.Lock()
	metrics.ops[key(comp, stage, result)]++
	metrics.mu.Unlock()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	metrics.mu.Lock()
	metrics.errs[key(comp, code)]++
	metrics.mu.Unlock()
}

// ObserveDuration 累计阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	metrics.mu.Lock()
	metrics.dur[key(comp, stage)] += durMS
	metrics.mu.Unlock()
}

// MetricsSnapshot 以扁平键值返回当前指标，键形如 "op_total/decode/line/success"。
func MetricsSnapshot() map[string]int64 {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	out := make(map[string]int64, len(metrics.ops)+len(metrics.errs)+len(metrics.dur))
	for k, v := range metrics.ops {
		out["op_total/"+k] = v
	}
	for k, v := range metrics.errs {
		out["error_total/"+k] = v
	}
	for k, v := range metrics.dur {
		out["op_duration_ms/"+k] = v
	}
	return out
}

// MetricsKV 将快照转为日志可用的字符串键值。
func MetricsKV() map[string]string {
	snap := MetricsSnapshot()
	kv := make(map[string]string, len(snap))
	for k, v := range snap {
		kv[k] = strconv.FormatInt(v, 10)
	}
	return kv
}

// ResetMetrics 清空全部指标（测试与多次运行之间使用）。
func ResetMetrics() {
	metrics.mu.Lock()
	metrics.ops = map[string]int64{}
	metrics.errs = map[string]int64{}
	metrics.dur = map[string]int64{}
	metrics.mu.Unlock()
}
