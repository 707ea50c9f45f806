package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"entmerge/internal/diag"
	"entmerge/internal/entropy"
	"entmerge/pkg/contract"
)

// - 单点并发：仅此层管理并发；entropy 与插件均为同步、无内部并发。
// - 顺序门闩：同一输入源的行按 Index 严格递增提交；乱序结果暂存，连续冲刷。
//   折叠位置取决于累计数字位置，因此拼接顺序必须与行序一致。
// - 首错取消：任一行出错即记录首错并 cancel 整体；排空后返回该错误。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader    contract.Reader
	Splitter  contract.Splitter
	Formatter contract.Formatter
}

// Settings 运行期配置。
type Settings struct {
	Inputs []string
	// Base 输出进制（>=2）；Length 最终输出的数字个数（小于 1 时折叠报熵不足）。
	Base   int
	Length int
	// Bias 偏差阈值；nil 表示 entropy.DefaultBias。
	Bias *big.Rat
	// Sets 参与解释的符号集（注册顺序）。
	Sets        []contract.SymbolSet
	Concurrency int
	// Out 接收格式化后的最终结果；Report 接收逐行报告与合计（nil 表示不输出报告）。
	Out    io.Writer
	Report io.Writer
}

// Summary 为一次收集的结果。
type Summary struct {
	// Contributions 按输入源、行序排列。
	Contributions []contract.Contribution
	// Digits 为全部贡献按序拼接的原始数字（尚未折叠）。
	Digits []int
	// Files 为产出过记录的输入源数。
	Files int
}

// Run 执行完整流水线：Reader → Splitter → Decoder(并发) → 顺序门闩 → Reduce → Formatter。
// 报告先于结果写出；熵不足时报告照常写出，随后返回 ErrInsufficientEntropy。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) error {
	if err := sanity(comp, set); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	if logger == nil {
		logger = diag.NewLogger("", "error", io.Discard)
	}
	out := set.Out
	if out == nil {
		out = os.Stdout
	}
	runStart := time.Now()
	rtimer := logger.StartWithKV("pipeline", "run", "", 0, map[string]string{
		"base":        strconv.Itoa(set.Base),
		"length":      strconv.Itoa(set.Length),
		"sets":        strconv.Itoa(len(set.Sets)),
		"concurrency": strconv.Itoa(set.Concurrency),
	})
	term := diag.GetTerminal()
	term.RunStart(set.Concurrency, set.Base, set.Length)
	ok := false
	defer func() {
		term.RunFinish(ok, time.Since(runStart))
		diag.ObserveDuration("pipeline", "run", time.Since(runStart).Milliseconds())
	}()

	sum, err := Collect(ctx, comp, set, logger)
	if err != nil {
		return err
	}
	if set.Report != nil {
		if err := WriteReport(set.Report, sum); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}

	digits, err := entropy.Reduce(set.Base, sum.Digits, set.Length)
	if err != nil {
		code := diag.Classify(err)
		logger.ErrorWithKV("reducer", string(code), "reduce failed", &runStart, "", 0, map[string]string{
			"have": strconv.Itoa(len(sum.Digits)),
			"need": strconv.Itoa(set.Length),
		})
		diag.IncOp("reducer", "error", "error")
		diag.IncError("reducer", string(code))
		return fmt.Errorf("reduce: %w", err)
	}
	diag.IncOp("reducer", "finish", "success")
	if err := comp.Formatter.Format(out, set.Base, digits); err != nil {
		code := diag.Classify(err)
		logger.Error("formatter", string(code), "format failed", &runStart)
		diag.IncError("formatter", string(code))
		return fmt.Errorf("formatter format: %w", err)
	}
	rtimer.Finish("run", int64(len(sum.Digits)))
	ok = true
	return nil
}

// WriteReport 写出逐行报告与合计。多个输入源时每行带上输入源前缀。
func WriteReport(w io.Writer, sum Summary) error {
	var b strings.Builder
	multi := sum.Files > 1
	for _, c := range sum.Contributions {
		if multi {
			b.WriteString(string(c.FileID))
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "line %d: %d symbols from %s\n", c.Index+1, len(c.Digits), c.Source)
	}
	fmt.Fprintf(&b, "total: %d symbols\n", len(sum.Digits))
	_, err := io.WriteString(w, b.String())
	return err
}

// Collect 读取全部输入并逐行解码，返回按序拼接的贡献。
func Collect(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Summary, error) {
	if logger == nil {
		logger = diag.NewLogger("", "error", io.Discard)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dec := entropy.Decoder{Sets: set.Sets, Bias: set.Bias}
	var sum Summary

	err := comp.Reader.Iterate(ctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		stimer := logger.StartWith("splitter", "split", string(fid), 0)
		recs, err := comp.Splitter.Split(ctx, fid, rc)
		if err != nil {
			code := diag.Classify(err)
			logger.ErrorWith("splitter", string(code), "split failed", nil, string(fid), 0)
			diag.IncOp("splitter", "error", "error")
			diag.IncError("splitter", string(code))
			return fmt.Errorf("%s: %w", fid, err)
		}
		stimer.Finish("split", int64(len(recs)))
		diag.IncOp("splitter", "finish", "success")
		if len(recs) == 0 {
			return nil
		}
		sum.Files++
		return decodeFile(ctx, cancel, dec, fid, recs, set, logger, &sum)
	})
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// decodeFile 在有界 worker 池上解码一个输入源的全部行，经顺序门闩按 Index 提交。
func decodeFile(ctx context.Context, cancel context.CancelFunc, dec entropy.Decoder, fid contract.FileID, recs []contract.Record, set Settings, logger *diag.Logger, sum *Summary) error {
	term := diag.GetTerminal()
	term.FileStart(string(fid), len(recs))
	fileStart := time.Now()
	ok := false
	defer func() { term.FileFinish(ok, time.Since(fileStart)) }()

	type job struct{ pos int }
	type res struct {
		pos int
		r   entropy.Result
		err error
	}
	nWorkers := set.Concurrency
	if nWorkers > len(recs) {
		nWorkers = len(recs)
	}
	if nWorkers < 1 {
		nWorkers = 1
	}
	// 有界通道：2×并发度，形成自然背压
	inCh := make(chan job, nWorkers*2)
	outCh := make(chan res, nWorkers*2)

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for j := range inCh {
			if ctx.Err() != nil {
				outCh <- res{pos: j.pos, err: ctx.Err()}
				continue
			}
			rec := recs[j.pos]
			r, err := dec.Decode(rec.Text, set.Base)
			if err != nil {
				err = fmt.Errorf("%s:%d: %w", fid, rec.Index+1, err)
			}
			outCh <- res{pos: j.pos, r: r, err: err}
		}
	}
	wg.Add(nWorkers)
	for i := 0; i < nWorkers; i++ {
		go worker()
	}
	// 生产者
	go func() {
		defer close(inCh)
		for i := range recs {
			select {
			case <-ctx.Done():
				return
			case inCh <- job{pos: i}:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outCh)
	}()

	// 提交门闩：按行序连续冲刷
	expect := 0
	buf := make(map[int]entropy.Result)
	var firstErr error
	done, symbols := 0, 0
	for r := range outCh {
		done++
		if r.err != nil {
			if firstErr == nil || (errors.Is(firstErr, context.Canceled) && !errors.Is(r.err, context.Canceled)) {
				firstErr = r.err
			}
			code := diag.Classify(r.err)
			if code != diag.CodeCancel {
				logger.ErrorWithKV("decode", string(code), "decode failed", nil, string(fid), int64(recs[r.pos].Index+1), nil)
				diag.IncOp("decode", "line", "error")
				diag.IncError("decode", string(code))
			}
			cancel()
			// 不立刻 return，继续排空 outCh 以便有序结束
			continue
		}
		if firstErr != nil {
			continue
		}
		buf[r.pos] = r.r
		for {
			got, ready := buf[expect]
			if !ready {
				break
			}
			rec := recs[expect]
			sum.Contributions = append(sum.Contributions, contract.Contribution{
				FileID:   fid,
				Index:    rec.Index,
				Source:   got.Source,
				Observed: got.Observed,
				Digits:   got.Digits,
			})
			sum.Digits = append(sum.Digits, got.Digits...)
			symbols += len(got.Digits)
			if logger.Enabled(diag.Debug) {
				logger.DebugStart("decode", "line", string(fid), int64(rec.Index+1), map[string]string{
					"source":     got.Source,
					"observed":   strconv.Itoa(got.Observed),
					"symbols":    strconv.Itoa(len(got.Digits)),
					"candidates": strings.Join(got.Candidates, ","),
				})
			}
			diag.IncOp("decode", "line", "success")
			delete(buf, expect)
			expect++
		}
		term.FileProgress(done, len(recs), symbols)
	}
	if firstErr != nil {
		return firstErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ok = true
	return nil
}

// sanity: 最小组件与参数完整性校验。
func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Splitter == nil || c.Formatter == nil {
		return fmt.Errorf("%w: missing components", contract.ErrInvalidInput)
	}
	if s.Base < 2 {
		return fmt.Errorf("%w: base %d < 2", contract.ErrInvalidInput, s.Base)
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency %d < 1", contract.ErrInvalidInput, s.Concurrency)
	}
	if len(s.Sets) == 0 {
		return fmt.Errorf("%w: no symbol sets", contract.ErrInvalidInput)
	}
	if s.Bias != nil && s.Bias.Sign() < 0 {
		return fmt.Errorf("%w: negative bias", contract.ErrInvalidInput)
	}
	return nil
}
