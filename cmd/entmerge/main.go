package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/decred/dcrd/crypto/rand"
	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	cfgpkg "entmerge/internal/config"
	"entmerge/internal/diag"
	"entmerge/internal/entropy"
	"entmerge/internal/pipeline"
)

var pipelineRun = pipeline.Run

// 输出目标；测试中替换。
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// 退出码
const (
	exitOK     = 0
	exitRun    = 1
	exitUsage  = 2
	exitConfig = 3
)

// 默认表格行数（有放回符号集；不放回截断为符号数）。
const defaultTableMax = 32

type options struct {
	Entropy     *int   `short:"H" long:"entropy" value-name:"N" description:"输出数字个数（覆盖配置；默认 256）"`
	Base        int    `short:"b" long:"base" value-name:"B" description:"输出进制（覆盖配置；默认 2）"`
	Bias        string `long:"bias" value-name:"EPS" description:"可接受的最大偏差，如 2^-64、1/1000、0.001（默认 2^-64）"`
	Config      string `short:"c" long:"config" value-name:"FILE" description:"配置文件路径（JSON）；缺省读取 ./config.json（若存在）"`
	InitConfig  string `long:"init-config" value-name:"DIR" optional:"yes" optional-value:"." description:"在指定目录生成 config.json 与 .env 模板（不覆盖）；不带值时为当前目录"`
	Concurrency int    `short:"j" long:"concurrency" value-name:"N" description:"每个输入的解码并发度（覆盖配置）"`
	Format      string `long:"format" value-name:"NAME" description:"输出格式：list|digits|hex（覆盖配置）"`
	Hidden      bool   `long:"hidden" description:"从终端逐行录入观测，不回显；空行结束"`
	Table       string `long:"table" value-name:"SOURCE" description:"打印指定熵源在不同抽取次数下可提取的位数后退出"`
	TableMax    int    `long:"table-max" value-name:"N" description:"--table 的最大抽取次数（默认 32；不放回时不超过符号数）"`
	ListSources bool   `long:"list-sources" description:"列出可用熵源后退出"`
	LogLevel    string `long:"log-level" value-name:"LEVEL" description:"日志级别 debug|info|warn|error（覆盖配置）"`
	NoStatus    bool   `long:"no-status" description:"关闭终端状态提示（stderr）"`
}

// 位置参数为输入（文件/目录 或 "-" 表示 STDIN，不能与其他输入混用）；缺省读 STDIN。
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	start := time.Now()
	corrID := genCorrID()
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")
	// 先以默认级别占位，合并配置后按最终 level 重建
	logger := diag.NewLogger(corrID, "warn", stderr)

	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "entmerge"
	parser.Usage = "[OPTIONS] [FILE|DIR|-]..."
	inputs, err := parser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fprintf(stdout, "%s\n", err)
			return exitOK
		}
		fprintf(stderr, "参数错误: %v\n", err)
		parser.WriteHelp(stderr)
		return exitUsage
	}
	if opts.Hidden && len(inputs) > 0 {
		fprintf(stderr, "参数错误: --hidden 不能与输入文件同时使用\n")
		return exitUsage
	}
	if opts.TableMax < 0 {
		fprintf(stderr, "参数错误: --table-max 不能为负\n")
		return exitUsage
	}

	// --init-config: 生成模板并退出
	if dir := strings.TrimSpace(opts.InitConfig); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fprintf(stderr, "生成默认配置失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "init config", &start)
			return exitConfig
		}
		if err := writeConfig(filepath.Join(dir, "config.json"), cfgpkg.DefaultTemplateConfig()); err != nil {
			fprintf(stderr, "生成默认配置失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "init config", &start)
			return exitConfig
		}
		if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
			fprintf(stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
		}
		return exitOK
	}

	cfg, code := loadConfig(opts, inputs, logger, start)
	if code != exitOK {
		return code
	}

	// 使用最终配置中的日志级别与落点重建 logger
	var sink io.Writer = stderr
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		f, err := diag.OpenLogFile(dir)
		if err != nil {
			fprintf(stderr, "日志文件打开失败: %v\n", err)
			return exitConfig
		}
		defer f.Close()
		sink = f
	}
	logger = diag.NewLogger(corrID, cfg.Logging.Level, sink)
	warnLooseBias(logger, cfg)

	if opts.ListSources {
		return listSources(cfg)
	}
	if name := strings.TrimSpace(opts.Table); name != "" {
		return printTable(cfg, name, opts.TableMax)
	}

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fprintf(stderr, "装配失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "assemble", &start)
		return exitConfig
	}
	set.Out = stdout
	set.Report = stdout

	// 终端信息提示（非日志）
	term := diag.NewTerminal(stderr, !opts.NoStatus)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	if logger.Enabled(diag.Debug) {
		logger.DebugStart("config", "effective", "", 0, map[string]string{
			"inputs_count": fmt.Sprintf("%d", len(cfg.Inputs)),
			"length":       fmt.Sprintf("%d", cfgpkg.LengthOf(cfg)),
			"base":         fmt.Sprintf("%d", cfg.Base),
			"bias":         cfg.Bias,
			"concurrency":  fmt.Sprintf("%d", cfg.Concurrency),
			"sources":      fmt.Sprintf("%d", len(set.Sets)),
			"reader":       cfg.Components.Reader,
			"splitter":     cfg.Components.Splitter,
			"formatter":    cfg.Components.Formatter,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t := logger.Start("pipeline", "run")
	err = pipelineRun(ctx, comp, set, logger)
	if logger.Enabled(diag.Debug) {
		logger.DebugStart("metrics", "snapshot", "", 0, diag.MetricsKV())
	}
	if err != nil {
		code := string(diag.Classify(err))
		logger.Error("pipeline", code, "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(stderr, "运行失败: %v\n", err)
		}
		return exitRun
	}
	t.Finish("run", 0)
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	return exitOK
}

// warnLooseBias 在偏差阈值宽于默认 2^-64 时提示。
func warnLooseBias(logger *diag.Logger, cfg cfgpkg.Config) {
	bias, err := entropy.ParseBias(cfg.Bias)
	if err != nil || bias.Cmp(entropy.DefaultBias()) <= 0 {
		return
	}
	logger.Warn("config", "bias looser than default", map[string]string{
		"bias":    cfg.Bias,
		"default": fmt.Sprintf("2^-%d", entropy.DefaultBiasBits),
	})
}

// loadConfig 按 CLI > ENV > JSON > 默认 合并并校验。
func loadConfig(opts options, inputs []string, logger *diag.Logger, start time.Time) (cfgpkg.Config, int) {
	// JSON 配置（文件或 ENV: ENTMERGE_CONFIG_JSON）
	var cfgJSON []byte
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		cfgJSON = []byte(s)
	}
	path := opts.Config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}

	cfg := cfgpkg.Defaults()
	if path != "" || len(cfgJSON) > 0 {
		base, err := cfgpkg.LoadJSON(path, cfgJSON)
		if err != nil {
			fprintf(stderr, "配置解析失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "load json", &start)
			return cfg, exitConfig
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		fprintf(stderr, "环境变量解析失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "load env", &start)
		return cfg, exitConfig
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var overCLI cfgpkg.Config
	overCLI.Inputs = inputs
	overCLI.Length = opts.Entropy
	overCLI.Base = opts.Base
	overCLI.Bias = opts.Bias
	overCLI.Concurrency = opts.Concurrency
	overCLI.Logging.Level = opts.LogLevel
	overCLI.Components.Formatter = opts.Format
	if opts.Hidden {
		overCLI.Components.Reader = "prompt"
	}
	cfg = cfgpkg.Merge(cfg, overCLI)

	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(stderr, "配置校验失败: %v\n", err)
		_ = dumpConfig(cfg)
		logger.Error("config", string(diag.Classify(err)), "validate", &start)
		return cfg, exitConfig
	}
	return cfg, exitOK
}

func listSources(cfg cfgpkg.Config) int {
	reg, err := cfgpkg.Registry(cfg)
	if err != nil {
		fprintf(stderr, "配置校验失败: %v\n", err)
		return exitConfig
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, s := range reg.Sets() {
		mode := "with replacement"
		if !s.WithReplacement {
			mode = "without replacement"
		}
		fprintf(tw, "%s\t%d symbols\t%s\t%s\n", s.Name, s.Size(), mode, preview(s.Symbols, 8))
	}
	if err := tw.Flush(); err != nil {
		return exitRun
	}
	return exitOK
}

func printTable(cfg cfgpkg.Config, name string, max int) int {
	reg, err := cfgpkg.Registry(cfg)
	if err != nil {
		fprintf(stderr, "配置校验失败: %v\n", err)
		return exitConfig
	}
	src, ok := reg.Lookup(name)
	if !ok {
		fprintf(stderr, "参数错误: 未知熵源 %q（可用: %s）\n", name, strings.Join(reg.Names(), ", "))
		return exitUsage
	}
	if max == 0 {
		max = defaultTableMax
		if !src.WithReplacement {
			max = src.Size()
		}
	}
	bias, err := entropy.ParseBias(cfg.Bias)
	if err != nil {
		fprintf(stderr, "配置校验失败: %v\n", err)
		return exitConfig
	}
	rows, err := entropy.Table(src, cfg.Base, bias, max)
	if err != nil {
		fprintf(stderr, "运行失败: %v\n", err)
		return exitRun
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fprintf(tw, "draws\tdigits\tevent space\t\n")
	for _, r := range rows {
		fprintf(tw, "%d\t%d\t%s\t\n", r.Draws, r.Digits, r.EventSpace.String())
	}
	if err := tw.Flush(); err != nil {
		return exitRun
	}
	return exitOK
}

func preview(syms []string, n int) string {
	if len(syms) <= n {
		return strings.Join(syms, " ")
	}
	return strings.Join(syms[:n], " ") + " …"
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = stderr.Write(append([]byte("有效配置:\n"), b...))
	_, _ = stderr.Write([]byte("\n"))
	return nil
}

func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = stdout.Write(append(b, '\n'))
		return err
	}
	// 不覆盖已存在文件
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}

func genCorrID() string {
	var b [16]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// loadDotEnv 将 .env 注入进程环境；文件不存在时忽略，已存在的环境变量不被覆盖。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
func writeDotEnv(path string) error {
	var b strings.Builder
	b.WriteString("# entmerge .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > JSON\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置来源（可二选一）\n")
	for _, k := range []string{"CONFIG_FILE", "CONFIG_JSON"} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 运行参数覆盖\n")
	for _, k := range []string{"INPUTS", "LENGTH", "BASE", "BIAS", "CONCURRENCY", "DISABLE_BUILTINS"} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 日志\n")
	for _, k := range []string{"LOG_LEVEL", "LOG_DIR"} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 组件选择\n")
	for _, k := range []string{"COMPONENTS_READER", "COMPONENTS_SPLITTER", "COMPONENTS_FORMATTER"} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}
