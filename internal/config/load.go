package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"entmerge/internal/entropy"
	"entmerge/pkg/contract"
)

// EnvPrefix 为全部环境变量覆盖项的公共前缀。
const EnvPrefix = "ENTMERGE_"

// DefaultLength 为未设置 length 时的输出数字个数。
const DefaultLength = 256

// Int 返回 v 的指针，用于填写可选数值字段。
func Int(v int) *int { return &v }

// LengthOf 返回生效的输出长度；未设置时为 DefaultLength。
func LengthOf(cfg Config) int {
	if cfg.Length == nil {
		return DefaultLength
	}
	return *cfg.Length
}

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Length:      Int(DefaultLength),
		Base:        2,
		Bias:        fmt.Sprintf("2^-%d", entropy.DefaultBiasBits),
		Concurrency: 1,
		Logging:     Logging{Level: "warn"},
		Components: Components{
			Reader:    "fs",
			Splitter:  "lines",
			Formatter: "list",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。零值视为未覆盖；
// Length 以 nil 表示未覆盖，显式的 0 也会覆盖。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if over.Length != nil {
		out.Length = Int(*over.Length)
	}
	if over.Base != 0 {
		out.Base = over.Base
	}
	if strings.TrimSpace(over.Bias) != "" {
		out.Bias = strings.TrimSpace(over.Bias)
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if strings.TrimSpace(over.Logging.Level) != "" {
		out.Logging.Level = strings.TrimSpace(over.Logging.Level)
	}
	if strings.TrimSpace(over.Logging.Dir) != "" {
		out.Logging.Dir = strings.TrimSpace(over.Logging.Dir)
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Splitter != "" {
		out.Components.Splitter = over.Components.Splitter
	}
	if over.Components.Formatter != "" {
		out.Components.Formatter = over.Components.Formatter
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Splitter) > 0 {
		out.Options.Splitter = cloneRaw(over.Options.Splitter)
	}
	if len(over.Options.Formatter) > 0 {
		out.Options.Formatter = cloneRaw(over.Options.Formatter)
	}

	// 符号集（整体替换）
	if len(over.SymbolSets) > 0 {
		out.SymbolSets = make([]contract.SymbolSet, len(over.SymbolSets))
		for i, s := range over.SymbolSets {
			out.SymbolSets[i] = s.Clone()
		}
	}
	if over.DisableBuiltins {
		out.DisableBuiltins = true
	}
	return out
}

// envOverlay 为 ENV 原始值；指针字段区分“未设置”与“显式设置”。
type envOverlay struct {
	Inputs          []string `env:"INPUTS" envSeparator:","`
	Length          *int     `env:"LENGTH"`
	Base            *int     `env:"BASE"`
	Bias            *string  `env:"BIAS"`
	Concurrency     *int     `env:"CONCURRENCY"`
	LogLevel        *string  `env:"LOG_LEVEL"`
	LogDir          *string  `env:"LOG_DIR"`
	Reader          *string  `env:"COMPONENTS_READER"`
	Splitter        *string  `env:"COMPONENTS_SPLITTER"`
	Formatter       *string  `env:"COMPONENTS_FORMATTER"`
	DisableBuiltins *bool    `env:"DISABLE_BUILTINS"`
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（前缀 ENTMERGE_）。
// 支持：INPUTS, LENGTH, BASE, BIAS, CONCURRENCY, LOG_LEVEL, LOG_DIR,
// COMPONENTS_{READER,SPLITTER,FORMATTER}, DISABLE_BUILTINS。
// 空值视为未设置；数值无法解析时报错。
func EnvOverlay(environ []string) (Config, error) {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 || !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		if v := strings.TrimSpace(kv[eq+1:]); v != "" {
			vars[kv[:eq]] = v
		}
	}
	var raw envOverlay
	if err := env.ParseWithOptions(&raw, env.Options{Environment: vars, Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	var over Config
	over.Inputs = splitComma(strings.Join(raw.Inputs, ","))
	over.Length = raw.Length
	if raw.Base != nil {
		over.Base = *raw.Base
	}
	if raw.Concurrency != nil {
		over.Concurrency = *raw.Concurrency
	}
	over.Bias = deref(raw.Bias)
	over.Logging.Level = deref(raw.LogLevel)
	over.Logging.Dir = deref(raw.LogDir)
	over.Components.Reader = deref(raw.Reader)
	over.Components.Splitter = deref(raw.Splitter)
	over.Components.Formatter = deref(raw.Formatter)
	if raw.DisableBuiltins != nil {
		over.DisableBuiltins = *raw.DisableBuiltins
	}
	return over, nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
