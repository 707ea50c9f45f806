package config

import (
	"encoding/json"

	"entmerge/pkg/contract"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Inputs: 观测文件（或 "-" 表示 STDIN）。prompt reader 忽略该项。
	Inputs []string `json:"inputs"`
	// Length: 输出数字个数；nil 表示未设置（0 与负数是显式值，运行期报熵不足）。
	// Base: 输出进制。
	Length *int `json:"length"`
	Base   int  `json:"base"`
	// Bias: 偏差阈值文本，接受 "2^-64"、"1/1000"、"0.001" 等写法。
	Bias        string  `json:"bias"`
	Concurrency int     `json:"concurrency"`
	Logging     Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`
	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`

	// SymbolSets: 自定义符号集，追加在内置符号集之后。
	SymbolSets []contract.SymbolSet `json:"symbol_sets"`
	// DisableBuiltins: 为 true 时仅使用 SymbolSets。
	DisableBuiltins bool `json:"disable_builtins"`
}

// Logging: 日志级别与可选的日志目录（为空写 stderr）。
type Logging struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `json:"reader"`
	Splitter  string `json:"splitter"`
	Formatter string `json:"formatter"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader    json.RawMessage `json:"reader"`
	Splitter  json.RawMessage `json:"splitter"`
	Formatter json.RawMessage `json:"formatter"`
}
