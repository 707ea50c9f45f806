package config

import (
	"encoding/json"

	"entmerge/pkg/contract"
)

// DefaultTemplateConfig 返回一个可直接运行的默认配置模板：
// - 默认输入为 STDIN（"-"），256 位二进制输出，偏差阈值 2^-64；
// - 组件名采用仓库内置实现；
// - 选项给出全部键与中性默认值；
// - 附一个自定义符号集示例（八面骰）。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	cfg.Inputs = []string{"-"}
	cfg.SymbolSets = []contract.SymbolSet{
		{Name: "d8", Symbols: []string{"1", "2", "3", "4", "5", "6", "7", "8"}, WithReplacement: true},
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exts": []
}`)
	cfg.Options.Splitter = json.RawMessage(`{
  "max_line_bytes": 65536,
  "comment_prefix": "#"
}`)
	cfg.Options.Formatter = json.RawMessage(`{
  "separator": ", "
}`)
	return cfg
}
