package contract

// FileID: 逻辑输入源 ID（文件路径或 "stdin"，需规范化，跨平台一致）。
type FileID string

// Index: 单输入源内稳定递增的行号（0..n-1，跳过的空行/注释行同样占号）。
type Index int64

// Record: 一行原始观测文本（不可跨文件）。
// 约束：
// - FileID 一致；
// - Index 严格递增；
// - Text 已去除首尾空白与行尾 CR，不做其他清洗。
type Record struct {
	Index  Index
	FileID FileID
	Text   string
}

// Contribution: 单行解码结果（Disambiguator 输出的只读视图）。
// Digits 为该行折叠后的 base 进制数字序列；Source 仅用于诊断输出。
type Contribution struct {
	FileID   FileID
	Index    Index
	Source   string
	Observed int
	Digits   []int
}
