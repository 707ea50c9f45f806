package contract

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SymbolSet: 单一熵源的符号集定义（数据驱动，替代“每种熵源一个类型”）。
// 约束：
// - Symbols 有序且互不相同；顺序决定枚举下标，此外无语义；
// - 大小写不敏感时，折叠后仍须互不相同；
// - 符号不得为空串、不得含空白（分词以空白为界）。
type SymbolSet struct {
	Name            string   `json:"name"`
	Symbols         []string `json:"symbols"`
	WithReplacement bool     `json:"with_replacement"`
	CaseSensitive   bool     `json:"case_sensitive"`
}

// Size 返回符号个数（Disambiguator 以此衡量解释的“具体程度”）。
func (s SymbolSet) Size() int { return len(s.Symbols) }

// UniformLength 报告所有符号是否等长（按字符计），并返回该长度。
func (s SymbolSet) UniformLength() (int, bool) {
	if len(s.Symbols) == 0 {
		return 0, false
	}
	w := utf8.RuneCountInString(s.Symbols[0])
	for _, sym := range s.Symbols[1:] {
		if utf8.RuneCountInString(sym) != w {
			return 0, false
		}
	}
	return w, true
}

// Fold 按符号集的大小写策略归一文本；大小写敏感时原样返回。
// cases.Caser 有状态，不可跨 goroutine 共享，因此每次新建。
func (s SymbolSet) Fold(text string) string {
	if s.CaseSensitive {
		return text
	}
	return cases.Upper(language.Und).String(text)
}

// Validate 校验定义本身（与任何观测无关）。
func (s SymbolSet) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: symbol set name empty", ErrInvalidInput)
	}
	if len(s.Symbols) == 0 {
		return fmt.Errorf("%w: symbol set %q has no symbols", ErrInvalidInput, s.Name)
	}
	seen := make(map[string]struct{}, len(s.Symbols))
	for i, sym := range s.Symbols {
		if sym == "" {
			return fmt.Errorf("%w: symbol set %q: symbol #%d empty", ErrInvalidInput, s.Name, i)
		}
		if strings.IndexFunc(sym, unicode.IsSpace) >= 0 {
			return fmt.Errorf("%w: symbol set %q: symbol %q contains whitespace", ErrInvalidInput, s.Name, sym)
		}
		k := s.Fold(sym)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: symbol set %q: duplicate symbol %q", ErrInvalidInput, s.Name, sym)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// Clone 深拷贝，避免调用方与注册表共享底层切片。
func (s SymbolSet) Clone() SymbolSet {
	out := s
	out.Symbols = append([]string(nil), s.Symbols...)
	return out
}
