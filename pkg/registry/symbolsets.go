package registry

import (
	"fmt"

	"entmerge/pkg/contract"
)

// Registry: 显式装配的符号集注册表。
// 进程启动时构造一次，按引用传入解码层；禁止导入期副作用与目录扫描。
// Register 非并发安全：装配完成后只读使用。
type Registry struct {
	sets   []contract.SymbolSet
	byName map[string]int
}

// New 依次注册 sets；任一定义非法或重名即失败。
func New(sets ...contract.SymbolSet) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(sets))}
	for _, s := range sets {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Default 返回仅含内置符号集的注册表。
func Default() *Registry {
	r, err := New(Builtin()...)
	if err != nil {
		// 内置定义在测试中校验，不应失败。
		panic(err)
	}
	return r
}

// Register 校验并追加一个定义（保留注册顺序）。
func (r *Registry) Register(s contract.SymbolSet) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, dup := r.byName[s.Name]; dup {
		return fmt.Errorf("%w: symbol set %q already registered", contract.ErrInvalidInput, s.Name)
	}
	r.byName[s.Name] = len(r.sets)
	r.sets = append(r.sets, s.Clone())
	return nil
}

// Lookup 按名称查找（返回副本）。
func (r *Registry) Lookup(name string) (contract.SymbolSet, bool) {
	i, ok := r.byName[name]
	if !ok {
		return contract.SymbolSet{}, false
	}
	return r.sets[i].Clone(), true
}

// Sets 按注册顺序返回全部定义（副本）。
func (r *Registry) Sets() []contract.SymbolSet {
	out := make([]contract.SymbolSet, len(r.sets))
	for i, s := range r.sets {
		out[i] = s.Clone()
	}
	return out
}

// Names 按注册顺序返回名称。
func (r *Registry) Names() []string {
	out := make([]string, len(r.sets))
	for i, s := range r.sets {
		out[i] = s.Name
	}
	return out
}

// Len 返回已注册定义数。
func (r *Registry) Len() int { return len(r.sets) }

// Builtin 返回内置符号集：binary、coin、dice（放回）与 cards（52 张，不放回）。
func Builtin() []contract.SymbolSet {
	return []contract.SymbolSet{
		{Name: "binary", Symbols: []string{"0", "1"}, WithReplacement: true},
		{Name: "coin", Symbols: []string{"H", "T"}, WithReplacement: true},
		{Name: "dice", Symbols: []string{"1", "2", "3", "4", "5", "6"}, WithReplacement: true},
		{Name: "cards", Symbols: Deck(), WithReplacement: false},
	}
}

// Deck 返回 52 张牌的代码（点数+花色），花色优先：2C..AC, 2D..AD, 2H..AH, 2S..AS。
// 点数共 13 个，不含 "1"；按 "123456789TJQKA"（14 个点数，56 张）计时，
// 事件空间为 56!，可提取位数与 52 张不同，不可混用两者的参考值。
func Deck() []string {
	const values, suits = "23456789TJQKA", "CDHS"
	out := make([]string, 0, len(values)*len(suits))
	for _, s := range suits {
		for _, v := range values {
			out = append(out, string(v)+string(s))
		}
	}
	return out
}
