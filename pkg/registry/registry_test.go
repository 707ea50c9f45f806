package registry

import (
	"encoding/json"
	"errors"
	"testing"

	"entmerge/pkg/contract"
)

// TestStrictUnmarshal 验证严格解码逻辑。
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	if err := strictUnmarshal(nil, &o); err != nil || o.A != 0 {
		t.Fatalf("nil 输入失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1}`), &o); err != nil || o.A != 1 {
		t.Fatalf("合法 JSON 解析失败: %v", err)
	}
	if err := strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o); err == nil {
		t.Fatalf("未知字段应报错")
	}
}

// TestFactories 遍历注册表入口：空选项可构造，未知字段报错。
func TestFactories(t *testing.T) {
	for name, f := range Reader {
		if _, err := f(json.RawMessage(`{}`)); err != nil {
			t.Fatalf("reader %s: %v", name, err)
		}
		if _, err := f(json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("reader %s 未对未知字段报错", name)
		}
	}
	for name, f := range Splitter {
		if _, err := f(json.RawMessage(`{}`)); err != nil {
			t.Fatalf("splitter %s: %v", name, err)
		}
		if _, err := f(json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("splitter %s 未对未知字段报错", name)
		}
	}
	for name, f := range Formatter {
		if _, err := f(json.RawMessage(`{}`)); err != nil {
			t.Fatalf("formatter %s: %v", name, err)
		}
		if _, err := f(json.RawMessage(`{"x":1}`)); err == nil {
			t.Fatalf("formatter %s 未对未知字段报错", name)
		}
	}
	if _, err := Formatter["digits"](json.RawMessage(`{"group":-1}`)); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("digits 负分组应报 ErrInvalidInput: %v", err)
	}
	for _, want := range []string{"fs", "prompt"} {
		if _, ok := Reader[want]; !ok {
			t.Fatalf("缺少 reader %s", want)
		}
	}
	for _, want := range []string{"list", "digits", "hex"} {
		if _, ok := Formatter[want]; !ok {
			t.Fatalf("缺少 formatter %s", want)
		}
	}
}

// TestBuiltin 内置符号集合法、顺序稳定
func TestBuiltin(t *testing.T) {
	r := Default()
	want := []string{"binary", "coin", "dice", "cards"}
	names := r.Names()
	if len(names) != len(want) {
		t.Fatalf("names=%v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names=%v want %v", names, want)
		}
	}
	cards, ok := r.Lookup("cards")
	if !ok || cards.Size() != 52 || cards.WithReplacement {
		t.Fatalf("cards 定义错误: %+v", cards)
	}
	if cards.Symbols[0] != "2C" || cards.Symbols[12] != "AC" || cards.Symbols[13] != "2D" || cards.Symbols[51] != "AS" {
		t.Fatalf("牌序应为花色优先: %v", cards.Symbols)
	}
	dice, _ := r.Lookup("dice")
	if dice.Size() != 6 || !dice.WithReplacement {
		t.Fatalf("dice 定义错误: %+v", dice)
	}
}

// TestRegister 重名与非法定义被拒绝
func TestRegister(t *testing.T) {
	r, err := New(Builtin()...)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := r.Register(contract.SymbolSet{Name: "dice", Symbols: []string{"a"}}); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("重名应报错: %v", err)
	}
	if err := r.Register(contract.SymbolSet{Name: "bad", Symbols: []string{"a", "A"}}); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("折叠后重复应报错: %v", err)
	}
	if err := r.Register(contract.SymbolSet{Name: "yesno", Symbols: []string{"Y", "N"}, WithReplacement: true}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if r.Len() != 5 || r.Names()[4] != "yesno" {
		t.Fatalf("追加顺序错误: %v", r.Names())
	}
	if _, ok := r.Lookup("nope"); ok {
		t.Fatalf("不存在的名称应查找失败")
	}
}

// TestSetsAreCopies 返回值不与注册表共享底层切片
func TestSetsAreCopies(t *testing.T) {
	r := Default()
	sets := r.Sets()
	sets[0].Symbols[0] = "X"
	again, _ := r.Lookup("binary")
	if again.Symbols[0] != "0" {
		t.Fatalf("注册表被外部修改: %v", again.Symbols)
	}
}
