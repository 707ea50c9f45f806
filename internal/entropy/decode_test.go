package entropy

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"entmerge/pkg/contract"
)

func builtins() []contract.SymbolSet {
	return []contract.SymbolSet{binarySet, coinSet, diceSet, cardsSet}
}

// UT-DEC-01: 唯一解释
func TestDecodeUnique(t *testing.T) {
	tests := []struct {
		line   string
		source string
		digits []int
	}{
		{"H T H", "coin", []int{0, 1, 0}},
		{"1 0 1 1", "binary", []int{1, 1, 0, 1}},
		{"6 6", "dice", []int{1, 1}},
		{"as kd", "cards", []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			res, err := Decode(tt.line, builtins(), 2, nil)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if res.Source != tt.source || !reflect.DeepEqual(res.Digits, tt.digits) {
				t.Fatalf("unexpected result %s", spew.Sdump(res))
			}
		})
	}
}

// UT-DEC-02: 多个解释时选择最窄符号集
func TestDecodeNarrowest(t *testing.T) {
	// "1 1 1" 同时是合法的比特与骰子观测；binary 更具体
	res, err := Decode("1 1 1", builtins(), 2, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Source != "binary" || res.Observed != 3 {
		t.Fatalf("应选择 binary: %s", spew.Sdump(res))
	}
	if !reflect.DeepEqual(res.Candidates, []string{"binary", "dice"}) {
		t.Fatalf("候选列表错误: %v", res.Candidates)
	}
	// 注册顺序不影响选择
	sets := []contract.SymbolSet{diceSet, cardsSet, coinSet, binarySet}
	res2, err := Decode("1 1 1", sets, 2, nil)
	if err != nil || res2.Source != "binary" {
		t.Fatalf("逆序注册应同样选择 binary: %v %s", err, spew.Sdump(res2))
	}
}

// UT-DEC-03: 同等具体的解释 → 歧义
func TestDecodeAmbiguous(t *testing.T) {
	yesNo := contract.SymbolSet{Name: "yesno", Symbols: []string{"H", "N"}, WithReplacement: true}
	sets := []contract.SymbolSet{coinSet, yesNo, diceSet}
	_, err := Decode("H H H", sets, 2, nil)
	if !errors.Is(err, contract.ErrAmbiguousInput) {
		t.Fatalf("want ErrAmbiguousInput got %v", err)
	}
	if !strings.Contains(err.Error(), "coin") || !strings.Contains(err.Error(), "yesno") {
		t.Fatalf("错误信息应包含两个候选: %v", err)
	}
	// 不再同等：T 只属于 coin
	res, err := Decode("H T", sets, 2, nil)
	if err != nil || res.Source != "coin" {
		t.Fatalf("应唯一解析为 coin: %v", err)
	}
}

// UT-DEC-04: 无解释
func TestDecodeNoInterpretation(t *testing.T) {
	for _, line := range []string{"X Y Z", "7 8 9", "AS AS"} {
		if _, err := Decode(line, builtins(), 2, nil); !errors.Is(err, contract.ErrNoInterpretation) {
			t.Fatalf("%q: want ErrNoInterpretation got %v", line, err)
		}
	}
	if _, err := Decode("H", nil, 2, nil); !errors.Is(err, contract.ErrNoInterpretation) {
		t.Fatalf("空注册表: want ErrNoInterpretation got %v", err)
	}
}

// UT-DEC-05: 选中解释熵不足、非法定义与非法进制直接上抛
func TestDecodeErrors(t *testing.T) {
	_, err := Decode("H", []contract.SymbolSet{coinSet}, 10, nil)
	if !errors.Is(err, contract.ErrInsufficientEntropy) {
		t.Fatalf("want ErrInsufficientEntropy got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "coin:") {
		t.Fatalf("错误应带符号集名前缀: %v", err)
	}
	bad := []contract.SymbolSet{coinSet, {Name: "dup", Symbols: []string{"A", "A"}}}
	if _, err := Decode("H", bad, 2, nil); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("非法定义应上抛 ErrInvalidInput, got %v", err)
	}
	if _, err := Decode("H", builtins(), 1, nil); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("base<2 应返回 ErrInvalidInput, got %v", err)
	}
}

// UT-DEC-06: Decoder 值可复用
func TestDecoderReuse(t *testing.T) {
	d := Decoder{Sets: builtins(), Bias: BiasFromBits(32)}
	a, err := d.Decode(strings.Repeat("6", 120), 2)
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.Decode(strings.Repeat("6", 120), 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("同一 Decoder 结果不一致")
	}
	// 偏差放宽后可得到更多位
	if len(a.Digits) <= 246 {
		t.Fatalf("ε=2^-32 应多于 246 位, got %d", len(a.Digits))
	}
}
