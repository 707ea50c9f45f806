package entropy

import "entmerge/pkg/contract"

// 测试用内置符号集（与 registry.Builtin 保持一致，避免测试依赖注册表包）。
var (
	binarySet = contract.SymbolSet{Name: "binary", Symbols: []string{"0", "1"}, WithReplacement: true}
	coinSet   = contract.SymbolSet{Name: "coin", Symbols: []string{"H", "T"}, WithReplacement: true}
	diceSet   = contract.SymbolSet{Name: "dice", Symbols: []string{"1", "2", "3", "4", "5", "6"}, WithReplacement: true}
	cardsSet  = contract.SymbolSet{Name: "cards", Symbols: deck(), WithReplacement: false}
)

func deck() []string {
	var out []string
	for _, suit := range "CDHS" {
		for _, v := range "23456789TJQKA" {
			out = append(out, string(v)+string(suit))
		}
	}
	return out
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

// bits 将 "0101" 形式的期望值转为 []int。
func bits(s string) []int {
	out := make([]int, 0, len(s))
	for _, r := range s {
		out = append(out, int(r-'0'))
	}
	return out
}

// 参考向量：整副牌逆序观测（base 2, ε = 2^-64）。
const reversedDeckBits = "10001101101100111001101000110110011101001101011011000010001011111100011000000111100101010100000001101001110100111010110110110101000000011000110100101101011111110"

// 参考向量：连续 120 次掷出 6（base 2, ε = 2^-64）。
const sixes120Bits = "100001110001010111000000100110011010010010011010100110110101101111111111111111111111111111111111111111111111111111111111000001100010001001110111000011011101011100111111000011110000011000001101110110100111000111011011010000100111100010001101100100"
