package entropy

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/jrick/bitset"

	"entmerge/pkg/contract"
)

// Counter: 一行观测在某个符号集下的解析结果（构造后不可变）。
// 每行新建，产出贡献后即丢弃。
type Counter struct {
	set     contract.SymbolSet
	symbols []string       // 按大小写策略折叠后的符号，顺序同 set.Symbols
	index   map[string]int // 折叠符号 -> 初始下标
	obs     []string       // 折叠后的观测序列
	bias    *big.Rat
}

// NewCounter 在 set 下解析 text 并校验。
// 失败返回 ErrInvalidSymbols（观测不属于该符号集）或 ErrInvalidInput（定义/偏差非法）。
// 错误信息只给出位置，不回显观测内容。
func NewCounter(text string, set contract.SymbolSet, bias *big.Rat) (*Counter, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if bias == nil {
		bias = DefaultBias()
	} else if bias.Sign() < 0 {
		return nil, fmt.Errorf("%w: bias must be >= 0", contract.ErrInvalidInput)
	}

	c := &Counter{
		set:     set.Clone(),
		symbols: make([]string, len(set.Symbols)),
		index:   make(map[string]int, len(set.Symbols)),
		bias:    new(big.Rat).Set(bias),
	}
	for i, s := range set.Symbols {
		f := set.Fold(s)
		c.symbols[i] = f
		c.index[f] = i
	}

	// 等长判定基于折叠后的符号（折叠可能改变字符数）。
	width, uniform := contract.SymbolSet{Symbols: c.symbols}.UniformLength()
	c.obs = tokenize(set.Fold(text), width, uniform)

	drawn := bitset.NewBytes(len(c.symbols))
	for pos, tok := range c.obs {
		i, ok := c.index[tok]
		if !ok {
			return nil, fmt.Errorf("%w: symbol #%d not in %q", contract.ErrInvalidSymbols, pos+1, set.Name)
		}
		if set.WithReplacement {
			continue
		}
		if drawn.Get(i) {
			return nil, fmt.Errorf("%w: symbol #%d repeats in %q (drawn without replacement)", contract.ErrInvalidSymbols, pos+1, set.Name)
		}
		drawn.Set(i)
	}
	return c, nil
}

// tokenize 将折叠后的文本拆为符号：等长符号集去除全部空白后按定宽切分
// （末尾不足一宽的残片原样保留，随后的成员校验会拒绝它）；否则按空白切分。
func tokenize(text string, width int, uniform bool) []string {
	if !uniform || width <= 0 {
		return strings.Fields(text)
	}
	runes := []rune(strings.Join(strings.Fields(text), ""))
	out := make([]string, 0, (len(runes)+width-1)/width)
	for i := 0; i < len(runes); i += width {
		out = append(out, string(runes[i:min(i+width, len(runes))]))
	}
	return out
}

// Set 返回解析所用的符号集（副本）。
func (c *Counter) Set() contract.SymbolSet { return c.set.Clone() }

// Len 返回观测到的符号个数。
func (c *Counter) Len() int { return len(c.obs) }

// EventSpace 返回与抽取协议及观测长度一致的等可能序列总数。
func (c *Counter) EventSpace() *big.Int {
	n, _ := c.enumerate()
	return n
}

// Rank 返回观测在事件空间内的枚举序号，位于 [0, EventSpace)。
func (c *Counter) Rank() *big.Int {
	_, r := c.enumerate()
	return r
}

// enumerate 依次累乘池大小并累积混合进制序号。
// 不放回时池为尚未抽出的符号（保持原顺序），下标为其前方未抽出的符号数。
func (c *Counter) enumerate() (n, rank *big.Int) {
	n, rank = big.NewInt(1), new(big.Int)
	size, idx := new(big.Int), new(big.Int)
	drawn := bitset.NewBytes(len(c.symbols))
	for pos, tok := range c.obs {
		i, k := c.index[tok], len(c.symbols)
		if !c.set.WithReplacement {
			i -= countBelow(drawn, i)
			k -= pos
			drawn.Set(c.index[tok])
		}
		size.SetInt64(int64(k))
		n.Mul(n, size)
		rank.Mul(rank, size)
		rank.Add(rank, idx.SetInt64(int64(i)))
	}
	return n, rank
}

// countBelow 返回 [0, i) 中已置位的个数。
func countBelow(s bitset.Bytes, i int) int {
	c := 0
	for j := 0; j < i; j++ {
		if s.Get(j) {
			c++
		}
	}
	return c
}

// RandomSymbols 将观测映射为 base 进制的近均匀数字序列。
//
//  1. 计算事件空间 n 与序号 rank；
//  2. L = EstimateLength(base, n, ε)；
//  3. 只要 n >= base，就从 rank 低位起取 rank mod base，并将 rank、n 各除以 base；
//  4. 将原始数字折叠为 L 位。
//
// 事件空间小于 base 时原始数字为空且 L == 0，返回 ErrInsufficientEntropy。
// 相同的（观测、符号集、base、ε）总是得到相同输出。
func (c *Counter) RandomSymbols(base int) ([]int, error) {
	if base < 2 {
		return nil, fmt.Errorf("%w: base %d < 2", contract.ErrInvalidInput, base)
	}
	n, rank := c.enumerate()
	l := EstimateLength(base, n, c.bias)
	return Reduce(base, extract(base, n, rank), l)
}

// extract 按低位优先取出 ⌊log_base(n)⌋ 个原始数字。
func extract(base int, n, rank *big.Int) []int {
	b := big.NewInt(int64(base))
	space := new(big.Int).Set(n)
	r := new(big.Int).Set(rank)
	d := new(big.Int)
	var out []int
	for space.Cmp(b) >= 0 {
		r.QuoRem(r, b, d)
		out = append(out, int(d.Int64()))
		space.Quo(space, b)
	}
	return out
}
