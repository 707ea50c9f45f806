// Package entropy 实现熵合并的核心算法：
//
//   - Counter：将一行观测映射为其事件空间内的唯一枚举序号（rank）；
//   - EstimateLength：在偏差阈值 ε 内计算可提取的 base 进制位数；
//   - Reduce：按位置模累加，将多余的原始数字折叠到目标长度；
//   - Decoder：在多个符号集之间选择最具体（符号最少）的解释。
//
// 事件空间与 rank 可远超机器字长（整副牌为 52!），全程使用 math/big
// 精确整数运算；偏差比较以整数下取整/上取整完成，不使用浮点。
//
// 本包为纯函数实现：无 I/O、无全局可变状态、无内部并发。
package entropy
