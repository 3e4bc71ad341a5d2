// Package minsub 求满足单调谓词的最小子序列。
package minsub

// Minimize 返回 seq 中满足 f 的最小子序列（保持相对顺序）。
//
// 前提（由调用方保证，运行时不检查）：
// - seq 中元素互不相同
// - 单调：x 是 y 的子序列且 f(x) 成立 => f(y) 成立
// - 链：任意两个满足 f 的子序列必有一个是另一个的子序列（因此最小解唯一）
//
// 若 f 对 seq 本身都不成立，返回 (nil, false)。
// 前提被破坏时结果未必最小，但不会 panic。
//
// 逐个尝试删除元素，删除后 f 仍成立就提交；直到一整轮没有删除为止。
// 最坏 O(n²) 次调用 f；n 很小，保持简单。
func Minimize[T comparable](f func([]T) bool, seq []T) ([]T, bool) {
	// 最常见的两种情况先判断。
	if f([]T{}) {
		return []T{}, true
	}
	if !f(clone(seq)) {
		return nil, false
	}

	current := clone(seq)
	for changed := true; changed; {
		changed = false
		for i := 0; i < len(current); {
			candidate := without(current, i)
			if f(clone(candidate)) {
				current = candidate
				changed = true
				continue
			}
			i++
		}
	}
	return current, true
}

// without 返回去掉下标 i 后的新切片（不修改 s）。
func without[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// clone 避免 f 持有或修改内部状态。
func clone[T any](s []T) []T {
	return append(make([]T, 0, len(s)), s...)
}
