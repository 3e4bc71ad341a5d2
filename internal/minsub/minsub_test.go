package minsub

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// containsInOrder 生成谓词：sub 按顺序包含 want 的全部元素。
func containsInOrder(want []int) func([]int) bool {
	return func(sub []int) bool {
		last := -1
		for _, w := range want {
			pos := -1
			for i, v := range sub {
				if v == w {
					pos = i
					break
				}
			}
			if pos <= last {
				return false
			}
			last = pos
		}
		return true
	}
}

func TestMinimize_Cases(t *testing.T) {
	cases := []struct {
		name string
		want []int
		seq  []int
	}{
		{"empty", []int{}, []int{0, 1, 2, 3}},
		{"full", []int{0, 1, 2, 3}, []int{0, 1, 2, 3}},
		{"middle", []int{1, 2, 3}, []int{0, 1, 2, 3, 4}},
		{"gap", []int{1, 2, 4}, []int{0, 1, 2, 3, 4}},
		{"ends", []int{0, 4}, []int{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Minimize(containsInOrder(tc.want), tc.seq)
			if !ok {
				t.Fatalf("期望找到最小子序列，实际 ok=false")
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("最小子序列不正确 (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMinimize_NoneWhenFullFails(t *testing.T) {
	calls := 0
	f := func(sub []int) bool {
		calls++
		return false
	}
	got, ok := Minimize(f, []int{0, 1, 2})
	if ok || got != nil {
		t.Fatalf("期望 (nil,false)，实际 (%v,%v)", got, ok)
	}
	// 只应检查空序列与全序列。
	if calls != 2 {
		t.Fatalf("期望调用 2 次，实际 %d", calls)
	}
}

func TestMinimize_DoesNotMutateInput(t *testing.T) {
	seq := []int{0, 1, 2, 3, 4}
	_, _ = Minimize(func(sub []int) bool {
		ok := containsInOrder([]int{2})(sub)
		for i := range sub {
			sub[i] = -1
		}
		return ok
	}, seq)
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, seq); diff != "" {
		t.Fatalf("输入被修改 (-want +got):\n%s", diff)
	}
}

// 对所有目标子集穷举：结果满足 f，且任何真子序列都不满足 f。
func TestMinimize_ResultIsMinimal(t *testing.T) {
	seq := []int{0, 1, 2, 3, 4, 5}
	for mask := 0; mask < 1<<len(seq); mask++ {
		want := subsetOf(seq, mask)
		f := containsInOrder(want)

		got, ok := Minimize(f, seq)
		if !ok {
			t.Fatalf("mask=%b：期望 ok=true", mask)
		}
		if !f(got) {
			t.Fatalf("mask=%b：结果 %v 不满足 f", mask, got)
		}
		for sub := 0; sub < 1<<len(got)-1; sub++ {
			if proper := subsetOf(got, sub); f(proper) {
				t.Fatalf("mask=%b：真子序列 %v 也满足 f（结果 %v 不是最小）", mask, proper, got)
			}
		}
	}
}

func subsetOf(seq []int, mask int) []int {
	out := []int{}
	for i, v := range seq {
		if mask&(1<<i) != 0 {
			out = append(out, v)
		}
	}
	return out
}
