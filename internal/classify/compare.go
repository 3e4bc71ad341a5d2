package classify

import (
	"context"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/bibdiff/internal/domain"
)

// Result 是一次批量比较的结果。
type Result struct {
	// NEntries 是按位置配对后参与比较的行数（两侧较短者的长度）。
	NEntries int
	// Diffs 是逐字不同的行，已按 SortKey 排序。
	Diffs []*Difference
}

// Compare 按位置配对 expected 与 actual，为逐字不同的每一对构造 Difference。
//
// 各对之间互不依赖，按 workers 并发计算；顺序只由最后的排序决定。
func Compare(ctx context.Context, expected, actual []string, workers int) (Result, error) {
	n := min(len(expected), len(actual))

	var idx []int
	for i := 0; i < n; i++ {
		if expected[i] != actual[i] {
			idx = append(idx, i)
		}
	}

	diffs := make([]*Difference, len(idx))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for k, i := range idx {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := New(expected[i], actual[i])
			if err != nil {
				return err
			}
			diffs[k] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	// 被取消时循环可能提前退出，而已启动的任务都成功返回。
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	Sort(diffs)
	return Result{NEntries: n, Diffs: diffs}, nil
}

// Lines 把渲染输出切分为行，末尾换行不产生空行。
// 换行符包括 \n、\r、\r\n、\v、\f、\x1c–\x1e、\x85、U+2028、U+2029。
func Lines(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isLineBreak(r) {
			i += size
			continue
		}
		out = append(out, text[start:i])
		i += size
		if r == '\r' && i < len(text) && text[i] == '\n' {
			i++
		}
		start = i
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}

// Summarize 由一次比较的全部差异计算汇总（不修改输入）。
// 计数相同的类别按在 diffs 中首次出现的顺序排列。
func Summarize(diffs []*Difference, nEntries int) domain.OutputSummary {
	var actions, causes counter
	for _, d := range diffs {
		if acts, ok := d.Actions(); ok {
			for _, a := range acts {
				actions.inc(a.String())
			}
		} else {
			actions.inc(domain.Unknown)
		}
		causes.inc(d.Cause())
	}
	return domain.NewOutputSummary(nEntries, actions.counts, causes.counts)
}

// Items 把已排序的差异转换为报告条目。
func Items(diffs []*Difference) []domain.DiffItem {
	items := make([]domain.DiffItem, 0, len(diffs))
	for i, d := range diffs {
		names := []string{}
		if acts, ok := d.Actions(); ok {
			for _, a := range acts {
				names = append(names, a.String())
			}
		}
		items = append(items, domain.DiffItem{
			Rank:     i + 1,
			Citation: d.CitationNumber(),
			Cause:    d.Cause(),
			Actions:  names,
			Expected: d.Expected(),
			Actual:   d.Actual(),
		})
	}
	return items
}

type counter struct {
	index  map[string]int
	counts domain.Counts
}

func (c *counter) inc(name string) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	i, ok := c.index[name]
	if !ok {
		i = len(c.counts)
		c.index[name] = i
		c.counts = append(c.counts, domain.Count{Name: name})
	}
	c.counts[i].N++
}
