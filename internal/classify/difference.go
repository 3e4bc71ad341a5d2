// Package classify 为每一对不同的输出行找出能解释差异的最小忽略动作组合，并汇总。
package classify

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/John-Robertt/bibdiff/internal/domain"
	"github.com/John-Robertt/bibdiff/internal/ignore"
	"github.com/John-Robertt/bibdiff/internal/minsub"
)

// ErrNoDifference 表示请求为两行相同的输出构造 Difference（调用方的前置条件被破坏）。
var ErrNoDifference = errors.New("classify: 两行输出相同")

var citationRE = regexp.MustCompile(`^\[(\d+)\]`)

// Difference 是一对不同的输出行及其最小解释。构造后不可变。
type Difference struct {
	expected string
	actual   string

	// minimal 是按规范顺序排列的最小动作子序列；found=false 表示无法解释（Unknown）。
	minimal []ignore.Action
	found   bool

	citation int
}

// New 为 expected != actual 的一对行计算最小解释。两行相同时返回 ErrNoDifference。
func New(expected, actual string) (*Difference, error) {
	if expected == actual {
		return nil, fmt.Errorf("%w：%q", ErrNoDifference, expected)
	}
	minimal, found := minsub.Minimize(ignore.Explain(expected, actual), ignore.Order())
	return &Difference{
		expected: expected,
		actual:   actual,
		minimal:  minimal,
		found:    found,
		citation: citationNumber(expected),
	}, nil
}

func (d *Difference) Expected() string { return d.expected }
func (d *Difference) Actual() string   { return d.actual }

// CitationNumber 返回期望行行首 [n] 中的 n；没有则为 -1。
func (d *Difference) CitationNumber() int { return d.citation }

// Actions 返回最小解释的副本；ok=false 表示 Unknown。
func (d *Difference) Actions() (actions []ignore.Action, ok bool) {
	if !d.found {
		return nil, false
	}
	return slices.Clone(d.minimal), true
}

// Requires 报告 a 是否属于最小解释。
func (d *Difference) Requires(a ignore.Action) bool {
	return d.found && slices.Contains(d.minimal, a)
}

// Cause 返回可读的原因：All / "lang+case" / Unknown。
func (d *Difference) Cause() string {
	if !d.found {
		return domain.Unknown
	}
	if len(d.minimal) == len(ignore.Order()) {
		return domain.CauseAll
	}
	names := make([]string, 0, len(d.minimal))
	for _, a := range d.minimal {
		names = append(names, a.String())
	}
	return strings.Join(names, "+")
}

// SortKey 决定一批差异的确定性展示顺序。
type SortKey struct {
	// Found：能解释的排在 Unknown 之前。
	Found bool
	// NotRequired[i]：规范顺序第 i 个动作是否“不需要”；false 排在 true 之前。仅 Found 时有值。
	NotRequired []bool
	// Citation：行首引用编号，没有为 -1。
	Citation int
	Expected string
	Actual   string
}

// Key 返回 d 的排序键。
func (d *Difference) Key() SortKey {
	k := SortKey{
		Found:    d.found,
		Citation: d.citation,
		Expected: d.expected,
		Actual:   d.actual,
	}
	if d.found {
		order := ignore.Order()
		k.NotRequired = make([]bool, len(order))
		for i, a := range order {
			k.NotRequired[i] = !slices.Contains(d.minimal, a)
		}
	}
	return k
}

// Compare 按字段依次比较，返回 -1/0/1。
func (k SortKey) Compare(o SortKey) int {
	if k.Found != o.Found {
		if k.Found {
			return -1
		}
		return 1
	}
	if c := slices.CompareFunc(k.NotRequired, o.NotRequired, compareBool); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Citation, o.Citation); c != 0 {
		return c
	}
	if c := strings.Compare(k.Expected, o.Expected); c != 0 {
		return c
	}
	return strings.Compare(k.Actual, o.Actual)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// Sort 按 SortKey 原地排序。
func Sort(diffs []*Difference) {
	slices.SortStableFunc(diffs, func(a, b *Difference) int {
		return a.Key().Compare(b.Key())
	})
}

func citationNumber(line string) int {
	m := citationRE.FindStringSubmatch(line)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}
