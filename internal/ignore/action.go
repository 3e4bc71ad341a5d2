// Package ignore 定义“忽略动作”：一组不改变文献语义的文本规范化。
//
// 两行输出在应用某个动作子序列后相等，就说明差异可以由这些动作解释。
// 动作集合是封闭的；规范顺序与互斥表在包初始化时校验一次，运行期不再变化。
package ignore

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Action 是一个忽略动作。常量的声明顺序即规范顺序。
type Action uint8

const (
	// Lang 把中文著录项改写为双语等价形式（第 3 卷 → Vol. 3，等 → et al.）。
	Lang Action = iota
	// Case 做完整的 Unicode 大小写折叠。
	Case
	// Juan 删除多余的“卷”字分隔（": 卷 " → ": "）。
	Juan
	// Num 删除标点前的 ": 数字" 字段。
	Num
	// Escape 把字面量 `\-` 还原为 `-`。
	Escape
	// HanSpace 删除汉字与非汉字之间的空白。
	HanSpace
	// CodeSpace 删除两个 ASCII 字母数字之间的空白。
	CodeSpace

	numActions
)

var names = [numActions]string{
	Lang:      "lang",
	Case:      "case",
	Juan:      "卷",
	Num:       "num",
	Escape:    "escape",
	HanSpace:  "han_space",
	CodeSpace: "code_space",
}

// order 是规范顺序：它的任意子序列按序应用都满足互斥表。
//
// lang 的输出是其他动作的输入，必须在最前；两个空白动作会删掉其他动作依赖的空格，必须在最后。
var order = [numActions]Action{Lang, Case, Juan, Num, Escape, HanSpace, CodeSpace}

// Order 返回规范顺序的副本。
func Order() []Action {
	return append([]Action(nil), order[:]...)
}

func (a Action) String() string {
	if a < numActions {
		return names[a]
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

// ParseAction 按名称解析动作。
func ParseAction(name string) (Action, error) {
	for a, n := range names {
		if n == name {
			return Action(a), nil
		}
	}
	return 0, fmt.Errorf("未知的忽略动作：%q", name)
}

// Names 按规范顺序返回动作名称。
func Names() []string {
	out := make([]string, 0, len(order))
	for _, a := range order {
		out = append(out, a.String())
	}
	return out
}

// 标点前的 ": 22-45"、": -3" 等数字字段。
var numFieldRE = regexp.MustCompile(`: [-\d]+(\pP)`)

// Apply 对 s 执行单个动作。
func (a Action) Apply(s string) string {
	switch a {
	case Lang:
		return toBilingual(s)
	case Case:
		// Caser 有状态，不能跨 goroutine 共享：每次新建。
		return cases.Fold().String(s)
	case Juan:
		return strings.ReplaceAll(s, ": 卷 ", ": ")
	case Num:
		return numFieldRE.ReplaceAllString(s, "$1")
	case Escape:
		return strings.ReplaceAll(s, `\-`, "-")
	case HanSpace:
		return collapseBeforeHan(collapseAfterHan(s))
	case CodeSpace:
		return collapseBetweenAlnum(s)
	default:
		panic(fmt.Sprintf("ignore: 未知动作 %d", uint8(a)))
	}
}

// disables[a]：同一次尝试中执行 a 之后，不得再执行的动作。
// 空白动作删掉了 lang/num/卷 匹配所依赖的空格。
var disables = [numActions][]Action{
	Lang:      {Lang},
	Case:      {Lang},
	Juan:      {Lang},
	Num:       {Lang},
	Escape:    {Lang},
	HanSpace:  {Lang, Num, Juan},
	CodeSpace: {Lang, Num, Juan},
}

// ExclusionError 表示动作序列违反互斥表：Action 出现在禁用它的 After 之后。
// 只可能由编程错误触发（规范顺序或谓词构造有误），与用户输入无关。
type ExclusionError struct {
	Action Action
	After  Action
}

func (e *ExclusionError) Error() string {
	return fmt.Sprintf("ignore: %s 不能在 %s 之后执行", e.Action, e.After)
}

// Check 校验动作序列是否满足互斥表，返回第一个违规。
func Check(actions []Action) error {
	var (
		disabled   [numActions]bool
		disabledBy [numActions]Action
	)
	for _, a := range actions {
		if a >= numActions {
			return fmt.Errorf("ignore: 未知动作 %d", uint8(a))
		}
		if disabled[a] {
			return &ExclusionError{Action: a, After: disabledBy[a]}
		}
		for _, d := range disables[a] {
			if !disabled[d] {
				disabled[d] = true
				disabledBy[d] = a
			}
		}
	}
	return nil
}

// Normalize 依次执行 actions。序列违反互斥表时 panic（*ExclusionError）。
func Normalize(s string, actions ...Action) string {
	if err := Check(actions); err != nil {
		panic(err)
	}
	for _, a := range actions {
		s = a.Apply(s)
	}
	return s
}

// Explain 返回谓词：对 a、b 执行同一动作子序列后是否相等。供 minsub.Minimize 使用。
func Explain(a, b string) func([]Action) bool {
	return func(actions []Action) bool {
		return Normalize(a, actions...) == Normalize(b, actions...)
	}
}

func init() {
	if err := validateOrder(); err != nil {
		panic(err)
	}
}

// validateOrder 校验 order 是全部动作的一个排列，且整体满足互斥表。
// 互斥只约束“之后”，所以全序列合法 => 任意子序列合法。
func validateOrder() error {
	var seen [numActions]bool
	for _, a := range order {
		if a >= numActions || seen[a] {
			return fmt.Errorf("ignore: 规范顺序中的动作 %s 非法或重复", a)
		}
		seen[a] = true
	}
	for a, ds := range disables {
		if len(ds) == 0 {
			return fmt.Errorf("ignore: 动作 %s 缺少互斥表条目", Action(a))
		}
	}
	return Check(order[:])
}
