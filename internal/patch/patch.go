package patch

import (
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// DefaultContext 是 hunk 的上下文行数。
const DefaultContext = 3

// Unified 生成 expected ↦ actual 的统一 diff（---/+++ 头、@@ hunk）。
// 两侧相同时返回空串。
//
// 行尾统一按 \n 处理，末尾缺少换行不单独标注。
func Unified(expectedName, actualName, expected, actual string, context int) (string, error) {
	if context <= 0 {
		context = DefaultContext
	}
	a, b := splitLines(expected), splitLines(actual)
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: expectedName,
		ToFile:   actualName,
		Context:  context,
	})
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{}
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] += "\n"
	}
	return lines
}
