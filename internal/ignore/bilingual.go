package ignore

import (
	"regexp"
	"strings"
)

// spaceClass 匹配 Unicode 空白（含 U+3000、NBSP 与分隔符 \x1c–\x1f）；RE2 的 \s 只认 ASCII。
const spaceClass = `[\s\x0b\p{Z}\x{85}\x{1c}-\x{1f}]`

// 规则按某一数据集实测调整过，保持字面规则，不要泛化。
var (
	// 判断中文文献时先去掉的连接词/结构词（按字符逐个去掉）。
	linkingCharsRE = regexp.MustCompile(`[等卷册和版本章期页篇译间者(不详)]`)
	hanRunRE       = regexp.MustCompile(`\p{Han}{2,}`)

	// 第○卷、第○册 → Vol. ○ / Bk. ○
	volumeRE = regexp.MustCompile(`(第` + spaceClass + `?)?(\d+)` + spaceClass + `?[卷册]`)
	// 第○版、第○本 → ○st ed 等
	editionRE = regexp.MustCompile(`(\.?)` + spaceClass + `*第?` + spaceClass + `*(\d+)` + spaceClass + `*[版本]`)
	// 等 + 后随一个字符 → et al.
	etAlRE = regexp.MustCompile(`等.`)
)

// “等”之后若紧跟这些字符，则不补空格。
const etAlNoSpaceAfter = `.,;:[]/\<>?() "'`

// toBilingual 把（简体）中文著录项改写成英文等价形式。
// 去掉连接词后仍有两个以上连续汉字的，视为中文文献，原样返回。
//
// 译者（译、trans.）不转换：多个译者的折叠与单复数处理不稳定，忽略。
func toBilingual(s string) string {
	if hanRunRE.MatchString(linkingCharsRE.ReplaceAllString(s, "")) {
		return s
	}

	s = replaceAllSubmatchFunc(volumeRE, s, func(m []string) string {
		if strings.Contains(m[0], "卷") {
			return "Vol. " + m[2]
		}
		return "Bk. " + m[2]
	})

	s = replaceAllSubmatchFunc(editionRE, s, func(m []string) string {
		prefix := ""
		if m[1] != "" {
			prefix = m[1] + " "
		}
		return prefix + m[2] + ordinalSuffix(m[2]) + " ed"
	})

	// 如果原文就是“等.”，只需简单替换；
	// 如果“等”后没有英文标点，需要补一个空格；
	// 后随字符原样吐回，英文句号除外（避免重复）。
	s = replaceAllSubmatchFunc(etAlRE, s, func(m []string) string {
		last := strings.TrimPrefix(m[0], "等")
		out := "et al."
		if !strings.Contains(etAlNoSpaceAfter, last) {
			out += " "
		}
		if last != "." {
			out += last
		}
		return out
	})

	return s
}

// ordinalSuffix 返回英文序数后缀。两位数且以 1 开头（10–19）一律 th。
func ordinalSuffix(num string) string {
	if len(num) == 2 && num[0] == '1' {
		return "th"
	}
	switch num[len(num)-1] {
	case '1':
		return "st"
	case '2':
		return "nd"
	case '3':
		return "rd"
	default:
		return "th"
	}
}

// replaceAllSubmatchFunc 与 ReplaceAllStringFunc 相同，但回调拿到的是各分组（未参与匹配的分组为空串）。
func replaceAllSubmatchFunc(re *regexp.Regexp, s string, repl func(m []string) string) string {
	locs := re.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, loc := range locs {
		b.WriteString(s[last:loc[0]])
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(repl(m))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
