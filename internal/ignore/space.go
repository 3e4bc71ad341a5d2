package ignore

import "unicode"

// 以下扫描器逐字复现带环视的正则替换语义（RE2 不支持环视）：
//
//	han_space:  (?<=汉)\s+(?=非汉) → ""，然后 (?<=非汉)\s+(?=汉) → ""
//	code_space: (?<=[0-9A-Za-z])\s+(?=[0-9A-Za-z]) → ""
//
// 注意空白本身也算“非汉字”，因此空白串一端是文本边界或汉字时，回溯会留下一个空白。

func isHan(r rune) bool { return unicode.Is(unicode.Han, r) }

func isASCIIAlnum(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

// spaceRun 返回从 i 开始的最长空白串的结束下标。
func spaceRun(rs []rune, i int) int {
	for i < len(rs) && unicode.IsSpace(rs[i]) {
		i++
	}
	return i
}

// collapseAfterHan：汉字之后的空白串。
// 后面跟非汉字 => 整串删除；后面是汉字或文本结尾 => 只保留最后一个空白。
func collapseAfterHan(s string) string {
	rs := []rune(s)
	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); {
		if !unicode.IsSpace(rs[i]) || i == 0 || !isHan(rs[i-1]) {
			out = append(out, rs[i])
			i++
			continue
		}
		j := spaceRun(rs, i)
		if j == len(rs) || isHan(rs[j]) {
			out = append(out, rs[j-1])
		}
		i = j
	}
	return string(out)
}

// collapseBeforeHan：汉字之前的空白串。
// 前面是非汉字 => 整串删除；前面是汉字或文本开头 => 只保留第一个空白。
func collapseBeforeHan(s string) string {
	rs := []rune(s)
	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); {
		if !unicode.IsSpace(rs[i]) {
			out = append(out, rs[i])
			i++
			continue
		}
		j := spaceRun(rs, i)
		switch {
		case j == len(rs) || !isHan(rs[j]):
			out = append(out, rs[i:j]...)
		case i == 0 || isHan(rs[i-1]):
			out = append(out, rs[i])
		}
		i = j
	}
	return string(out)
}

// collapseBetweenAlnum 删除两侧都是 ASCII 字母数字的空白串。
func collapseBetweenAlnum(s string) string {
	rs := []rune(s)
	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); {
		if !unicode.IsSpace(rs[i]) {
			out = append(out, rs[i])
			i++
			continue
		}
		j := spaceRun(rs, i)
		if i == 0 || j == len(rs) || !isASCIIAlnum(rs[i-1]) || !isASCIIAlnum(rs[j]) {
			out = append(out, rs[i:j]...)
		}
		i = j
	}
	return string(out)
}
