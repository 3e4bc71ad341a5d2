package extract

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// index.md 中示例文献所在的位置（zotero-chinese/styles 的约定）。
const (
	SectionHeading = "### GB/T 7714—2015 示例文献"
	BeforeResult   = "<!-- PLACEHOLDER FOR WEBSITE - BEFORE RESULT -->"
	AfterResult    = "<!-- PLACEHOLDER FOR WEBSITE - AFTER RESULT -->"
)

var (
	ErrSectionNotFound = errors.New("extract: 未找到示例文献段落")
	ErrNoEntries       = errors.New("extract: 未找到任何 csl-entry")
)

// FromIndexMarkdown 从样式的 index.md 中取出示例文献 HTML，并转为纯文本期望输出。
func FromIndexMarkdown(md string) (string, error) {
	html, err := ExampleSection(md)
	if err != nil {
		return "", err
	}
	return FromHTML(strings.NewReader(html))
}

// ExampleSection 返回标题之后、两个占位注释之间的行（不含注释本身）。
// 缺少结尾注释时取到文件末尾。
func ExampleSection(md string) (string, error) {
	sc := bufio.NewScanner(strings.NewReader(md))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	stage := 0 // 0: 找标题；1: 找起始注释；2: 收集
	var lines []string
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		switch stage {
		case 0:
			if line == SectionHeading {
				stage = 1
			}
		case 1:
			if line == BeforeResult {
				stage = 2
			}
		case 2:
			if line == AfterResult {
				return strings.Join(lines, "\n"), nil
			}
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if stage < 2 {
		return "", ErrSectionNotFound
	}
	return strings.Join(lines, "\n"), nil
}

// FromHTML 把渲染结果 HTML 转为纯文本：每个 csl-entry 一行，各列（子元素）文本以 \t 连接。
//
// 目前渲染引擎对 CSL 的支持有限，因此只比较去掉样式后的纯文本。
func FromHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	entries := doc.Find(`div[class="csl-entry"]`)
	if entries.Length() == 0 {
		return "", ErrNoEntries
	}

	var b strings.Builder
	entries.Each(func(_ int, row *goquery.Selection) {
		cols := row.Children()
		if cols.Length() == 0 {
			b.WriteString(row.Text())
			b.WriteByte('\n')
			return
		}
		texts := make([]string, 0, cols.Length())
		cols.Each(func(_ int, col *goquery.Selection) {
			texts = append(texts, col.Text())
		})
		b.WriteString(strings.Join(texts, "\t"))
		b.WriteByte('\n')
	})
	return b.String(), nil
}
