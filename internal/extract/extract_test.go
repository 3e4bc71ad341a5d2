package extract

import (
	"errors"
	"strings"
	"testing"
)

const indexMD = `# GB/T 7714—2015（顺序编码，双语）

### GB/T 7714—2015 示例文献

<!-- PLACEHOLDER FOR WEBSITE - BEFORE RESULT -->
<div class="csl-bib-body">
  <div class="csl-entry"><div class="csl-left-margin">[1]</div><div class="csl-right-inline">陈登原. 国史旧闻: 第 1 卷[M]. 北京: <i>中华书局</i>, 2000: 29.</div></div>
  <div class="csl-entry"><div class="csl-left-margin">[2]</div><div class="csl-right-inline">WONG D M, 等. Foo[J].</div></div>
</div>
<!-- PLACEHOLDER FOR WEBSITE - AFTER RESULT -->

### 其他
`

func TestFromIndexMarkdown(t *testing.T) {
	got, err := FromIndexMarkdown(indexMD)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := "[1]\t陈登原. 国史旧闻: 第 1 卷[M]. 北京: 中华书局, 2000: 29.\n" +
		"[2]\tWONG D M, 等. Foo[J].\n"
	if got != want {
		t.Fatalf("期望：\n%q\n实际：\n%q", want, got)
	}
}

func TestExampleSection_NotFound(t *testing.T) {
	_, err := ExampleSection("# nothing here\n")
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("期望 ErrSectionNotFound，实际：%v", err)
	}
}

func TestExampleSection_NoEndMarker(t *testing.T) {
	md := SectionHeading + "\n" + BeforeResult + "\n<p>a</p>\n<p>b</p>"
	got, err := ExampleSection(md)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got != "<p>a</p>\n<p>b</p>" {
		t.Fatalf("缺少结尾注释时应取到文件末尾，实际 %q", got)
	}
}

func TestFromHTML_EntryWithoutColumns(t *testing.T) {
	got, err := FromHTML(strings.NewReader(`<div class="csl-entry">Plain entry</div>`))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got != "Plain entry\n" {
		t.Fatalf("实际 %q", got)
	}
}

func TestFromHTML_NoEntries(t *testing.T) {
	_, err := FromHTML(strings.NewReader(`<p>nothing</p>`))
	if !errors.Is(err, ErrNoEntries) {
		t.Fatalf("期望 ErrNoEntries，实际：%v", err)
	}
}
