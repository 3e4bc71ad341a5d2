package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/John-Robertt/bibdiff/internal/domain"
)

func runCLI(t *testing.T, dir string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	a := newApp(&out, &errb)
	a.newLogger = func(zapcore.Level) (*zap.Logger, error) { return zap.NewNop(), nil }
	a.getwd = func() (string, error) { return dir, nil }
	code = a.execute(context.Background(), args)
	return code, out.String(), errb.String()
}

func writeInputs(t *testing.T, dir string) (expected, actual string) {
	t.Helper()
	expected = filepath.Join(dir, "expected-output.txt")
	actual = filepath.Join(dir, "actual-output.txt")
	require.NoError(t, os.WriteFile(expected, []byte("[1] IEEE Trans\n[2] Foo\n[3] Same\n"), 0o644))
	require.NoError(t, os.WriteFile(actual, []byte("[1] ieee trans\n[2] Bar\n[3] Same\n"), 0o644))
	return expected, actual
}

func TestCLI_Compare_NoTTY_StdoutOnlyJSON(t *testing.T) {
	// stdout 非 TTY 时只能输出一个 CompareReport JSON。
	dir := t.TempDir()
	expected, actual := writeInputs(t, dir)

	code, stdout, stderr := runCLI(t, dir, "compare", expected, actual)
	require.Equal(t, 0, code, "stderr=%s", stderr)

	var rep domain.CompareReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &rep), "stdout=%q", stdout)
	require.Equal(t, 3, rep.Summary.NEntries)
	require.Equal(t, 2, rep.Summary.NDiff)
	require.Len(t, rep.Items, 2)
	require.Equal(t, "case", rep.Items[0].Cause)
	require.Equal(t, domain.Unknown, rep.Items[1].Cause)
	require.Equal(t, 1, rep.Items[0].Citation)
}

func TestCLI_Compare_WritesPatch(t *testing.T) {
	dir := t.TempDir()
	expected, actual := writeInputs(t, dir)
	out := filepath.Join(dir, "out.diff")

	code, _, stderr := runCLI(t, dir, "compare", "--patch", out, expected, actual)
	require.Equal(t, 0, code, "stderr=%s", stderr)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(b), "-[2] Foo\n+[2] Bar\n")
}

func TestCLI_UsageErrors(t *testing.T) {
	dir := t.TempDir()
	cases := [][]string{
		{"compare", "only-one"},
		{"compare", "--nope", "a", "b"},
		{"frobnicate"},
		{"track"},
		{"history", "extra"},
	}
	for _, args := range cases {
		code, _, stderr := runCLI(t, dir, args...)
		if code != 2 {
			t.Fatalf("%v：期望退出码 2，实际 %d（stderr=%s）", args, code, stderr)
		}
		if !strings.Contains(stderr, "参数错误") {
			t.Fatalf("%v：stderr 缺少参数错误提示：%q", args, stderr)
		}
	}
}

func TestCLI_ConfigErrorExit1(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := runCLI(t, dir, "--config", "missing.json", "history")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "config_not_found")
}

func TestCLI_RuntimeErrorExit1(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := runCLI(t, dir, "compare", filepath.Join(dir, "no.txt"), filepath.Join(dir, "no2.txt"))
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "失败：")
}

func TestCLI_History_Empty(t *testing.T) {
	dir := t.TempDir()
	code, stdout, stderr := runCLI(t, dir, "history")
	require.Equal(t, 0, code, "stderr=%s", stderr)
	require.Equal(t, "[]\n", stdout)
}

func TestRenderSummary(t *testing.T) {
	s := domain.NewOutputSummary(10,
		domain.Counts{{Name: domain.Unknown, N: 1}, {Name: "case", N: 2}},
		domain.Counts{{Name: domain.Unknown, N: 1}, {Name: "case+lang", N: 2}},
	)
	var b bytes.Buffer
	renderSummary(&b, s)

	want := "Summary of differences:\n" +
		"        case:   2 ≈ 67%\n" +
		"     Unknown:   1 ≈ 33%\n" +
		"\nSummary of combinations of differences:\n" +
		"    2 ≈ 67% caused by case + lang\n" +
		"    1 ≈ 33% caused by Unknown\n" +
		"\nTotal differences: 3\n"
	if b.String() != want {
		t.Fatalf("期望：\n%s\n实际：\n%s", want, b.String())
	}
}

func TestRenderReport_Details(t *testing.T) {
	rep := domain.CompareReport{Items: []domain.DiffItem{{Rank: 7, Cause: "卷", Expected: "a", Actual: "b"}}}
	var b bytes.Buffer
	renderReport(&b, rep, true, false)
	require.Equal(t, "\n007 — cause: 卷\nExpected: a\nActual:   b\n\n", b.String())
}

func TestPercent(t *testing.T) {
	cases := map[float64]string{0: " 0%", 0.05: " 5%", 0.2: "20%", 1: "100%"}
	for in, want := range cases {
		if got := percent(in); got != want {
			t.Fatalf("percent(%v)：期望 %q，实际 %q", in, want, got)
		}
	}
}
