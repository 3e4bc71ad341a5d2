package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/John-Robertt/bibdiff/internal/domain"
	"github.com/John-Robertt/bibdiff/internal/ignore"
)

// 每对行的期望原因；顺序即期望的排序结果。
var fixturePairs = []struct {
	expected, actual, cause string
}{
	{"[9] 王 等 2020", "[9] 王et al. 2020", "lang+han_space"},
	{"[2] 第 1 卷", "[2] Vol. 1", "lang"},
	{"[6] IEEE 123", "[6] ieee123", "case+code_space"},
	{"[1] IEEE Trans", "[1] ieee trans", "case"},
	{"[8] 北京: 卷 第4册", "[8] 北京: 第4册", "卷"},
	{"[3] Item: 22-45.", "[3] Item.", "num"},
	{`[7] GB/T 7714\-2015`, "[7] GB/T 7714-2015", "escape"},
	{"[4] 中华书局 2019", "[4] 中华书局2019", "han_space"},
	{"[5] Foo", "[5] Bar", domain.Unknown},
}

func TestNew_Causes(t *testing.T) {
	for _, p := range fixturePairs {
		d, err := New(p.expected, p.actual)
		require.NoError(t, err)
		if got := d.Cause(); got != p.cause {
			t.Fatalf("%q vs %q：期望原因 %q，实际 %q", p.expected, p.actual, p.cause, got)
		}
	}
}

func TestNew_RejectsEqualLines(t *testing.T) {
	_, err := New("[1] same", "[1] same")
	if !errors.Is(err, ErrNoDifference) {
		t.Fatalf("期望 ErrNoDifference，实际：%v", err)
	}
}

func TestDifference_MinimalExplanation(t *testing.T) {
	for _, p := range fixturePairs {
		d, err := New(p.expected, p.actual)
		require.NoError(t, err)

		acts, ok := d.Actions()
		if !ok {
			require.Equal(t, domain.Unknown, d.Cause())
			require.NotEqual(t,
				ignore.Normalize(p.expected, ignore.Order()...),
				ignore.Normalize(p.actual, ignore.Order()...),
				"Unknown 意味着全部动作也无法使二者相等")
			continue
		}

		explain := ignore.Explain(p.expected, p.actual)
		require.True(t, explain(acts), "最小解释必须使二者相等：%v", acts)
		// 去掉任意一个动作都不再相等。
		for i := range acts {
			fewer := append(append([]ignore.Action{}, acts[:i]...), acts[i+1:]...)
			require.False(t, explain(fewer), "%v 不是最小解释（%v 也成立）", acts, fewer)
		}
	}
}

func TestDifference_Deterministic(t *testing.T) {
	for _, p := range fixturePairs {
		a, err := New(p.expected, p.actual)
		require.NoError(t, err)
		b, err := New(p.expected, p.actual)
		require.NoError(t, err)

		require.Equal(t, a.Cause(), b.Cause())
		require.Equal(t, a.Cause(), a.Cause())
		if diff := cmp.Diff(a.Key(), b.Key()); diff != "" {
			t.Fatalf("排序键不稳定 (-a +b):\n%s", diff)
		}
		require.Zero(t, a.Key().Compare(b.Key()))
	}
}

func TestDifference_CauseAll(t *testing.T) {
	d := &Difference{expected: "a", actual: "b", minimal: ignore.Order(), found: true, citation: -1}
	require.Equal(t, domain.CauseAll, d.Cause())
	for _, a := range ignore.Order() {
		require.True(t, d.Requires(a))
	}
}

func TestCitationNumber(t *testing.T) {
	require.Equal(t, 12, citationNumber("[12] Foo"))
	require.Equal(t, -1, citationNumber("Foo [12]"))
	require.Equal(t, -1, citationNumber("[x] Foo"))
}

func TestSort_Order(t *testing.T) {
	// 逆序构造，排序后应恢复 fixturePairs 的顺序。
	var diffs []*Difference
	for i := len(fixturePairs) - 1; i >= 0; i-- {
		d, err := New(fixturePairs[i].expected, fixturePairs[i].actual)
		require.NoError(t, err)
		diffs = append(diffs, d)
	}
	Sort(diffs)

	var got, want []string
	for i, d := range diffs {
		got = append(got, d.Cause())
		want = append(want, fixturePairs[i].cause)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("排序结果不正确 (-want +got):\n%s", diff)
	}

	// Unknown 必须全部在最后。
	seenUnknown := false
	for _, d := range diffs {
		if d.Cause() == domain.Unknown {
			seenUnknown = true
		} else if seenUnknown {
			t.Fatalf("Unknown 之后出现了已解释的差异：%q", d.Cause())
		}
	}
}

func TestSort_CitationThenText(t *testing.T) {
	a, _ := New("[10] Foo", "[10] Bar")
	b, _ := New("[9] Foo", "[9] Bar")
	c, _ := New("Foo", "Bar")
	d, _ := New("[9] Baz", "[9] Bar")
	diffs := []*Difference{a, b, c, d}
	Sort(diffs)
	require.Equal(t, []*Difference{c, d, b, a}, diffs)
}

func TestCompare_ParallelMatchesSerial(t *testing.T) {
	defer goleak.VerifyNone(t)

	var expected, actual []string
	for _, p := range fixturePairs {
		expected = append(expected, p.expected, "[0] same line")
		actual = append(actual, p.actual, "[0] same line")
	}
	// 多出的行不参与比较。
	expected = append(expected, "[99] extra")

	serial, err := Compare(context.Background(), expected, actual, 1)
	require.NoError(t, err)
	parallel, err := Compare(context.Background(), expected, actual, 8)
	require.NoError(t, err)

	require.Equal(t, len(actual), serial.NEntries)
	require.Len(t, serial.Diffs, len(fixturePairs))
	if diff := cmp.Diff(Items(serial.Diffs), Items(parallel.Diffs)); diff != "" {
		t.Fatalf("并发结果与串行不一致 (-serial +parallel):\n%s", diff)
	}
}

func TestCompare_Canceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Compare(ctx, []string{"a"}, []string{"b"}, 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际：%v", err)
	}
}

func TestLines(t *testing.T) {
	require.Nil(t, Lines(""))
	require.Equal(t, []string{"a", "b"}, Lines("a\r\nb\n"))
	require.Equal(t, []string{"a", "", "b"}, Lines("a\n\nb"))
	require.Equal(t, []string{"a", "b", "c", "d", "e", ""}, Lines("a\rb\u0085c\u2028d\u2029e\n\n"))
	require.Equal(t, []string{"a", "b", "c"}, Lines("a\vb\fc"))
	// 行内的普通空白不是换行。
	require.Equal(t, []string{"a\u3000b\tc"}, Lines("a\u3000b\tc\r\n"))
}

func TestSummarize(t *testing.T) {
	var diffs []*Difference
	for _, p := range fixturePairs {
		d, err := New(p.expected, p.actual)
		require.NoError(t, err)
		diffs = append(diffs, d)
	}
	Sort(diffs)

	s := Summarize(diffs, 20)
	require.Equal(t, 20, s.NEntries)
	require.Equal(t, len(diffs), s.NDiff)
	require.Equal(t, len(diffs), s.CauseCounts.Total())

	wantDiff := domain.Counts{
		{Name: "lang", N: 2},
		{Name: "han_space", N: 2},
		{Name: "case", N: 2},
		{Name: "code_space", N: 1},
		{Name: "卷", N: 1},
		{Name: "num", N: 1},
		{Name: "escape", N: 1},
		{Name: domain.Unknown, N: 1},
	}
	if diff := cmp.Diff(wantDiff, s.DiffCounts); diff != "" {
		t.Fatalf("diff_counts 不正确 (-want +got):\n%s", diff)
	}

	// 每条已解释差异至少贡献一个动作计数。
	unknown, _ := s.DiffCounts.Get(domain.Unknown)
	require.GreaterOrEqual(t, s.DiffCounts.Total()-unknown, len(diffs)-unknown)

	last := s.CauseCounts[len(s.CauseCounts)-1]
	require.Equal(t, domain.Unknown, last.Name)
}

func TestSummarize_SingleActionTotalsMatch(t *testing.T) {
	var diffs []*Difference
	for _, p := range fixturePairs {
		if strings.Contains(p.cause, "+") || p.cause == domain.Unknown {
			continue
		}
		d, err := New(p.expected, p.actual)
		require.NoError(t, err)
		diffs = append(diffs, d)
	}
	s := Summarize(diffs, len(diffs))
	// 全是单动作原因时，动作计数之和等于差异数。
	require.Equal(t, len(diffs), s.DiffCounts.Total())
}
