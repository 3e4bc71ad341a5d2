package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/John-Robertt/bibdiff/internal/domain"
	"github.com/John-Robertt/bibdiff/internal/history"
)

// renderReport 输出人类可读的比较结果。
func renderReport(w io.Writer, rep domain.CompareReport, details, summary bool) {
	if details {
		for _, it := range rep.Items {
			fmt.Fprintf(w, "\n%03d — cause: %s\nExpected: %s\nActual:   %s\n\n", it.Rank, it.Cause, it.Expected, it.Actual)
		}
	}
	if summary {
		renderSummary(w, rep.Summary)
	}
}

// renderSummary 先列单个动作，再列动作组合；Unknown 总在各自列表末尾。
func renderSummary(w io.Writer, s domain.OutputSummary) {
	fmt.Fprintln(w, "Summary of differences:")
	for _, c := range s.DiffCounts {
		fmt.Fprintf(w, "  %10s: %3d ≈ %s\n", c.Name, c.N, percent(s.Share(c.N)))
	}

	fmt.Fprintln(w, "\nSummary of combinations of differences:")
	for _, c := range s.CauseCounts {
		fmt.Fprintf(w, "  %3d ≈ %s caused by %s\n", c.N, percent(s.Share(c.N)), strings.ReplaceAll(c.Name, "+", " + "))
	}

	fmt.Fprintf(w, "\nTotal differences: %d\n", s.NDiff)
}

func percent(f float64) string {
	return fmt.Sprintf("%3s", fmt.Sprintf("%.0f%%", f*100))
}

func renderTrend(w io.Writer, rows []history.TrendRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "（暂无历史记录）")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RENDERER\tENTRIES\tCSL UPDATED\tN_ENTRIES\tN_DIFF\tUNKNOWN")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", r.Label, r.EntriesRev, r.CSLUpdatedAt, r.NEntries, r.NDiff, r.NUnknown)
	}
	_ = tw.Flush()
}
