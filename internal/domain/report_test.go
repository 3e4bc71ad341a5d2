package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestCompareReport_Finalize_RankAndUTC(t *testing.T) {
	r := CompareReport{
		Expected:   "/abs/expected-output.txt",
		Actual:     "/abs/actual-output.txt",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []DiffItem{
			{Cause: "num", Actions: []string{"num"}},
			{Cause: Unknown},
		},
	}

	r.Finalize()

	if r.Items[0].Rank != 1 || r.Items[1].Rank != 2 {
		t.Fatalf("rank 编号不符合契约：%d %d", r.Items[0].Rank, r.Items[1].Rank)
	}
	if r.Items[1].Actions == nil {
		t.Fatalf("Unknown 条目的 actions 应为 []，而不是 nil")
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
	if !bytes.Contains(b, []byte(`"diff_counts":{}`)) {
		t.Fatalf("空计数表应输出 {}：%s", string(b))
	}
}

func TestCompareReport_Finalize_EmptyItems(t *testing.T) {
	var r CompareReport
	r.Finalize()

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"items":[]`)) {
		t.Fatalf("items 应输出 []：%s", string(b))
	}
}
