package domain

import (
	"encoding/json"
	"time"
)

// CompareReport 是对外稳定输出（stdout JSON）的结构。
type CompareReport struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary OutputSummary `json:"summary"`
	Items   []DiffItem    `json:"items"`
}

// DiffItem 是一条差异（已按分类排序）。
type DiffItem struct {
	Rank     int      `json:"rank"`
	Citation int      `json:"citation"` // 行首 [n] 的编号；没有则为 -1
	Cause    string   `json:"cause"`
	Actions  []string `json:"actions"` // 最小解释（规范顺序）；Unknown 时为空
	Expected string   `json:"expected"`
	Actual   string   `json:"actual"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 按现有顺序（分类排序的结果）编号，从 1 开始
// 3) 空切片输出为 []，而不是 null
//
// items 的顺序由 classify 决定，这里不重排。
func (r *CompareReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Items == nil {
		r.Items = []DiffItem{}
	}
	for i := range r.Items {
		r.Items[i].Rank = i + 1
		if r.Items[i].Actions == nil {
			r.Items[i].Actions = []string{}
		}
	}
	if r.Summary.DiffCounts == nil {
		r.Summary.DiffCounts = Counts{}
	}
	if r.Summary.CauseCounts == nil {
		r.Summary.CauseCounts = Counts{}
	}
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r CompareReport) MarshalJSON() ([]byte, error) {
	type Alias CompareReport
	return json.Marshal(Alias(r))
}
