package domain

// InputVersion 描述一次比较的输入来源；相同 InputVersion 的历史记录会被覆盖。
type InputVersion struct {
	// EntriesRev 是文献条目与 CSL 样式所在仓库的 git 修订，如 "zotero-chinese/styles#ce0786d7"。
	EntriesRev string `json:"entries_rev" yaml:"entries_rev"`
	// CSLUpdatedAt 是 CSL 样式 <updated> 字段的原文（带时区的 ISO 时间）。
	CSLUpdatedAt string `json:"csl_updated_at" yaml:"csl_updated_at"`
	// RendererSource 是渲染引擎的精确修订（Cargo.lock 风格的 source URL）。
	RendererSource string `json:"renderer_source" yaml:"renderer_source"`
}

// HistoryRecord 是历史文件中的一条记录。
type HistoryRecord struct {
	InputVersion `yaml:",inline"`
	Output       OutputSummary `json:"output" yaml:"output"`
}
