package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	// CauseAll 表示需要全部忽略动作才能解释差异。
	CauseAll = "All"
	// Unknown 表示任何忽略动作组合都无法解释差异。它既是原因，也是类别。
	Unknown = "Unknown"
)

// Count 是一个类别（或原因）的计数。
type Count struct {
	Name string
	N    int
}

// Counts 是有序计数表；JSON/YAML 中编码为保持顺序的映射。
type Counts []Count

// Get 返回 name 的计数。
func (c Counts) Get(name string) (int, bool) {
	for _, it := range c {
		if it.Name == name {
			return it.N, true
		}
	}
	return 0, false
}

// Total 返回全部计数之和。
func (c Counts) Total() int {
	n := 0
	for _, it := range c {
		n += it.N
	}
	return n
}

// SortCounts 返回排序后的副本：按计数降序，Unknown 固定在最后；计数相同保持原顺序。
func SortCounts(c Counts) Counts {
	out := append(Counts(nil), c...)
	sort.SliceStable(out, func(i, j int) bool {
		ui, uj := out[i].Name == Unknown, out[j].Name == Unknown
		if ui != uj {
			return uj
		}
		return out[i].N > out[j].N
	})
	return out
}

func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, it := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(it.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", it.N)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Counts) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("counts 必须是 JSON 对象")
	}
	out := Counts{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var n int
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("counts[%q]：%w", name, err)
		}
		out = append(out, Count{Name: name, N: n})
	}
	*c = out
	return nil
}

func (c Counts) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, it := range c {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: it.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(it.N)},
		)
	}
	return node, nil
}

func (c *Counts) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("counts 必须是映射（line %d）", value.Line)
	}
	out := make(Counts, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var n int
		if err := value.Content[i+1].Decode(&n); err != nil {
			return fmt.Errorf("counts[%q]：%w", value.Content[i].Value, err)
		}
		out = append(out, Count{Name: value.Content[i].Value, N: n})
	}
	*c = out
	return nil
}

// OutputSummary 是一次比较的汇总，只读。
type OutputSummary struct {
	// NEntries 是参与比较的条目（行）数。
	NEntries int `json:"n_entries" yaml:"n_entries"`
	// NDiff 是有差异的条目数，等于 CauseCounts 之和。
	NDiff int `json:"n_diff" yaml:"n_diff"`
	// DiffCounts：每个忽略动作（或 Unknown）出现在多少条差异的最小解释里。
	DiffCounts Counts `json:"diff_counts" yaml:"diff_counts"`
	// CauseCounts：每种原因（动作组合）的差异条数。
	CauseCounts Counts `json:"cause_counts" yaml:"cause_counts"`
}

// NewOutputSummary 由（可能无序的）计数构造汇总并统一排序。
func NewOutputSummary(nEntries int, diffCounts, causeCounts Counts) OutputSummary {
	return OutputSummary{
		NEntries:    nEntries,
		NDiff:       causeCounts.Total(),
		DiffCounts:  SortCounts(diffCounts),
		CauseCounts: SortCounts(causeCounts),
	}
}

// Share 返回 n 占全部差异的比例；没有差异时为 0。
func (s OutputSummary) Share(n int) float64 {
	if s.NDiff == 0 {
		return 0
	}
	return float64(n) / float64(s.NDiff)
}
