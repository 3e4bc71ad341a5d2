package history

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/bibdiff/internal/domain"
	"github.com/John-Robertt/bibdiff/internal/ignore"
	"github.com/John-Robertt/bibdiff/internal/infra/fsx"
)

// Version 是当前历史文件格式版本。
const Version = 1

// legacyPunct 是已下线的标点类别，旧记录中仍可能出现。
const legacyPunct = "punct"

// File 是历史文件的内容。
type File struct {
	Version int                    `yaml:"version"`
	Records []domain.HistoryRecord `yaml:"record"`
}

// Categories 返回可出现在 diff_counts 中的类别：全部忽略动作（按固定顺序）与 Unknown。
func Categories() []string {
	return append(ignore.Names(), domain.Unknown)
}

// Load 读取历史文件；文件不存在时返回空的当前版本。
func Load(p string) (*File, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{Version: Version}, nil
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("history: 解析 %s 失败：%w", p, err)
	}
	if f.Version == 0 && len(f.Records) == 0 {
		f.Version = Version
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("history: %s：%w", p, err)
	}
	return &f, nil
}

// Validate 检查版本号与每条记录中的类别、原因名称。
func (f *File) Validate() error {
	if f.Version != Version {
		return fmt.Errorf("不支持的版本：%d", f.Version)
	}
	known := map[string]bool{legacyPunct: true}
	for _, c := range Categories() {
		known[c] = true
	}
	for i, r := range f.Records {
		for _, c := range r.Output.DiffCounts {
			if !known[c.Name] {
				return fmt.Errorf("record[%d]: 未声明的类别 %q", i, c.Name)
			}
		}
		for _, c := range r.Output.CauseCounts {
			if c.Name == domain.CauseAll || c.Name == domain.Unknown {
				continue
			}
			for _, part := range strings.Split(c.Name, "+") {
				if !known[part] || part == domain.Unknown {
					return fmt.Errorf("record[%d]: 未声明的原因 %q", i, c.Name)
				}
			}
		}
		if got := r.Output.CauseCounts.Total(); got != r.Output.NDiff {
			return fmt.Errorf("record[%d]: n_diff=%d 与原因合计 %d 不一致", i, r.Output.NDiff, got)
		}
	}
	return nil
}

// Upsert 以 InputVersion 为键：已有相同输入的记录被原地替换，否则追加。
// 返回 true 表示替换了旧记录。
func (f *File) Upsert(rec domain.HistoryRecord) bool {
	for i := range f.Records {
		if f.Records[i].InputVersion == rec.InputVersion {
			f.Records[i] = rec
			return true
		}
	}
	f.Records = append(f.Records, rec)
	return false
}

// Save 原子写入历史文件。
func (f *File) Save(p string) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return fsx.WriteFile(p, buf.Bytes())
}

// TrendRow 是趋势表中的一行。
type TrendRow struct {
	Label        string `json:"label"`
	EntriesRev   string `json:"entries_rev"`
	CSLUpdatedAt string `json:"csl_updated_at"`
	NEntries     int    `json:"n_entries"`
	NDiff        int    `json:"n_diff"`
	NUnknown     int    `json:"n_unknown"`
}

// Trend 按文件中的记录顺序生成趋势表。
func (f *File) Trend() []TrendRow {
	rows := make([]TrendRow, 0, len(f.Records))
	for _, r := range f.Records {
		unknown, _ := r.Output.CauseCounts.Get(domain.Unknown)
		rows = append(rows, TrendRow{
			Label:        RendererLabel(r.RendererSource),
			EntriesRev:   r.EntriesRev,
			CSLUpdatedAt: r.CSLUpdatedAt,
			NEntries:     r.Output.NEntries,
			NDiff:        r.Output.NDiff,
			NUnknown:     unknown,
		})
	}
	return rows
}

// RendererLabel 把 Cargo.lock 风格的 source 缩写为便于阅读的标签：
//
//	git+https://github.com/typst/hayagriva?rev=abc#0123456789 → hayagriva#0123456
//	git+https://github.com/typst/hayagriva?tag=v0.9.1        → hayagriva@v0.9.1
func RendererLabel(source string) string {
	u, err := url.Parse(strings.TrimPrefix(source, "git+"))
	if err != nil || u.Host == "" {
		return source
	}
	name := path.Base(strings.TrimSuffix(u.Path, ".git"))
	if name == "." || name == "/" {
		name = u.Host
	}
	if frag := u.Fragment; frag != "" {
		if len(frag) > 7 {
			frag = frag[:7]
		}
		return name + "#" + frag
	}
	q := u.Query()
	for _, k := range []string{"tag", "rev", "branch"} {
		if v := q.Get(k); v != "" {
			return name + "@" + v
		}
	}
	return name
}

// ErrRendererSource 表示 renderer_source 不是 git+https:// 地址。
var ErrRendererSource = errors.New("renderer_source 必须以 git+https:// 开头")

// NewInputVersion 组装并校验一次运行的输入版本。
func NewInputVersion(rev, cslUpdatedAt, rendererSource string) (domain.InputVersion, error) {
	if !strings.HasPrefix(rendererSource, "git+https://") {
		return domain.InputVersion{}, fmt.Errorf("%w：%q", ErrRendererSource, rendererSource)
	}
	if strings.TrimSpace(cslUpdatedAt) == "" {
		return domain.InputVersion{}, errors.New("csl_updated_at 不能为空")
	}
	return domain.InputVersion{
		EntriesRev:     "zotero-chinese/styles#" + rev,
		CSLUpdatedAt:   cslUpdatedAt,
		RendererSource: rendererSource,
	}, nil
}
