package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/bibdiff/internal/csl"
	"github.com/John-Robertt/bibdiff/internal/extract"
	"github.com/John-Robertt/bibdiff/internal/infra/cache"
)

// 缓存目录 <cache_dir>/<rev>/ 下的文件名。
const (
	StyleTitle   = "GB-T-7714—2015（顺序编码，双语）"
	EntriesName  = "gbt7714-data.json"
	CSLName      = StyleTitle + ".csl"
	ExpectedName = "expected-output.txt"
	ActualName   = "actual-output.txt"
	DiffName     = "output.diff"
)

// 单个 fixture 的大小上限。
const maxBody = 32 << 20

// File 描述一个需要下载并缓存的 fixture。
type File struct {
	Name string
	URL  string
	// Convert 非 nil 时，下载内容先经转换再写入缓存。
	Convert func([]byte) ([]byte, error)
}

// Catalog 是某个 rev 下的全部 fixture。
type Catalog struct {
	Rev   string
	Files []File
}

// NewCatalog 按 rev 与两个站点地址构造目录表。
//
// stylesBaseURL 不含 rev（例如 https://github.com/zotero-chinese/styles/raw）；
// sanitizerBaseURL 是 csl-sanitizer 网站根地址。
func NewCatalog(rev, stylesBaseURL, sanitizerBaseURL string) Catalog {
	styles := strings.TrimRight(stylesBaseURL, "/") + "/" + rev
	sanitizer := strings.TrimRight(sanitizerBaseURL, "/")
	return Catalog{
		Rev: rev,
		Files: []File{
			{Name: EntriesName, URL: styles + "/lib/data/items/" + EntriesName},
			{Name: CSLName, URL: sanitizer + "/chinese/src/" + StyleTitle + "/" + CSLName},
			{Name: ExpectedName, URL: styles + "/src/" + StyleTitle + "/index.md", Convert: expectedFromIndex},
		},
	}
}

func expectedFromIndex(b []byte) ([]byte, error) {
	text, err := extract.FromIndexMarkdown(string(b))
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// StatusError 表示下载地址返回了非 2xx 状态码。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d：%s", e.StatusCode, e.URL)
}

// Error 是某个 fixture 在某个阶段的失败。
type Error struct {
	Name  string
	Stage string // "download" / "convert" / "write"
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fixture=%s stage=%s: %v", e.Name, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result 汇总一次 Ensure。
type Result struct {
	Downloaded []string
	Cached     []string
	CSL        csl.Info
}

// Ensure 下载缺失的 fixture（force 时全部重新下载），然后读取 CSL 版本。
//
// 按目录表顺序串行下载：文件只有三个，且失败时应停在第一个出错的文件上。
func Ensure(ctx context.Context, c *http.Client, store cache.Store, cat Catalog, force bool, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var res Result
	for _, f := range cat.Files {
		if !force {
			ok, err := store.Has(f.Name)
			if err != nil {
				return res, &Error{Name: f.Name, Stage: "write", Err: err}
			}
			if ok {
				res.Cached = append(res.Cached, f.Name)
				continue
			}
		}

		start := time.Now()
		b, err := download(ctx, c, f.URL)
		if err != nil {
			return res, &Error{Name: f.Name, Stage: "download", Err: err}
		}
		log.Info("fixture downloaded",
			zap.String("name", f.Name),
			zap.String("url", f.URL),
			zap.Int("bytes", len(b)),
			zap.Duration("elapsed", time.Since(start)),
		)

		if f.Convert != nil {
			if b, err = f.Convert(b); err != nil {
				return res, &Error{Name: f.Name, Stage: "convert", Err: err}
			}
		}
		if err := store.Write(f.Name, b); err != nil {
			return res, &Error{Name: f.Name, Stage: "write", Err: err}
		}
		res.Downloaded = append(res.Downloaded, f.Name)
	}

	info, err := ReadCSLInfo(store)
	if err != nil {
		return res, err
	}
	res.CSL = info
	log.Info("csl version", zap.String("updated", info.Updated))
	return res, nil
}

// ReadCSLInfo 读取缓存中 CSL 样式的 <info>。
func ReadCSLInfo(store cache.Store) (csl.Info, error) {
	b, ok, err := store.Read(CSLName)
	if err != nil {
		return csl.Info{}, err
	}
	if !ok {
		return csl.Info{}, &Error{Name: CSLName, Stage: "download", Err: errors.New("尚未下载，请先执行 fetch")}
	}
	return csl.ParseInfo(b)
}

func download(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxBody {
		return nil, fmt.Errorf("响应超过 %d 字节", maxBody)
	}
	return b, nil
}
