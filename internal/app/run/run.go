package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/bibdiff/internal/classify"
	"github.com/John-Robertt/bibdiff/internal/config"
	"github.com/John-Robertt/bibdiff/internal/domain"
	"github.com/John-Robertt/bibdiff/internal/extract"
	"github.com/John-Robertt/bibdiff/internal/fixture"
	"github.com/John-Robertt/bibdiff/internal/history"
	"github.com/John-Robertt/bibdiff/internal/infra/cache"
	"github.com/John-Robertt/bibdiff/internal/infra/fsx"
	"github.com/John-Robertt/bibdiff/internal/infra/httpx"
	"github.com/John-Robertt/bibdiff/internal/patch"
)

// Options 是一次执行的外部依赖；零值可用。
type Options struct {
	Log *zap.Logger
	Obs Observer
	// Client 为 nil 时按 proxy 配置构造。
	Client *http.Client
}

func (o Options) normalize(eff config.EffectiveConfig) (Options, error) {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Obs == nil {
		o.Obs = nopObserver{}
	}
	if o.Client == nil {
		c, err := httpx.NewClient(eff.ProxyURL)
		if err != nil {
			return o, fmt.Errorf("proxy.url 无效：%w", err)
		}
		o.Client = c
	}
	return o, nil
}

// Result 是一次比较的报告，以及参与比较的两份纯文本（用于生成 patch）。
type Result struct {
	Report   domain.CompareReport
	Expected string
	Actual   string
}

// Patch 返回 expected ↦ actual 的统一 diff；完全相同时为空串。
func (r Result) Patch() (string, error) {
	return patch.Unified(r.Report.Expected, r.Report.Actual, r.Expected, r.Actual, patch.DefaultContext)
}

// LoadExpected 读取期望输出：.html/.htm 按 csl-entry 抽取，.md 视为样式的 index.md，其余按纯文本。
func LoadExpected(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return extract.FromHTML(strings.NewReader(string(b)))
	case ".md":
		return extract.FromIndexMarkdown(string(b))
	default:
		return string(b), nil
	}
}

// Compare 比较两个文件并生成报告；不读写缓存，也不联网。
func Compare(ctx context.Context, eff config.EffectiveConfig, expectedPath, actualPath string, opt Options) (Result, error) {
	opt.Log = nonNil(opt.Log)
	if opt.Obs == nil {
		opt.Obs = nopObserver{}
	}
	opt.Obs.OnStart("compare", eff)

	started := time.Now()
	expected, err := LoadExpected(expectedPath)
	if err != nil {
		return Result{}, fmt.Errorf("读取期望输出失败：%w", err)
	}
	actual, err := os.ReadFile(actualPath)
	if err != nil {
		return Result{}, fmt.Errorf("读取实际输出失败：%w", err)
	}
	opt.Obs.OnPhaseDone("extract", map[string]any{
		"expected_bytes": len(expected),
		"actual_bytes":   len(actual),
	}, time.Since(started))

	return compareTexts(ctx, eff, expectedPath, actualPath, expected, string(actual), started, opt)
}

func compareTexts(ctx context.Context, eff config.EffectiveConfig, expectedName, actualName, expected, actual string, started time.Time, opt Options) (Result, error) {
	exp, act := classify.Lines(expected), classify.Lines(actual)
	if len(exp) != len(act) {
		// 按位置配对，多出的行不参与比较。
		opt.Log.Warn("line count mismatch",
			zap.Int("expected", len(exp)),
			zap.Int("actual", len(act)),
		)
	}

	phase := time.Now()
	res, err := classify.Compare(ctx, exp, act, eff.Concurrency)
	if err != nil {
		return Result{}, err
	}
	summary := classify.Summarize(res.Diffs, res.NEntries)
	opt.Obs.OnPhaseDone("compare", map[string]any{
		"entries": summary.NEntries,
		"diff":    summary.NDiff,
	}, time.Since(phase))

	rep := domain.CompareReport{
		Expected:   expectedName,
		Actual:     actualName,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Summary:    summary,
		Items:      classify.Items(res.Diffs),
	}
	rep.Finalize()
	return Result{Report: rep, Expected: expected, Actual: actual}, nil
}

// Fetch 确保 fixture 已缓存（force 时重新下载）。
func Fetch(ctx context.Context, eff config.EffectiveConfig, force bool, opt Options) (fixture.Result, error) {
	opt, err := opt.normalize(eff)
	if err != nil {
		return fixture.Result{}, err
	}
	opt.Obs.OnStart("fetch", eff)

	store, err := cache.New(eff.CacheDir, eff.Rev, false)
	if err != nil {
		return fixture.Result{}, err
	}
	return ensure(ctx, eff, store, force, opt)
}

func ensure(ctx context.Context, eff config.EffectiveConfig, store cache.Store, force bool, opt Options) (fixture.Result, error) {
	started := time.Now()
	cat := fixture.NewCatalog(eff.Rev, eff.StylesBaseURL, eff.SanitizerBaseURL)
	fr, err := fixture.Ensure(ctx, opt.Client, store, cat, force, opt.Log)
	if err != nil {
		return fr, err
	}
	opt.Obs.OnPhaseDone("fixture", map[string]any{
		"downloaded":  len(fr.Downloaded),
		"cached":      len(fr.Cached),
		"csl_updated": fr.CSL.Updated,
	}, time.Since(started))
	return fr, nil
}

// ErrExpectedNotCached 表示 fixture 就绪后缓存中仍没有期望输出。
var ErrExpectedNotCached = errors.New("缓存中没有期望输出")

func readCachedExpected(store cache.Store) ([]byte, error) {
	b, ok, err := store.Read(fixture.ExpectedName)
	if err != nil {
		return nil, fmt.Errorf("读取缓存的期望输出失败：%w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w：%s/%s", ErrExpectedNotCached, store.Root, fixture.ExpectedName)
	}
	return b, nil
}

// TrackResult 是一次 track 的结果。
type TrackResult struct {
	Result
	Version  domain.InputVersion
	DiffPath string
	// Recorded 表示写入了历史文件；Replaced 表示覆盖了相同输入的旧记录。
	Recorded bool
	Replaced bool
}

// Track 用缓存中的期望输出比较 actualPath，保存实际输出与 output.diff，
// record 为 true 时把汇总写入历史文件。
func Track(ctx context.Context, eff config.EffectiveConfig, actualPath string, record bool, opt Options) (TrackResult, error) {
	opt, err := opt.normalize(eff)
	if err != nil {
		return TrackResult{}, err
	}
	opt.Obs.OnStart("track", eff)

	// 先校验 renderer_source，避免下载后才发现无法记录。
	if record && eff.RendererSource == "" {
		return TrackResult{}, fmt.Errorf("track 需要 renderer_source（配置文件或 --renderer-source）")
	}

	store, err := cache.New(eff.CacheDir, eff.Rev, false)
	if err != nil {
		return TrackResult{}, err
	}
	fr, err := ensure(ctx, eff, store, false, opt)
	if err != nil {
		return TrackResult{}, err
	}

	started := time.Now()
	expected, err := readCachedExpected(store)
	if err != nil {
		return TrackResult{}, err
	}
	actual, err := os.ReadFile(actualPath)
	if err != nil {
		return TrackResult{}, fmt.Errorf("读取实际输出失败：%w", err)
	}
	if err := store.Write(fixture.ActualName, actual); err != nil {
		return TrackResult{}, err
	}
	opt.Obs.OnPhaseDone("extract", map[string]any{
		"expected_bytes": len(expected),
		"actual_bytes":   len(actual),
	}, time.Since(started))

	expectedPath, _ := store.Path(fixture.ExpectedName)
	savedPath, _ := store.Path(fixture.ActualName)
	res, err := compareTexts(ctx, eff, expectedPath, savedPath, string(expected), string(actual), started, opt)
	if err != nil {
		return TrackResult{}, err
	}
	tr := TrackResult{Result: res}

	phase := time.Now()
	p, err := res.Patch()
	if err != nil {
		return tr, err
	}
	if err := store.Write(fixture.DiffName, []byte(p)); err != nil {
		return tr, err
	}
	tr.DiffPath, _ = store.Path(fixture.DiffName)
	opt.Obs.OnPhaseDone("patch", map[string]any{"bytes": len(p)}, time.Since(phase))

	if !record {
		return tr, nil
	}

	phase = time.Now()
	tr.Version, err = history.NewInputVersion(eff.Rev, fr.CSL.Updated, eff.RendererSource)
	if err != nil {
		return tr, err
	}
	hf, err := history.Load(eff.History)
	if err != nil {
		return tr, err
	}
	tr.Replaced = hf.Upsert(domain.HistoryRecord{InputVersion: tr.Version, Output: res.Report.Summary})
	if err := hf.Save(eff.History); err != nil {
		return tr, err
	}
	tr.Recorded = true
	opt.Obs.OnPhaseDone("history", map[string]any{
		"records":  len(hf.Records),
		"replaced": tr.Replaced,
	}, time.Since(phase))
	return tr, nil
}

// WritePatch 把 r 的统一 diff 原子写入 path。
func WritePatch(path string, r Result) error {
	p, err := r.Patch()
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, []byte(p))
}

func nonNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
