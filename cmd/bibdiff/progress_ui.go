package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/bibdiff/internal/app/run"
	"github.com/John-Robertt/bibdiff/internal/config"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的简洁进度输出。
//
// 过程信息只写 stderr（或 fallback 到 stdout 终端），不影响 stdout 的 JSON 输出。
type progressUI struct {
	w io.Writer

	mu        sync.Mutex
	startedAt time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(cmd string, eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] bibdiff %s\n", now.Format("15:04:05"), cmd)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigFile != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigFile)
	}
	fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
	if cmd != "compare" {
		fmt.Fprintf(p.w, "  cache: %s (rev %s)\n", eff.CacheDir, eff.Rev)
		fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	}
	if cmd == "track" {
		fmt.Fprintf(p.w, "  history: %s\n", eff.History)
		fmt.Fprintf(p.w, "  renderer: %s\n", truncate(eff.RendererSource, 120))
	}
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "fixture":
		fmt.Fprintf(p.w, "fixture: downloaded=%d cached=%d csl=%v (%s)\n",
			intField(fields, "downloaded"), intField(fields, "cached"), fields["csl_updated"], formatShortDuration(dur),
		)
	case "extract":
		fmt.Fprintf(p.w, "读取: expected=%dB actual=%dB (%s)\n",
			intField(fields, "expected_bytes"), intField(fields, "actual_bytes"), formatShortDuration(dur),
		)
	case "compare":
		fmt.Fprintf(p.w, "分类: entries=%d diff=%d (%s)\n",
			intField(fields, "entries"), intField(fields, "diff"), formatShortDuration(dur),
		)
	case "patch":
		fmt.Fprintf(p.w, "patch: %dB (%s)\n", intField(fields, "bytes"), formatShortDuration(dur))
	case "history":
		fmt.Fprintf(p.w, "历史: records=%d replaced=%v (%s)\n",
			intField(fields, "records"), fields["replaced"], formatShortDuration(dur),
		)
	default:
		// 未知阶段也不要静默。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func pickProgressWriter(stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr。
	if isTTY(stderr) {
		return stderr, true
	}
	return nil, false
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
