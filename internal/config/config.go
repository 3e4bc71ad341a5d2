package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// FileName 是 cwd 下默认读取的配置文件名（可选）。
const FileName = "bibdiff.json"

const (
	DefaultCacheDir         = ".cache/bibdiff"
	DefaultHistory          = "history.yaml"
	DefaultConcurrency      = 4
	DefaultLogLevel         = "info"
	DefaultRev              = "ce0786d7"
	DefaultStylesBaseURL    = "https://github.com/zotero-chinese/styles/raw"
	DefaultSanitizerBaseURL = "https://typst-doc-cn.github.io/csl-sanitizer"
)

// CLIArgs 是 CLI 可覆盖的配置项，并保留“是否显式指定”的信息。
// 这样 --concurrency=1 之类与默认值相同的显式参数也能覆盖配置文件。
type CLIArgs struct {
	// ConfigPath 非空时必须存在；为空时尝试 <cwd>/bibdiff.json。
	ConfigPath string

	CacheDir    string
	CacheDirSet bool

	History    string
	HistorySet bool

	Concurrency    int
	ConcurrencySet bool

	LogLevel    string
	LogLevelSet bool

	Rev    string
	RevSet bool

	RendererSource    string
	RendererSourceSet bool
}

// FileConfig 对应 bibdiff.json 的解析结构。
type FileConfig struct {
	CacheDir       string         `json:"cache_dir"`
	History        string         `json:"history"`
	Concurrency    int            `json:"concurrency"`
	LogLevel       string         `json:"log_level"`
	Proxy          *ProxyConfig   `json:"proxy"`
	RendererSource string         `json:"renderer_source"`
	Fixture        *FixtureConfig `json:"fixture"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

type FixtureConfig struct {
	Rev              string `json:"rev"`
	StylesBaseURL    string `json:"styles_base_url"`
	SanitizerBaseURL string `json:"sanitizer_base_url"`
}

// EffectiveConfig 是合并并规范化后的最终配置；路径均为绝对路径。
type EffectiveConfig struct {
	// ConfigFile 是实际读取的配置文件；未读取时为空。
	ConfigFile string

	CacheDir    string
	History     string
	Concurrency int
	LogLevel    zapcore.Level
	ProxyURL    string

	// RendererSource 为空表示未配置；track 需要它组成 InputVersion。
	RendererSource string

	Rev              string
	StylesBaseURL    string
	SanitizerBaseURL string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取配置文件并与 CLI 参数合并。
//
// 覆盖优先级（固定）：CLI 显式参数 > 配置文件 > 内置默认值。
// 相对路径以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath  string
		required bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		required = true
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	eff, err := merge(cwdAbs, cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigFile = cfgPath
	return eff, nil
}

var revRE = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

func merge(cwd string, cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	pick := func(cliVal string, cliSet bool, fileVal, def string) string {
		if cliSet {
			return strings.TrimSpace(cliVal)
		}
		if v := strings.TrimSpace(fileVal); v != "" {
			return v
		}
		return def
	}

	var fx FixtureConfig
	if fc.Fixture != nil {
		fx = *fc.Fixture
	}

	eff := EffectiveConfig{
		CacheDir:         pick(cli.CacheDir, cli.CacheDirSet, fc.CacheDir, DefaultCacheDir),
		History:          pick(cli.History, cli.HistorySet, fc.History, DefaultHistory),
		RendererSource:   pick(cli.RendererSource, cli.RendererSourceSet, fc.RendererSource, ""),
		Rev:              pick(cli.Rev, cli.RevSet, fx.Rev, DefaultRev),
		StylesBaseURL:    pick("", false, fx.StylesBaseURL, DefaultStylesBaseURL),
		SanitizerBaseURL: pick("", false, fx.SanitizerBaseURL, DefaultSanitizerBaseURL),
	}
	if eff.CacheDir == "" {
		return EffectiveConfig{}, errors.New("cache_dir 不能为空")
	}
	if eff.History == "" {
		return EffectiveConfig{}, errors.New("history 不能为空")
	}
	eff.CacheDir = absCleanFrom(cwd, eff.CacheDir)
	eff.History = absCleanFrom(cwd, eff.History)

	concurrency := fc.Concurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	eff.Concurrency = min(max(concurrency, 1), 32)

	level, err := zapcore.ParseLevel(pick(cli.LogLevel, cli.LogLevelSet, fc.LogLevel, DefaultLogLevel))
	if err != nil {
		return EffectiveConfig{}, fmt.Errorf("log_level 无效：%w", err)
	}
	eff.LogLevel = level

	if fc.Proxy != nil {
		eff.ProxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 缺少 scheme 或 host：%q", eff.ProxyURL)
		}
	}

	if eff.RendererSource != "" && !strings.HasPrefix(eff.RendererSource, "git+https://") {
		return EffectiveConfig{}, fmt.Errorf("renderer_source 必须以 git+https:// 开头：%q", eff.RendererSource)
	}
	if !revRE.MatchString(eff.Rev) {
		return EffectiveConfig{}, fmt.Errorf("fixture.rev 必须是至少 7 位的小写十六进制 git 修订：%q", eff.Rev)
	}
	if err := validateBaseURL(&eff.StylesBaseURL); err != nil {
		return EffectiveConfig{}, fmt.Errorf("fixture.styles_base_url %w", err)
	}
	if err := validateBaseURL(&eff.SanitizerBaseURL); err != nil {
		return EffectiveConfig{}, fmt.Errorf("fixture.sanitizer_base_url %w", err)
	}
	return eff, nil
}

func validateBaseURL(raw *string) error {
	s := strings.TrimRight(*raw, "/")
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("无效：%q", *raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("必须是 http/https：%q", *raw)
	}
	*raw = s
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件；未知字段视为错误。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
