package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/John-Robertt/bibdiff/internal/app/run"
	"github.com/John-Robertt/bibdiff/internal/config"
	"github.com/John-Robertt/bibdiff/internal/history"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := newApp(os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// usageError 表示命令行用法错误（退出码 2）。
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageArgs(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := v(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

type app struct {
	stdout io.Writer
	stderr io.Writer

	cli config.CLIArgs
	eff config.EffectiveConfig
	log *zap.Logger

	// 以下字段便于测试替换。
	newLogger func(zapcore.Level) (*zap.Logger, error)
	client    *http.Client
	getwd     func() (string, error)
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:    stdout,
		stderr:    stderr,
		newLogger: newLogger,
		getwd:     os.Getwd,
	}
}

// newLogger 构造写 stderr 的生产日志；stdout 只留给报告。
func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// execute 运行命令并返回退出码：0 成功，1 运行失败，2 用法错误。
func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if a.log != nil {
		_ = a.log.Sync()
	}
	if err == nil {
		return 0
	}

	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(a.stderr, "参数错误：%v\n使用 \"bibdiff --help\" 查看用法。\n", err)
		return 2
	}
	if c := config.Code(err); c != "" {
		fmt.Fprintf(a.stderr, "配置错误：%v\n", err)
		return 1
	}
	fmt.Fprintf(a.stderr, "失败：%v\n", err)
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bibdiff",
		Short: "对参考文献渲染结果与期望输出逐行分类差异",
		Long: `bibdiff 比较 GB/T 7714—2015（顺序编码，双语）的期望输出与渲染引擎的实际输出，
为每一对不同的行找出能解释差异的最小忽略动作组合，并汇总、追踪历史趋势。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("未知命令：%q", args[0])}
			}
			return cmd.Help()
		},
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.cli.ConfigPath, "config", "", "配置文件路径（默认读取 ./bibdiff.json，若存在）")
	pf.StringVar(&a.cli.CacheDir, "cache-dir", "", "fixture 缓存目录（默认 "+config.DefaultCacheDir+"）")
	pf.StringVar(&a.cli.History, "history", "", "历史文件路径（默认 "+config.DefaultHistory+"）")
	pf.IntVarP(&a.cli.Concurrency, "concurrency", "j", 0, "并发分类的 worker 数，范围 [1, 32]")
	pf.StringVar(&a.cli.LogLevel, "log-level", "", "日志级别：debug|info|warn|error")
	pf.StringVar(&a.cli.Rev, "rev", "", "zotero-chinese/styles 的 git 修订（默认 "+config.DefaultRev+"）")
	pf.StringVar(&a.cli.RendererSource, "renderer-source", "", "渲染引擎的 Cargo.lock source（git+https://…）")

	root.AddCommand(a.compareCmd(), a.fetchCmd(), a.trackCmd(), a.historyCmd())
	return root
}

// setup 合并配置并构造 logger；所有子命令共用。
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	a.cli.CacheDirSet = f.Changed("cache-dir")
	a.cli.HistorySet = f.Changed("history")
	a.cli.ConcurrencySet = f.Changed("concurrency")
	a.cli.LogLevelSet = f.Changed("log-level")
	a.cli.RevSet = f.Changed("rev")
	a.cli.RendererSourceSet = f.Changed("renderer-source")

	cwd, err := a.getwd()
	if err != nil {
		return fmt.Errorf("读取当前目录失败：%w", err)
	}
	eff, err := config.LoadEffective(cwd, a.cli)
	if err != nil {
		return err
	}
	a.eff = eff

	log, err := a.newLogger(eff.LogLevel)
	if err != nil {
		return fmt.Errorf("初始化日志失败：%w", err)
	}
	a.log = log
	return nil
}

func (a *app) options() run.Options {
	opt := run.Options{Log: a.log, Client: a.client}
	if w, ok := pickProgressWriter(a.stderr); ok {
		opt.Obs = newProgressUI(w)
	} else {
		opt.Obs = run.LogObserver{Log: a.log}
	}
	return opt
}

type reportFlags struct {
	details bool
	summary bool
	json    bool
}

func (r *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&r.details, "details", false, "逐条输出差异")
	cmd.Flags().BoolVar(&r.summary, "summary", true, "输出汇总（--summary=false 关闭）")
	cmd.Flags().BoolVar(&r.json, "json", false, "输出 JSON 报告（stdout 非终端时默认）")
}

func (a *app) wantJSON(flag bool) bool {
	return flag || !isTTY(a.stdout)
}

func (a *app) compareCmd() *cobra.Command {
	var (
		rf        reportFlags
		patchPath string
	)
	cmd := &cobra.Command{
		Use:   "compare EXPECTED ACTUAL",
		Short: "比较两个输出文件（EXPECTED 可以是 .html、index.md 或纯文本）",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run.Compare(cmd.Context(), a.eff, args[0], args[1], a.options())
			if err != nil {
				return err
			}
			if patchPath != "" {
				if err := run.WritePatch(patchPath, res); err != nil {
					return fmt.Errorf("写入 patch 失败：%w", err)
				}
			}
			if a.wantJSON(rf.json) {
				return emitJSON(a.stdout, res.Report)
			}
			renderReport(a.stdout, res.Report, rf.details, rf.summary)
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&patchPath, "patch", "", "把统一 diff 写入该文件")
	return cmd
}

func (a *app) fetchCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "下载缺失的 fixture 到缓存目录",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			fr, err := run.Fetch(cmd.Context(), a.eff, force, a.options())
			if err != nil {
				return err
			}
			for _, n := range fr.Downloaded {
				fmt.Fprintf(a.stdout, "downloaded: %s\n", n)
			}
			for _, n := range fr.Cached {
				fmt.Fprintf(a.stdout, "cached: %s\n", n)
			}
			fmt.Fprintf(a.stdout, "CSL version: %s\n", fr.CSL.Updated)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "忽略缓存，重新下载全部 fixture")
	return cmd
}

func (a *app) trackCmd() *cobra.Command {
	var (
		rf       reportFlags
		actual   string
		noRecord bool
	)
	cmd := &cobra.Command{
		Use:   "track --actual FILE",
		Short: "用缓存的期望输出比较 FILE，并把汇总写入历史文件",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if actual == "" {
				return usageError{errors.New("缺少 --actual")}
			}
			tr, err := run.Track(cmd.Context(), a.eff, actual, !noRecord, a.options())
			if err != nil {
				return err
			}
			if a.wantJSON(rf.json) {
				if err := emitJSON(a.stdout, tr.Report); err != nil {
					return err
				}
			} else {
				renderReport(a.stdout, tr.Report, rf.details, rf.summary)
			}

			fmt.Fprintf(a.stderr, "\n可以用 VS Code 对比两份输出：\n    code --diff %s %s\n", tr.Report.Expected, tr.Report.Actual)
			fmt.Fprintf(a.stderr, "diff: %s\n", tr.DiffPath)
			if tr.Recorded {
				verb := "appended"
				if tr.Replaced {
					verb = "replaced"
				}
				fmt.Fprintf(a.stderr, "history: %s (%s)\n", a.eff.History, verb)
			}
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&actual, "actual", "", "渲染引擎的实际输出（纯文本，每条一行）")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "不写入历史文件")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "输出历史记录的趋势",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			hf, err := history.Load(a.eff.History)
			if err != nil {
				return err
			}
			rows := hf.Trend()
			if a.wantJSON(asJSON) {
				return emitJSON(a.stdout, rows)
			}
			renderTrend(a.stdout, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "输出 JSON（stdout 非终端时默认）")
	return cmd
}

func emitJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
