package run

import (
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/bibdiff/internal/config"
)

// Observer 把阶段进度从执行流程中解耦出来。
//
// 约束：run 包只发事件，不写 stdout（stdout 留给报告）。
type Observer interface {
	// OnStart 在一次 fetch/compare/track 开始时调用。
	OnStart(cmd string, eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（fixture/extract/compare/patch/history）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
}

// LogObserver 把事件写成结构化日志。
type LogObserver struct {
	Log *zap.Logger
}

func (o LogObserver) OnStart(cmd string, eff config.EffectiveConfig) {
	o.Log.Info("start",
		zap.String("cmd", cmd),
		zap.String("config", eff.ConfigFile),
		zap.String("cache_dir", eff.CacheDir),
		zap.String("rev", eff.Rev),
		zap.Int("concurrency", eff.Concurrency),
	)
}

func (o LogObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	zf := make([]zap.Field, 0, len(fields)+2)
	zf = append(zf, zap.String("phase", name), zap.Duration("elapsed", dur))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	o.Log.Info("phase done", zf...)
}

type nopObserver struct{}

func (nopObserver) OnStart(string, config.EffectiveConfig)            {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration) {}
