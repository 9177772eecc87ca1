// internal/logging/sampling.go
package logging

import (
	"math"

	"go.uber.org/zap/zapcore"
)

// newSampledCore samples the per-exchange chatter below Warn. Warnings and
// errors are always written.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}
	loud := &levelRange{Core: core, lo: zapcore.WarnLevel, hi: zapcore.InvalidLevel}
	chatter := &levelRange{Core: core, lo: math.MinInt8, hi: zapcore.WarnLevel}
	return zapcore.NewTee(loud, zapcore.NewSamplerWithOptions(chatter, cfg.Tick, cfg.Initial, cfg.Thereafter))
}

// levelRange admits entries with lo <= level < hi.
type levelRange struct {
	zapcore.Core
	lo, hi zapcore.Level
}

func (r *levelRange) Enabled(lvl zapcore.Level) bool {
	return lvl >= r.lo && lvl < r.hi && r.Core.Enabled(lvl)
}

func (r *levelRange) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !r.Enabled(e.Level) {
		return ce
	}
	return r.Core.Check(e, ce)
}

func (r *levelRange) With(fields []zapcore.Field) zapcore.Core {
	return &levelRange{Core: r.Core.With(fields), lo: r.lo, hi: r.hi}
}
