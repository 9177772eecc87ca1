package logging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSampledCore_WarningsAndErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	sampled := newSampledCore(core, SamplingConfig{Enabled: true, Tick: time.Minute, Initial: 2, Thereafter: 0})
	logger := zap.New(sampled)

	for i := 0; i < 10; i++ {
		logger.Info("exchange flushed")
		logger.Warn("model reload failed")
		logger.Error("append failed")
	}

	assert.Equal(t, 2, observed.FilterMessage("exchange flushed").Len())
	assert.Equal(t, 10, observed.FilterMessage("model reload failed").Len())
	assert.Equal(t, 10, observed.FilterMessage("append failed").Len())
}

func TestSampledCore_Disabled(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := zap.New(newSampledCore(core, SamplingConfig{Enabled: false}))

	for i := 0; i < 10; i++ {
		logger.Info("exchange flushed")
	}
	assert.Equal(t, 10, observed.Len())
}

func TestLevelRange(t *testing.T) {
	core, _ := observer.New(TraceLevel)

	r := &levelRange{Core: core, lo: zapcore.DebugLevel, hi: zapcore.WarnLevel}
	assert.False(t, r.Enabled(TraceLevel))
	assert.True(t, r.Enabled(zapcore.DebugLevel))
	assert.True(t, r.Enabled(zapcore.InfoLevel))
	assert.False(t, r.Enabled(zapcore.WarnLevel))

	child := r.With(nil).(*levelRange)
	assert.Equal(t, r.lo, child.lo)
	assert.Equal(t, r.hi, child.hi)
}
