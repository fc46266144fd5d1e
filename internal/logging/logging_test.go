package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewProducesUsableLoggerAtBothVerbosityLevels(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		l := New(verbose)
		require.NotNil(t, l)
		assert.NotPanics(t, func() {
			l.Infow("hello", "k", "v")
			l.Debugw("debug line", "k", "v")
			l.Warnw("warn line", "k", "v")
		})
	}
}

func TestNewGatesDebugLevelOnVerbose(t *testing.T) {
	quiet := New(false)
	assert.False(t, quiet.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, quiet.Desugar().Core().Enabled(zapcore.InfoLevel))

	verbose := New(true)
	assert.True(t, verbose.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestNoopDiscardsEverythingWithoutPanicking(t *testing.T) {
	l := Noop()
	require.NotNil(t, l)
	assert.NotPanics(t, func() {
		l.Infow("ignored", "k", "v")
		l.Errorw("also ignored", "k", "v")
	})
}
