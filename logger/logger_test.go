package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	l, err := New("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = New("loud")
	assert.Error(t, err)
}

func TestNewWithSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWithSink(zapcore.WarnLevel, zapcore.AddSync(&buf))

	l.Info("hidden")
	l.Warn("vault busy", zap.String("path", "/tmp/v"))
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "vault busy")
	assert.Contains(t, out, "run")
}
