package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "bmadchat.log")
	l, err := New(Options{Level: "info", File: path})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("catalog built", zap.Int("agents", 3))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "catalog built")
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_NopWithoutOutputs(t *testing.T) {
	l, err := New(Options{})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.ErrorLevel))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Options{Level: "chatty", File: filepath.Join(t.TempDir(), "x.log")})
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	l, logs := TestLogger()
	ctx := With(WithLogger(context.Background(), l), zap.String("request_id", "r1"))

	FromContext(ctx).Info("turn")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "r1", logs.All()[0].ContextMap()["request_id"])

	assert.NotNil(t, FromContext(context.Background()))

	fallback := zap.NewNop()
	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))
	assert.Same(t, l, FromContextOr(WithLogger(context.Background(), l), fallback))
}
