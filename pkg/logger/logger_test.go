package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitValidatesInput(t *testing.T) {
	_, err := Init("verbose", "json")
	require.Error(t, err)

	_, err = Init("info", "xml")
	require.Error(t, err)

	l, err := Init("DEBUG", "console")
	require.NoError(t, err)
	require.Same(t, l, L())
	Sync()
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	global := zap.NewNop()
	Set(global)
	require.Same(t, global, FromContext(context.Background()))

	scoped := global.With(zap.String("request_id", "abc"))
	ctx := WithContext(context.Background(), scoped)
	require.Same(t, scoped, FromContext(ctx))
}
