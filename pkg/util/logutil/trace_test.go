package logutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"

	"github.com/lk2023060901/model-serializer-go/pkg/log"
)

func TestWithLevelAndTrace(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithLevelAndTrace(ctx, ""))
	assert.Equal(t, ctx, WithLevelAndTrace(ctx, "not-a-level"))

	errorCtx := WithLevelAndTrace(ctx, "error")
	assert.False(t, log.Ctx(errorCtx).Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Ctx(errorCtx).Core().Enabled(zapcore.ErrorLevel))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	assert.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	assert.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	traced := WithLevelAndTrace(trace.ContextWithSpanContext(ctx, sc), "")
	assert.NotEqual(t, ctx, traced)
}
