package logutil

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"

	"github.com/lk2023060901/model-serializer-go/pkg/log"
)

// WithLevelAndTrace 在上下文中注入日志级别与 TraceID，之后 log.Ctx(ctx) 会带上它们。
//
// level 为空或无法解析时保持原有级别；TraceID 取自上下文中的 span。
func WithLevelAndTrace(ctx context.Context, level string) context.Context {
	newctx := ctx
	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err == nil {
			newctx = log.WithLogLevel(newctx, lvl)
		}
	}

	traceID := trace.SpanContextFromContext(newctx).TraceID()
	if traceID.IsValid() {
		newctx = log.WithTraceID(newctx, traceID.String())
	}
	return newctx
}
