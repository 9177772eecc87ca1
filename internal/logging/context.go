// internal/logging/context.go
package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Surface names the entry point that received an exchange.
type Surface string

const (
	SurfaceHTTP Surface = "http"
	SurfaceMCP  Surface = "mcp"
	SurfaceCLI  Surface = "cli"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	surfaceKey
	loggerKey
)

// ContextFields returns the correlation fields carried by ctx: trace and
// span ids, request id and surface. Exchange text is never in ctx.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.Stringer("trace_id", sc.TraceID()),
			zap.Stringer("span_id", sc.SpanID()))
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if s := SurfaceFromContext(ctx); s != "" {
		fields = append(fields, zap.String("surface", string(s)))
	}
	return fields
}

const maxIDLen = 128

// validID accepts 1 to maxIDLen ASCII letters, digits, '-' and '_'.
func validID(id string) bool {
	if id == "" || len(id) > maxIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// WithRequestID attaches a client supplied request id. Ids that are empty,
// too long or contain other characters are dropped.
func WithRequestID(ctx context.Context, id string) context.Context {
	if !validID(id) {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithSurface records which entry point is handling the exchange.
func WithSurface(ctx context.Context, s Surface) context.Context {
	return context.WithValue(ctx, surfaceKey, s)
}

func SurfaceFromContext(ctx context.Context) Surface {
	s, _ := ctx.Value(surfaceKey).(Surface)
	return s
}

func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored by WithLogger, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Nop()
}
