package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped logging fields that the *Ctx logging
// functions prepend to every line.
type LogContext struct {
	TraceID   string // OpenTelemetry trace ID
	SpanID    string // OpenTelemetry span ID
	RequestID string // HTTP request ID
	Operation string // catalog operation (SaveAsset, EnsureFolderPath, ...)
	Volume    string // volume name or id
	ClientIP  string // client IP address (without port)
	StartTime time.Time
}

// WithContext returns a new context carrying the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from ctx, or nil if not present.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext stamped with the current time.
func NewLogContext() *LogContext {
	return &LogContext{StartTime: time.Now()}
}

// Clone returns a copy of the LogContext.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	copied := *lc
	return &copied
}

// WithOperation returns a copy with the operation set.
func (lc *LogContext) WithOperation(op string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = op
	}
	return clone
}

// WithVolume returns a copy with the volume set.
func (lc *LogContext) WithVolume(volume string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Volume = volume
	}
	return clone
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the time elapsed since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
