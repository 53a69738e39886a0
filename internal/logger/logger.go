// Package logger provides the process-wide structured logging facade,
// built on log/slog with a colored text handler for terminals and a JSON
// handler for machine consumption.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents log levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Config holds logger configuration.
type Config struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`    // DEBUG, INFO, WARN, ERROR
	Format string `mapstructure:"format" json:"format" yaml:"format"` // text, json
	Output string `mapstructure:"output" json:"output" yaml:"output"` // stdout, stderr, or file path
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value // "text" or "json"

	mu       sync.RWMutex
	slogger  *slog.Logger
	output   io.Writer = os.Stderr
	useColor bool
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	currentFormat.Store("text")

	if f, ok := output.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}

	reconfigure()
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// reconfigure rebuilds the slog handler from the current settings.
func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	levelVar := new(slog.LevelVar)
	levelVar.Set(toSlogLevel(Level(currentLevel.Load())))
	opts := &slog.HandlerOptions{Level: levelVar}

	format, _ := currentFormat.Load().(string)

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = NewColorTextHandler(output, opts, useColor)
	}

	slogger = slog.New(handler)
}

// Init initializes the logger with the given configuration.
// Output can be "stdout", "stderr", or a file path.
func Init(cfg Config) error {
	if cfg.Output != "" {
		mu.Lock()
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			output = os.Stdout
			useColor = isTerminal(os.Stdout.Fd())
		case "stderr":
			output = os.Stderr
			useColor = isTerminal(os.Stderr.Fd())
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				mu.Unlock()
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			output = f
			useColor = false
		}
		mu.Unlock()
	}

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	reconfigure()

	return nil
}

// InitWithWriter initializes the logger with a custom writer, primarily
// for tests.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	mu.Lock()
	output = w
	useColor = enableColor
	mu.Unlock()

	if level != "" {
		SetLevel(level)
	}
	if format != "" {
		SetFormat(format)
	}
	reconfigure()
}

// SetLevel sets the minimum log level. Invalid levels are ignored.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel.Store(int32(LevelDebug))
	case "INFO":
		currentLevel.Store(int32(LevelInfo))
	case "WARN":
		currentLevel.Store(int32(LevelWarn))
	case "ERROR":
		currentLevel.Store(int32(LevelError))
	default:
		return
	}
	reconfigure()
}

// SetFormat sets the output format (text or json). Invalid formats are
// ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	currentFormat.Store(format)
	reconfigure()
}

func getLogger() *slog.Logger {
	mu.RLock()
	l := slogger
	mu.RUnlock()
	return l
}

// ============================================================================
// Structured Logging API
// ============================================================================

// Debug logs at debug level with structured fields.
// Usage: Debug("message", "key1", value1, "key2", value2)
func Debug(msg string, args ...any) {
	if LevelDebug < Level(currentLevel.Load()) {
		return
	}
	getLogger().Debug(msg, args...)
}

// Info logs at info level with structured fields.
func Info(msg string, args ...any) {
	if LevelInfo < Level(currentLevel.Load()) {
		return
	}
	getLogger().Info(msg, args...)
}

// Warn logs at warn level with structured fields.
func Warn(msg string, args ...any) {
	if LevelWarn < Level(currentLevel.Load()) {
		return
	}
	getLogger().Warn(msg, args...)
}

// Error logs at error level with structured fields.
func Error(msg string, args ...any) {
	getLogger().Error(msg, args...)
}

// ============================================================================
// Context-aware Logging API
// ============================================================================

// DebugCtx logs at debug level, prepending the request fields carried by
// the context (trace id, operation, volume, client ip).
func DebugCtx(ctx context.Context, msg string, args ...any) {
	if LevelDebug < Level(currentLevel.Load()) {
		return
	}
	getLogger().Debug(msg, appendContextFields(ctx, args)...)
}

// InfoCtx logs at info level with context fields.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	if LevelInfo < Level(currentLevel.Load()) {
		return
	}
	getLogger().Info(msg, appendContextFields(ctx, args)...)
}

// WarnCtx logs at warn level with context fields.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	if LevelWarn < Level(currentLevel.Load()) {
		return
	}
	getLogger().Warn(msg, appendContextFields(ctx, args)...)
}

// ErrorCtx logs at error level with context fields.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	getLogger().Error(msg, appendContextFields(ctx, args)...)
}

// appendContextFields prepends LogContext fields so they appear first in
// the output.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	ctxArgs := make([]any, 0, 12+len(args))
	if lc.TraceID != "" {
		ctxArgs = append(ctxArgs, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		ctxArgs = append(ctxArgs, KeySpanID, lc.SpanID)
	}
	if lc.RequestID != "" {
		ctxArgs = append(ctxArgs, KeyRequestID, lc.RequestID)
	}
	if lc.Operation != "" {
		ctxArgs = append(ctxArgs, KeyOperation, lc.Operation)
	}
	if lc.Volume != "" {
		ctxArgs = append(ctxArgs, KeyVolume, lc.Volume)
	}
	if lc.ClientIP != "" {
		ctxArgs = append(ctxArgs, KeyClientIP, lc.ClientIP)
	}

	return append(ctxArgs, args...)
}

// With returns a new slog.Logger with additional pre-bound attributes.
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// Duration returns the time elapsed since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
