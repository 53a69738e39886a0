package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// ColorTextHandler implements slog.Handler with human-oriented text
// output, coloring the level and attribute keys when the writer is a
// terminal.
type ColorTextHandler struct {
	opts     *slog.HandlerOptions
	w        io.Writer
	mu       *sync.Mutex
	attrs    []slog.Attr
	groups   []string
	useColor bool
}

// NewColorTextHandler creates a new ColorTextHandler.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, useColor bool) *ColorTextHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ColorTextHandler{
		opts:     opts,
		w:        w,
		mu:       &sync.Mutex{},
		useColor: useColor,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *ColorTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes a log record. The buffer is built outside the
// lock; only the write is serialized.
func (h *ColorTextHandler) Handle(_ context.Context, r slog.Record) error {
	var buf []byte
	buf = fmt.Appendf(buf, "[%s] [%s] %s",
		r.Time.Format("2006-01-02 15:04:05"), h.formatLevel(r.Level), r.Message)

	for _, attr := range h.attrs {
		buf = h.appendAttr(buf, attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, a)
		return true
	})

	buf = append(buf, '\n')

	h.mu.Lock()
	_, err := h.w.Write(buf)
	h.mu.Unlock()
	return err
}

var levelColors = map[string]string{
	"DEBUG": colorGray,
	"INFO":  colorGreen,
	"WARN":  colorYellow,
	"ERROR": colorRed,
}

// formatLevel returns the level string with optional color.
func (h *ColorTextHandler) formatLevel(level slog.Level) string {
	var name string
	switch {
	case level < slog.LevelInfo:
		name = "DEBUG"
	case level < slog.LevelWarn:
		name = "INFO"
	case level < slog.LevelError:
		name = "WARN"
	default:
		name = "ERROR"
	}

	if h.useColor {
		return levelColors[name] + name + colorReset
	}
	return name
}

// appendAttr formats and appends one attribute, qualifying the key with
// any open groups.
func (h *ColorTextHandler) appendAttr(buf []byte, a slog.Attr) []byte {
	if a.Equal(slog.Attr{}) {
		return buf
	}

	a.Value = a.Value.Resolve()

	key := a.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	val := formatValue(a.Value)

	if h.useColor {
		return fmt.Appendf(buf, " %s%s%s=%s", colorCyan, key, colorReset, val)
	}
	return fmt.Appendf(buf, " %s=%s", key, val)
}

// formatValue formats a slog.Value for text output.
func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return fmt.Sprintf("%d", v.Int64())
	case slog.KindUint64:
		return fmt.Sprintf("%d", v.Uint64())
	case slog.KindFloat64:
		return fmt.Sprintf("%.3f", v.Float64())
	case slog.KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		return fmt.Sprintf("%v", v.Any())
	default:
		return v.String()
	}
}

// WithAttrs returns a new handler with additional pre-bound attrs.
func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorTextHandler{
		opts:     h.opts,
		w:        h.w,
		mu:       h.mu, // share mutex with parent
		attrs:    append(append([]slog.Attr{}, h.attrs...), attrs...),
		groups:   append([]string{}, h.groups...),
		useColor: h.useColor,
	}
}

// WithGroup returns a new handler with a group name.
func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ColorTextHandler{
		opts:     h.opts,
		w:        h.w,
		mu:       h.mu,
		attrs:    append([]slog.Attr{}, h.attrs...),
		groups:   append(append([]string{}, h.groups...), name),
		useColor: h.useColor,
	}
}
