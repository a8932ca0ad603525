// Package logger provides a colored slog console handler for the loader.
//
// Levels are colorized for terminals: warnings yellow, errors red, and
// database write milestones (messages mentioning loading or persisting)
// green, so long load runs are easy to scan.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ANSI color codes used by the console handler.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// Options configures a console logger.
type Options struct {
	// Level is the minimum level to emit.
	Level slog.Leveler
	// NoColor disables ANSI colors (for files and CI logs).
	NoColor bool
	// TimeFormat overrides the timestamp layout. Defaults to time.Kitchen.
	TimeFormat string
}

// ConsoleHandler is a slog.Handler that writes human-oriented colored lines.
type ConsoleHandler struct {
	opts   Options
	mu     *sync.Mutex
	w      io.Writer
	attrs  []slog.Attr
	groups []string
}

// NewConsoleHandler creates a handler writing to w.
func NewConsoleHandler(w io.Writer, opts *Options) *ConsoleHandler {
	h := &ConsoleHandler{
		mu: &sync.Mutex{},
		w:  w,
	}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	if h.opts.TimeFormat == "" {
		h.opts.TimeFormat = time.Kitchen
	}
	return h
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder

	if !r.Time.IsZero() {
		sb.WriteString(r.Time.Format(h.opts.TimeFormat))
		sb.WriteByte(' ')
	}

	color := h.messageColor(r)
	level := r.Level.String()
	if color != "" {
		sb.WriteString(color)
	}
	sb.WriteString(level)
	sb.WriteByte(' ')
	sb.WriteString(r.Message)

	appendAttr := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		sb.WriteByte(' ')
		if len(h.groups) > 0 {
			sb.WriteString(strings.Join(h.groups, "."))
			sb.WriteByte('.')
		}
		sb.WriteString(a.Key)
		sb.WriteByte('=')
		sb.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(a)
		return true
	})

	if color != "" {
		sb.WriteString(colorReset)
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

// messageColor picks the ANSI color for a record.
func (h *ConsoleHandler) messageColor(r slog.Record) string {
	if h.opts.NoColor {
		return ""
	}
	switch {
	case r.Level >= slog.LevelError:
		return colorRed
	case r.Level >= slog.LevelWarn:
		return colorYellow
	case r.Level < slog.LevelInfo:
		return colorGray
	}
	// Highlight database write milestones.
	msg := strings.ToLower(r.Message)
	for _, kw := range []string{"loaded", "loading", "persist", "deleted", "created"} {
		if strings.Contains(msg, kw) {
			return colorGreen
		}
	}
	return ""
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &h2
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(append([]string{}, h.groups...), name)
	return &h2
}

// NewLogger creates a logger writing colored lines to w.
func NewLogger(w io.Writer, opts *Options) *slog.Logger {
	return slog.New(NewConsoleHandler(w, opts))
}

// NewDefaultLogger creates a stderr logger at the given level with colors
// enabled.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return NewLogger(os.Stderr, &Options{Level: level})
}

// ParseLevel converts a config string (debug, info, warn, error) to a level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
