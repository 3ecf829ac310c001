// Package debug provides category-based debug logging for chatrelay.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): CHATRELAY_DEBUG env or the log.debug config key
//   - Levels (HOW MUCH detail): CHATRELAY_LOG_LEVEL env or the log.level config key
//
// Usage:
//
//	debug.Log("provider", "stream opened", "model", model)
//	if debug.Enabled("stream") { /* expensive formatting */ }
//
// Categories: provider, stream, tools, mcp, transport, config, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// LevelTrace is below slog.LevelDebug for maximum verbosity.
// At TRACE, full frame payloads and upstream chunks are logged.
const LevelTrace = slog.LevelDebug - 4

// categories is written by Setup at startup and read-only afterwards.
var categories = parseCategories(os.Getenv("CHATRELAY_DEBUG"))

// Options configures the process logger.
type Options struct {
	// Categories is a comma separated list of enabled debug categories.
	Categories string
	// Level is one of TRACE, DEBUG, INFO, WARN, ERROR.
	Level string
	// Format is "text" (default) or "json".
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Setup installs the default slog logger and the enabled categories.
// Environment variables take precedence over opts.
func Setup(opts Options) *slog.Logger {
	cats := os.Getenv("CHATRELAY_DEBUG")
	if cats == "" {
		cats = opts.Categories
	}
	categories = parseCategories(cats)

	level := os.Getenv("CHATRELAY_LOG_LEVEL")
	if level == "" {
		level = opts.Level
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug message for the given category.
// If the category is not enabled, this is a no-op.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category.
// Only visible when CHATRELAY_LOG_LEVEL=TRACE.
func Trace(category string, msg string, args ...any) {
	if !TraceEnabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceEnabled reports whether TRACE level is active for the given category.
func TraceEnabled(category string) bool {
	return Enabled(category) && slog.Default().Enabled(context.Background(), LevelTrace)
}

// ParseLevel converts a level string to a slog.Level. Unknown values map to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	result := make([]string, 0, len(categories))
	for k := range categories {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Truncate returns s truncated to maxLen bytes, with "..." appended if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
