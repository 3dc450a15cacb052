package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// maskedKeys contains attribute keys whose values are always masked.
// threadsnap sends session cookies with every request; logging them would
// leak a usable forum login.
var maskedKeys = map[string]bool{
	// HTTP headers
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,

	// Session credentials
	"password":   true,
	"passwd":     true,
	"token":      true,
	"session":    true,
	"session_id": true,
	"sessionid":  true,
	"sid":        true,
}

// MaskValue is the string used to replace masked values.
const MaskValue = "***REDACTED***"

// MaxAttrLen is the maximum number of runes a string attribute keeps.
// Debug logging regularly carries markup fragments and whole documents;
// anything longer than this is cut to keep terminal output readable.
const MaxAttrLen = 512

// TruncateMarker is appended to string attributes cut at MaxAttrLen.
const TruncateMarker = "...(truncated)"

// ScrubHandler wraps an slog.Handler to keep log output safe and readable.
// It masks attribute values that carry session credentials and truncates
// oversized string attributes (markup snippets) before passing records to
// the underlying handler. It works with any underlying handler (text,
// JSON) and integrates with standard slog APIs.
type ScrubHandler struct {
	// handler is the underlying slog handler that receives scrubbed records.
	handler slog.Handler
}

// NewScrubHandler creates a new ScrubHandler wrapping the given handler.
// If handler is nil, the returned ScrubHandler uses slog.Default().Handler().
func NewScrubHandler(handler slog.Handler) *ScrubHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &ScrubHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *ScrubHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle scrubs the record's attributes and passes it to the underlying
// handler.
func (h *ScrubHandler) Handle(ctx context.Context, r slog.Record) error {
	scrubbed := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		scrubbed.AddAttrs(h.scrubAttr(a))
		return true
	})

	return h.handler.Handle(ctx, scrubbed)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are scrubbed before being added.
func (h *ScrubHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		scrubbedAttrs[i] = h.scrubAttr(a)
	}
	return &ScrubHandler{handler: h.handler.WithAttrs(scrubbedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *ScrubHandler) WithGroup(name string) slog.Handler {
	return &ScrubHandler{handler: h.handler.WithGroup(name)}
}

// scrubAttr scrubs a single attribute, recursively handling groups.
// Masking is checked before truncation so credentials never survive as a
// truncated prefix.
func (h *ScrubHandler) scrubAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		scrubbedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			scrubbedAttrs[i] = h.scrubAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(scrubbedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if maskedKeys[keyLower] || containsMaskedKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		if trimmed, cut := truncateValue(a.Value.String()); cut {
			return slog.String(a.Key, trimmed)
		}
	}

	return a
}

// containsMaskedKeyword checks if the key contains a credential keyword.
// The bare "key" keyword is intentionally excluded: it causes false
// positives ("cache_key", "sort_key", "monkey").
func containsMaskedKeyword(key string) bool {
	maskedKeywords := []string{
		"password", "passwd", "token", "cookie", "session",
	}

	for _, keyword := range maskedKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// truncateValue cuts a string to MaxAttrLen runes. The second return
// value reports whether anything was cut.
func truncateValue(value string) (string, bool) {
	runes := []rune(value)
	if len(runes) <= MaxAttrLen {
		return value, false
	}
	return string(runes[:MaxAttrLen]) + TruncateMarker, true
}

// NewLogger creates a new slog.Logger with scrubbed text output.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger (including tornago).
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	scrubHandler := NewScrubHandler(textHandler)

	return slog.New(scrubHandler)
}

// NewJSONLogger creates a new slog.Logger with scrubbed JSON output.
// Useful for structured log aggregation.
//
// Parameters:
//   - w: The io.Writer to write log output to
//   - verbose: If true, sets log level to Debug; otherwise Warn
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	scrubHandler := NewScrubHandler(jsonHandler)

	return slog.New(scrubHandler)
}
