// Package log provides scrubbed logging for threadsnap, built on top of
// the standard slog package.
//
// This package extends slog to provide:
//   - Masking of session credentials (cookies, authorization headers)
//   - Truncation of oversized string attributes such as markup fragments
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Scrubbing
//
// threadsnap attaches the configured Cookie header to every request, so a
// debug log line can carry a live forum session. The ScrubHandler masks
// credential-bearing attributes before they reach the underlying handler.
// It also cuts string attributes at MaxAttrLen runes: debug logging of the
// extraction pipeline would otherwise dump entire thread documents to the
// terminal.
//
// # Usage
//
//	// Create a scrubbed logger
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Debug("page fetched",
//	    "cookie", "session=abc123",  // Masked
//	    "url", "https://bbs.example.com/thread-1843321-1-1.html",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
//
// The handler wraps any slog.Handler, so it also covers libraries that
// accept a *slog.Logger (including tornago).
package log
