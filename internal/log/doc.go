// Package log provides slog loggers that keep document contents and
// credentials out of log output.
//
// The RedactingHandler wraps any slog.Handler and rewrites attributes
// before they are written:
//   - Credential values (authorization headers, API keys, tokens) are
//     replaced with MaskValue, whether detected by key name or by value
//     shape such as "Bearer ..." or a JWT.
//   - Document text (keys such as "text", "snippet" and "section_text")
//     is cut to MaxTextLength runes, so logs never carry whole pages of a
//     confidential document.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Debug("embedding request",
//	    "authorization", "Bearer abc",   // logged as ***REDACTED***
//	    "section_text", longSectionText, // logged as the first runes only
//	)
package log
