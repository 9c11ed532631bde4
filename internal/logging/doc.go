// Package logging provides structured logging for mcpm on top of log/slog.
//
// Text output goes through [Handler], which colors levels on a terminal and
// masks secret-looking values. JSON output uses slog's JSON handler.
// [MultiHandler] fans records out to several handlers (terminal plus
// --log-file).
//
// Loggers travel in a context:
//
//	ctx = logging.NewContext(ctx, logger)
//	logging.FromContext(ctx).Debug("merged", "servers", n)
//
// Tests use [ForTest] so log lines appear only on failure or with -v.
package logging
