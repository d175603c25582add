// Package logging provides structured logging for kasascan.
//
// This package wraps zap with convenience functions for the logging
// patterns used throughout the tool. CLI output (tables, JSON, CSV)
// goes to stdout through the render package; diagnostics go to stderr
// through this package so the two never interleave.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (dropped replies, per-device refresh failures)
//   - Info: Normal operations (round summaries, persisted files)
//   - Warn: Non-fatal issues (probe send failures, degraded sessions)
//   - Error: Fatal issues (socket creation, storage write failures)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device refreshed",
//	    zap.String("host", "192.168.1.100"),
//	    zap.String("mac", "98:25:4A:5F:4E:6F"),
//	)
//
// # Configuration
//
// Logging is silent by default so scan output stays pipeable. Set
// KASASCAN_LOG_LEVEL to enable it:
//
//	KASASCAN_LOG_LEVEL=debug kasascan scan
//
// Commands initialize it once at startup:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
