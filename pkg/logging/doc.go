// Package logging provides structured logging utilities for the deployer.
//
// # Overview
//
// This package wraps the standard library slog package with defaults used
// across every command: records go to stderr, carry module and version
// attributes, and include source locations when debug logging is enabled.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: rendered controller commands and registry digests, with source location
//   - INFO: stage transitions and outcomes (default)
//   - WARN/WARNING: recoverable conditions, e.g. a failed deletion during a clean sweep
//   - ERROR: the failure that terminates an invocation
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLoggerWithLevel("gitops-deployer", version, "info")
//	    slog.Info("promoting image", "repository", repo, "tag", tag)
//	}
//
// # Environment Configuration
//
// LOG_LEVEL controls verbosity when no explicit level is passed. LOG_FORMAT
// selects the handler: "json" (default) or "text" for CI logs read by humans.
//
//	LOG_LEVEL=debug LOG_FORMAT=text gitops-deployer
//
// # Output Format
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "image promoted",
//	    "module": "gitops-deployer",
//	    "version": "v1.0.0",
//	    "repository": "acme/billing",
//	    "tag": "dev"
//	}
package logging
