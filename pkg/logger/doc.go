// Package logger provides the structured logging interface used across walldo.
//
// It wraps zerolog behind a small Logger interface so packages can accept a
// logger without importing zerolog, and tests can swap in NewNopLogger or the
// capturing NewTestLogger.
//
// Console lines go to stderr, colored when stderr is a terminal. When a log
// file is configured every line is also appended to it as JSON.
//
// Basic Usage:
//
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File:  "/var/log/walldo.log",
//	}
//	if err := logger.Initialize(cfg); err != nil {
//	    ...
//	}
//
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Round finished", map[string]interface{}{
//	    "page":       3,
//	    "downloaded": 12,
//	})
//
// The helpers LogRequest, LogImage and LogRunProgress give HTTP traffic,
// per-image outcomes and quota progress a consistent set of field names.
package logger
