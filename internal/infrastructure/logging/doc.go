// Package logging provides structured logging for thermlog.
//
// It wraps log/slog so every component logs with the same handler, level
// and default fields (service, version).
//
// Configuration comes from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("engine started", "interval_ms", 2000)
//
// The debugger route of the participant logging engine writes its records
// through a Logger at debug level, so enabling that route only shows output
// when the configured level is "debug".
package logging
