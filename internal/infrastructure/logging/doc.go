// Package logging provides structured logging for the Gray Logic Conductor.
//
// This package wraps Go's standard log/slog package so that every component
// logs with the same handler, level and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	coordLog := logger.Component("execution")
//	coordLog.Info("step completed", "plan_id", id, "order", 2)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
