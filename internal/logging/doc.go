// Package logging provides structured logging for lockwire.
//
// This package wraps zap logger with convenience functions for common
// logging patterns used throughout the engine. Logging is silent unless
// the LOCKWIRE_LOG_LEVEL environment variable (or an explicit Initialize
// call) enables it, so library consumers and CLI users get no output by
// default.
//
// # Log Levels
//
//   - Debug: hex dumps, frame decoding, per-layer protocol traffic
//   - Info: connections, handshake completion, state changes
//   - Warn: dropped frames, resync events, slow consumers
//   - Error: connect failures, teardown problems
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("device connected",
//	    zap.String("device", "A4:C1:38:0B:12:34"),
//	    zap.Duration("handshake", elapsed),
//	)
//
// Protocol traffic uses the specialized helpers:
//
//	logging.LogFrame(deviceID, "rx", "transport", payload)
//	logging.LogRawBytes("idle flush remainder", tail)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
