// Package logging provides structured logging for lantern.
//
// This package wraps a zap logger with convenience functions. The CLI is
// silent by default; set LANTERN_LOG_LEVEL (or pass --log-level) to see
// what discovery, SOAP calls, the file server and the command executor
// are doing.
//
// # Log Levels
//
//   - Debug: per-packet and per-request detail (SSDP replies, SOAP calls, commands)
//   - Info: normal operations (discovery cycles, file server requests)
//   - Warn: non-fatal issues (a probe failed, a device did not answer)
//   - Error: failures the operator should see in the log
//
// # Structured Logging
//
//	logging.Info("Discovery finished",
//	    zap.String("cycle_id", id),
//	    zap.Int("devices", len(found)),
//	)
//
// Components that do a lot of logging (the discovery engine, the executor,
// the file server) accept a *zap.Logger and fall back to GetLogger().
//
// # Output Format
//
// Logs are written to stderr in console format:
//
//	2025-11-25T10:30:45.123-0800  DEBUG  discovery/ssdp.go:88  SSDP response
//	  remote_addr=192.168.1.40  st=roku:ecp
package logging
