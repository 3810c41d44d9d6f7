// Package ui provides terminal output components for the lantern CLI.
//
// Output is run-once: commands render a few styled blocks and exit. The
// components are:
//
//   - Printer: status lines (success, error, warning, info) and JSON
//   - Header: banner with aligned parameters for long-running shares
//   - Result: success, failure and warning boxes with troubleshooting tips
//   - RenderTable: bordered tables for devices, commands and services
//   - RenderPanel: framed blocks such as QR codes
//   - RunWithSpinner: a Bubble Tea spinner shown while discovery runs
//
// Styling uses Lipgloss. The spinner only runs when stdout is a terminal,
// so piped and --json output stays plain.
//
// # Logging Integration
//
// zap logging is silent unless LANTERN_LOG_LEVEL or --log-level is set, so
// the styled output is not interleaved with log lines.
package ui
