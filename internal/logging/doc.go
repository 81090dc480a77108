// Package logging assembles the structured slog loggers used by gcm and gcmd.
//
// The client only ever logs trace output: NewTrace returns a console logger on
// stderr when GCM_TRACE is exactly "1" and a no-op logger otherwise, so relayed
// daemon output on stdout is never interleaved with diagnostics. The daemon
// uses NewFromConfig, which honours the configured format and level and tees
// output into a log file beside its socket.
package logging
