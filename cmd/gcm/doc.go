// Command gcm is a git credential helper that forwards each request to the
// per-user gcmd daemon.
//
// Usage:
//
//	gcm <command>
//
// The command verb (get, store, erase) is sent unmodified, followed by the
// request lines read from stdin up to a blank line or EOF. Whatever the daemon
// replies is copied to stdout. When the daemon socket is unreachable, gcmd is
// started from the directory holding gcm and the connection is retried once.
//
// Set GCM_TRACE=1 to trace the exchange on stderr.
package main
