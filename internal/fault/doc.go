// Package fault defines the error taxonomy shared by the gcm client and maps
// failures onto process exit codes.
//
// Every failure the client can hit belongs to one Kind: a usage error (wrong
// argument count), a configuration error (identity or endpoint resolution), a
// connection error (the daemon stayed unreachable after bootstrap), or a
// transport error (send/receive failure once connected). None of them are
// recovered; the entry point prints Diagnostic(err) and exits with
// ExitCode(err), which is the raw errno of the underlying system call when one
// is present.
package fault
