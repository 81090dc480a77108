// Package daemonctl starts the credential daemon on demand and probes whether
// it is reachable.
//
// The bootstrap is best-effort: the daemon is spawned detached,
// the caller sleeps a fixed grace period, and readiness is only ever observed
// through the caller's next connection attempt.
package daemonctl
