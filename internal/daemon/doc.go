// Package daemon implements gcmd, the per-user process that answers gcm's
// credential requests.
//
// A Daemon holds a flock-based lock in the application directory so only one
// instance serves a socket, replaces any stale socket on start, and handles
// each connection on its own goroutine. A connection carries a verb line and
// request lines up to a blank line; the Handler writes the reply straight to
// the connection, which is closed afterwards. HelperHandler delegates to a git
// credential helper so credential storage stays outside this process.
//
// On linux, peers are checked with SO_PEERCRED and only the daemon's own user
// and root are served.
package daemon
