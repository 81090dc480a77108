// Package ipc implements the client side of the gcm daemon protocol.
//
// A Client connects to the daemon's unix socket, bootstrapping the daemon and
// retrying exactly once when the first dial fails. The resulting Session
// carries one request/response exchange: the command verb on its own line,
// then request lines copied from the caller until a blank line or end of
// input, then the daemon's reply relayed byte for byte until the daemon
// closes the connection.
package ipc
