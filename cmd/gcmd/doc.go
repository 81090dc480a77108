// Command gcmd is the per-user daemon behind gcm.
//
// Run without arguments it listens on <home>/.gcm/.pipe and relays each
// request to the configured git credential helper. gcm starts it on demand,
// from the directory holding the gcm binary, so it rarely needs to be launched
// by hand.
//
// Subcommands:
//
//	gcmd status          show the socket, lock, pid, and reachability
//	gcmd config init     write a sample config.toml
//	gcmd config validate load and validate the configuration
package main
