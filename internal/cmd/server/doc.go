// Package serverrun wires the runtime and HTTP server into a runnable
// process for the CLI.
package serverrun
