// Package ipc carries the control protocol between the minute CLI and a
// running daemon.
//
// A net/rpc server speaks JSON-RPC over a Unix socket; the Client wrapper
// dials it with a two second timeout so commands fail fast when no daemon is
// listening. The request and response structs here are the wire contract,
// with converters that flatten store records into the compact shapes the CLI
// renders.
//
// New daemon commands should extend the service with another method on these
// types rather than inventing a second transport.
package ipc
