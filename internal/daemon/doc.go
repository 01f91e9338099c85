// Package daemon coordinates the long-running minuted process and its
// integration points.
//
// It wires configuration, the meeting store, the lifecycle manager, and the
// HTTP API server into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon exposes meeting and event maintenance
// helpers, accepts provider webhooks, emits dependency health summaries, and
// owns notifications triggered by meeting start/completion events.
//
// Keep orchestration logic here: individual processing steps should live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
