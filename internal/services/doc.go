// Package services defines shared utilities consumed by the lifecycle event
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp meeting IDs, bot IDs, event names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent event statuses (retryable vs permanent).
//
// Use these helpers when wiring new event logic so operational behaviour
// (error handling, observability, retries) stays uniform across the daemon.
package services
