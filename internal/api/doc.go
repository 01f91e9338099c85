// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal store models into transport-friendly DTOs
// that the web client and CLI can render without coupling to internal types.
//
// # Key Types
//
// Meeting: transport representation of a meeting with transcript, summary,
// and participants passed through as raw JSON.
//
// LifecycleStatus: engine running state, meeting/event stats, and last event.
//
// DaemonStatus: aggregated runtime information including readiness checks.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (store.Status, store.EventStatus) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds. The webhook acknowledgement is
// the one deliberate exception: its field names (bot_id, event) belong to
// the provider-facing contract.
//
// Occurrences expands calendar recurrence rules server-side so clients never
// parse RRULE strings.
package api
