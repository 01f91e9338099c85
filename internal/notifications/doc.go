// Package notifications delivers meeting lifecycle events via ntfy.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when notifications are disabled. Each
// event kind carries its own enable toggle, short meetings are suppressed
// below a configurable duration, and identical notifications inside the dedup
// window collapse into a single push.
//
// Extend this package if you need alternative transports; all lifecycle code
// depends only on the simple Service interface.
package notifications
