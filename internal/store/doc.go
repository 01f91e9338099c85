// Package store persists meetings, webhook events, users, notes, and
// calendar entries in SQLite.
//
// Meetings move forward through scheduled, in_progress, processing, and the
// terminal done/errored states; CanTransition enforces that ordering and
// TransitionStatus applies it with a compare-and-set. Webhook events form a
// durable work queue: they are written before the HTTP handler acknowledges
// the sender, claimed with per-bot exclusivity so one bot's events process
// serially, heartbeated while in flight, and reclaimed when a worker dies.
//
// All writes retry on SQLITE_BUSY with capped backoff, so callers can share
// the store between HTTP handlers, lifecycle workers, and the CLI.
package store
