// Package lifecycle advances meetings through their processing states in
// response to durable webhook events.
//
// The Manager runs a pool of event workers over the webhook queue, reclaims
// stale claims via heartbeats, and feeds claimed events into the Processor,
// which owns the meeting state machine: bot.done triggers the full
// fetch/extract/summarize pipeline, bot.error drives the meeting to errored,
// and informational events complete without touching the meeting. A separate
// scheduler lane dispatches provider bots for scheduled meetings when their
// start time arrives.
//
// Events claimed for the same bot are serialized; events for distinct bots
// proceed in parallel. An event that exhausts its attempt budget is marked
// failed and the owning meeting is driven to errored unless it already
// reached a terminal state.
package lifecycle
