// Package changeagent generates structured meeting summaries.
//
// Summaries are fragment lists (text, participant references, timestamp
// links) plus a participant legend with stable ids and cycling color
// classes. When the remote Change Agent service is configured the
// transcript is summarized there; otherwise a deterministic local digest
// names the first few participants. The legend is always computed
// locally so participant highlighting never depends on the remote
// response shape.
package changeagent
