// Package logs reads the daemon's log files for the CLI and diagnostics.
//
// Tail returns complete lines with bounded memory: a negative offset means
// "the last N lines", a non-negative offset resumes a previous read, and
// follow mode polls for fresh lines until the wait elapses. The returned
// offset feeds the next call, which is how `minute logs --follow` pages
// through the file over IPC without holding it open.
package logs
