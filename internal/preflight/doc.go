// Package preflight provides readiness checks for the external services
// and filesystem paths that Minute depends on.
//
// These checks run in two contexts:
//   - The daemon reports RuntimeChecks with every status call. Those stay
//     on configuration and the local filesystem so polling stays cheap.
//   - The CLI "minute status" command runs RunAll, which additionally
//     probes the bot provider, summarizer, and notification endpoints.
//
// Network checks for optional features are gated by their config toggle;
// disabled features are skipped.
package preflight
