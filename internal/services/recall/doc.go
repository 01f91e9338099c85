// Package recall wraps the Recall.ai meeting bot API.
//
// The client covers the three provider interactions the lifecycle needs:
// dispatching a bot to a meeting URL, retrieving the bot record with its
// status history and recording artifacts, and downloading the transcript
// and participant roster those artifacts point at. Video links resolve
// through a small TTL cache because the provider expires them six hours
// after issue.
package recall
