// Package config reads minute's TOML configuration and fills in everything a
// deployment leaves unspecified.
//
// Loading runs in three steps: defaults for every field, the optional config
// file, then environment secrets (RECALL_API_KEY, CHANGEAGENT_API_KEY,
// MINUTE_API_TOKEN and friends) which win over file values so credentials can
// stay out of on-disk configuration. Paths are tilde-expanded and made
// absolute before anything else sees them.
//
// The daemon and CLI both resolve settings exclusively through this package;
// a Config that survives Validate is safe to hand to every other component.
package config
