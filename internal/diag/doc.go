// Package diag implements the session-pool contamination diagnostic.
//
// The Transaction API borrows server sessions from a pool. A session left
// with an open dialog by a previous operation fails later requests with an
// "Unexpected response window" error. The diagnostic fires a fixed set of
// timing patterns at the Transaction API:
//   - rapid_fire: back-to-back requests
//   - delayed_500ms / delayed_2000ms: fixed gaps
//   - parallel: concurrent requests
//   - random_jitter: randomized gaps
//
// and tallies success/failure per pattern to show whether failures track
// timing (pool rotation) rather than payload.
package diag
