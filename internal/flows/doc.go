// Package flows contains the pure-function orchestrators behind every Gate operation.
//
// Each flow (RunSignup, RunWebhook, RunEndpoint) accepts a typed dependency struct and fixes the
// order of checks for its workflow. All limiter checks run first and short-circuit on the first
// rejection; limiter consumes run only after every check has passed. Consume failures are handed
// to OnConsumeError and never change the outcome.
//
// # Architecture boundaries
//
// Flows coordinate validation, limiter policies, the spam filter, and bot verification. They do
// NOT own any of these resources; ownership stays with the Gate.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import waitgate (to avoid import cycles).
//   - Run checks concurrently or reorder them.
package flows
