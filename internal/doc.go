// Package internal holds the packages private to waitgate. It has no code of its own.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and sinks)
//   - cmd: the waitgate CLI (serve, migrate, policies, token, loadtest, benchdiff)
//   - config: YAML, dotenv and environment configuration for the service
//   - counter: Redis-backed counter store with SET NX and INCR
//   - flows: pure check-then-consume orchestration for signup, webhook and endpoint calls
//   - limiters: the named fixed-window limiter table and its key namespaces
//   - rate: the fixed-window check and consume primitives
//   - server: chi HTTP surface for the waitlist and webhook relay
//   - spam: duplicate-content counters keyed by normalized text digests
//   - turnstile: Cloudflare Turnstile siteverify client
//   - validate: email and message content validation
//
// # What this package must NOT do
//
//   - Export types that appear in the public waitgate API.
package internal
