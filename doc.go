// Package waitgate provides the abuse-prevention gate in front of a waitlist signup flow and its
// outbound notification channel: composable Redis fixed-window limiters plus a content
// fingerprint filter, evaluated under a strict check-then-consume protocol.
//
// The package is designed for concurrent server workloads: Gate methods are safe to call
// from multiple goroutines after initialization through [Builder.Build]. The Gate holds no
// mutable admission state; every counter lives in Redis.
//
// # Architecture boundaries
//
// waitgate is the public surface. It exposes [Gate], [Builder], [Config], [Decision] and the
// audit and metrics value types. Flow orchestration, limiter keys, counter access and content
// fingerprinting live under internal/ and are never exported.
//
// # Admission protocol
//
// Every policy relevant to a request is checked before any policy is consumed. A rejection on
// any check leaves all counters untouched. Checks that cannot reach the store reject with
// [ReasonStoreUnavailable]; consume failures after admission are logged and swallowed.
//
// # What this package must NOT do
//
//   - Expose Redis clients, counter keys or raw store errors in a [Decision].
//   - Perform I/O during construction beyond what [Builder.Build] needs to wire collaborators.
//   - Import any sub-package that re-imports waitgate (no import cycles).
package waitgate
