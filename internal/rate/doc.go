// Package rate provides the fixed-window limiter primitive every waitgate policy is built on.
//
// # Window semantics
//
// A window starts on the first consume (SET key 1 NX EX window) and ends when the store
// expires the key. Subsequent consumes INCR the counter. Windows are fixed, not sliding, so a
// burst of up to 2×limit can straddle a boundary.
//
// # Check / consume split
//
// [Limiter.Check] never mutates the counter. [Limiter.Consume] records exactly one use and is
// not idempotent. Callers compose several limiters by checking all of them first and consuming
// only after every check (and any later validation) has passed.
//
// # What this package must NOT do
//
//   - Know about policy names, actors, or key namespaces (those live in internal/limiters).
//   - Fail open: a store error during Check is returned to the caller.
package rate
