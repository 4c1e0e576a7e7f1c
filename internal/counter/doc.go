// Package counter wraps the shared key-value store that backs every limiter in waitgate.
//
// # Contract
//
//   - [Store.Get] reads a counter without mutating it. A missing key is reported with ok=false,
//     never as an error.
//   - [Store.SetIfAbsentWithTTL] is a true compare-and-set (SET NX EX). Two callers racing the
//     first use of a window produce exactly one counter.
//   - [Store.Increment] is the store's native atomic INCR.
//   - [Store.TTL] reports the remaining lifetime, negative when the key is absent or has no expiry.
//
// # Failure policy
//
// Every transport or server failure is wrapped with [ErrUnavailable]. Callers decide whether that
// means fail closed (checks) or log-and-continue (consumes). A failure is never reported as a
// zero count.
//
// # What this package must NOT do
//
//   - Hold client-side locks or cache counters in process memory.
//   - Delete keys. Windows end through store expiry only.
package counter
