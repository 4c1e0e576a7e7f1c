// Package spam implements content-reuse detection for outbound notifications.
//
// Text is normalized (NFKC, lowercase, collapsed whitespace) and reduced to a 128-bit BLAKE2b
// fingerprint. Two fixed-window counters are kept per fingerprint: one global and one per actor.
// Unlike the policy limiters, [Filter.Evaluate] checks both counters and then consumes both in a
// single call, since nothing downstream needs to veto the content first.
package spam
