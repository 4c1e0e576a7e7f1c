// Package limiters holds the fixed table of named waitgate rate-limit policies built on top of
// the internal/rate primitive.
//
// # Policies
//
//   - signup-by-ip      waitlist:rate:<ip>              60s / 3
//   - signup-by-email   waitlist:email:<email>          3600s / 5
//   - generic-endpoint  endpoint:<name>:rate:<ip>       300s / 50
//   - webhook-by-ip     webhook:ip:<ip>                 300s / 10
//   - webhook-global    webhook:global:rate             60s / 50
//
// The table is built once from configuration and never mutated. Every policy owns a disjoint
// key namespace; [New] rejects tables whose prefixes overlap.
//
// # What this package must NOT do
//
//   - Decide check ordering or rejection reasons (the gate owns that).
//   - Import the root waitgate package.
package limiters
