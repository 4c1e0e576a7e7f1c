// Package otel exposes gate metrics as OpenTelemetry observable instruments.
//
// Decision counters are folded into one counter, [DecisionsName], with "flow" and "outcome"
// attributes. Store and audit failures get their own counters. Evaluation latency is published
// as cumulative bucket gauges keyed by an "le" attribute plus a count gauge. A single callback
// reads [waitgate.Gate.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate gate state.
package otel
