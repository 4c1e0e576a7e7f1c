// Package prometheus provides a Prometheus collector for gate metrics.
//
// [NewCollector] wraps a [waitgate.Gate] and publishes every gate counter and the
// evaluation latency histogram as const metrics on each scrape. Counter names are prefixed
// waitgate_*_total; the histogram is waitgate_evaluate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry; callers own the registry.
//   - Mutate gate state.
package prometheus
