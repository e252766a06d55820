// Package prometheus renders client metrics in Prometheus text exposition
// format.
//
// [NewExporter] accepts a [lumio.Client] and exposes an [http.Handler] that
// serves all counters and the request latency histogram. Counter names are
// prefixed lumio_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the
//     Handler.
//   - Mutate client state.
package prometheus
