// Package internaldefs holds the stable metric name and bucket definitions
// shared by the exporter implementations, so Prometheus and OTel output stay
// aligned.
//
// # What this package must NOT do
//
//   - Import the root package's exporters.
//   - Perform I/O.
package internaldefs
