// Package metrics exports download progress as Prometheus metrics.
//
// Metrics implements events.Observer, so it can be attached to a session
// controller next to the terminal progress display. Server publishes the
// registry on /metrics while a download runs.
package metrics
