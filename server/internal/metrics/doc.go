// Package metrics exposes cueboard counters on /metrics in the Prometheus
// text format. The Collector is registered as an observer on the registry
// and the selection controller.
package metrics
