// Package metrics exposes launcher activity as Prometheus metrics.
package metrics
