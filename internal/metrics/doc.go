// Package metrics exposes Prometheus collectors for the alarm controller on a
// private registry. A nil *Metrics is valid and records nothing.
package metrics
