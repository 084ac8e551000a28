// Package web serves the daemon state as JSON, a health check and the
// Prometheus metrics over plain HTTP.
package web
