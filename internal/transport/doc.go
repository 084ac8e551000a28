// Package transport builds the HTTP client used by the notification
// destinations: HTTP/2 over TLS, optionally with client certificates.
package transport
