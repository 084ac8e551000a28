// Package watcher implements alarm-ctl watch: it polls the daemon and logs
// every phase change until cancelled.
package watcher
