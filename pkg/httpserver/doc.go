// Package httpserver wraps net/http.Server with graceful shutdown, signal
// handling, functional options, an environment-driven Config, and a health
// check handler for liveness/readiness probes.
package httpserver
