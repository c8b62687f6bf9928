// Package httpserver provides the shared HTTP server shell the court and
// oracle services run in: router setup, health and drain endpoints, optional
// pprof, and a side metrics listener.
package httpserver
